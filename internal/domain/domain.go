package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Member is a registered gym member.
type Member struct {
	MemberID         string
	Name             string
	Email            string
	PasswordHash     string
	Gender           Gender
	Role             Role
	AvatarURL        string
	Goals            string
	TrainingDuration string
	CurrentWeight    decimal.NullDecimal
	CreateTime       time.Time
}

func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

// Measurement is a snapshot of a member's body measurements.
// Only Weight is mandatory, the other fields are null when not measured.
type Measurement struct {
	MeasurementID string
	MemberID      string
	Date          time.Time
	Weight        decimal.Decimal
	Chest         decimal.NullDecimal
	Arms          decimal.NullDecimal
	Waist         decimal.NullDecimal
	Thighs        decimal.NullDecimal
	Neck          decimal.NullDecimal
	Glutes        decimal.NullDecimal
	PhotoURL      string
}

type CompetitionStatus string

const (
	StatusUpcoming  CompetitionStatus = "UPCOMING"
	StatusActive    CompetitionStatus = "ACTIVE"
	StatusCompleted CompetitionStatus = "COMPLETED"
)

func (s CompetitionStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Competition is one monthly contest. MaleCategories and FemaleCategories
// override the default categories offered at registration when not empty.
type Competition struct {
	CompetitionID    string
	Name             string
	Date             time.Time
	Status           CompetitionStatus
	MaleCategories   []string
	FemaleCategories []string
	EntryCount       int
}

// Entry is one member's score within one category of one competition.
// Rank is nil until rankings are calculated.
type Entry struct {
	EntryID       string
	CompetitionID string
	MemberID      string
	Category      string
	Score         decimal.Decimal
	Scored        bool
	Rank          *int

	// Display only, filled when entries are read together with their member.
	Member *MemberSummary
}

// MemberSummary holds the member fields shown next to rankings.
type MemberSummary struct {
	MemberID  string
	Name      string
	Gender    Gender
	AvatarURL string

	// LatestWeight is the weight of the member's most recent measurement.
	LatestWeight decimal.NullDecimal
}

// CategoryLeaderboard lists the entries of one category, best score first.
type CategoryLeaderboard struct {
	Category string
	Rows     []LeaderboardRow
}

type LeaderboardRow struct {
	// Position is the computed rank, or the display position when ranks were not calculated yet.
	Position int
	Entry    Entry
}

// OverallStanding is a member's aggregate placement in a competition.
// Lower RankSum is better.
type OverallStanding struct {
	Place      int
	MemberID   string
	RankSum    int
	Categories int
	Member     *MemberSummary
}

// HallOfFameEntry holds the winners of a completed competition.
type HallOfFameEntry struct {
	Competition  Competition
	MaleWinner   *OverallStanding
	FemaleWinner *OverallStanding
}

type BodyPart string

const (
	BodyPartChest     BodyPart = "Chest"
	BodyPartBack      BodyPart = "Back"
	BodyPartLegs      BodyPart = "Legs"
	BodyPartShoulders BodyPart = "Shoulders"
	BodyPartArms      BodyPart = "Arms"
	BodyPartCore      BodyPart = "Core"
	BodyPartFullBody  BodyPart = "Full Body"
)

func (b BodyPart) Valid() bool {
	switch b {
	case BodyPartChest, BodyPartBack, BodyPartLegs, BodyPartShoulders, BodyPartArms, BodyPartCore, BodyPartFullBody:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Workout is a published training routine.
type Workout struct {
	WorkoutID   string
	Title       string
	Description string
	BodyPart    BodyPart
	Difficulty  Difficulty
	Content     string
	ImageURL    string
	CreateTime  time.Time
}
