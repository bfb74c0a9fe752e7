package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/measurement"
)

type (
	Member struct {
		ID               string              `json:"id"`
		Name             string              `json:"name"`
		Email            string              `json:"email"`
		Gender           domain.Gender       `json:"gender"`
		Role             domain.Role         `json:"role"`
		AvatarURL        string              `json:"avatar_url,omitempty"`
		Goals            string              `json:"goals,omitempty"`
		TrainingDuration string              `json:"training_duration,omitempty"`
		CurrentWeight    decimal.NullDecimal `json:"current_weight"`
		CreateTime       time.Time           `json:"create_time"`
	}

	MemberSummary struct {
		ID           string              `json:"id"`
		Name         string              `json:"name"`
		Gender       domain.Gender       `json:"gender"`
		AvatarURL    string              `json:"avatar_url,omitempty"`
		LatestWeight decimal.NullDecimal `json:"latest_weight"`
	}

	Measurement struct {
		ID       string              `json:"id"`
		Date     time.Time           `json:"date"`
		Weight   decimal.Decimal     `json:"weight"`
		Chest    decimal.NullDecimal `json:"chest"`
		Arms     decimal.NullDecimal `json:"arms"`
		Waist    decimal.NullDecimal `json:"waist"`
		Thighs   decimal.NullDecimal `json:"thighs"`
		Neck     decimal.NullDecimal `json:"neck"`
		Glutes   decimal.NullDecimal `json:"glutes"`
		PhotoURL string              `json:"photo_url,omitempty"`
	}

	Progress struct {
		Count        int             `json:"count"`
		StartWeight  decimal.Decimal `json:"start_weight"`
		Weight       decimal.Decimal `json:"weight"`
		WeightChange decimal.Decimal `json:"weight_change"`
		LastDate     *time.Time      `json:"last_date,omitempty"`
	}

	Competition struct {
		ID               string                   `json:"id"`
		Name             string                   `json:"name"`
		Date             time.Time                `json:"date"`
		Status           domain.CompetitionStatus `json:"status"`
		MaleCategories   []string                 `json:"male_categories"`
		FemaleCategories []string                 `json:"female_categories"`
		EntryCount       int                      `json:"entry_count"`
	}

	Entry struct {
		ID            string          `json:"id"`
		CompetitionID string          `json:"competition_id"`
		MemberID      string          `json:"member_id"`
		Category      string          `json:"category"`
		Score         decimal.Decimal `json:"score"`
		Scored        bool            `json:"scored"`
		Rank          *int            `json:"rank"`
		Member        *MemberSummary  `json:"member,omitempty"`
	}

	CategoryLeaderboard struct {
		Category string           `json:"category"`
		Rows     []LeaderboardRow `json:"rows"`
	}

	LeaderboardRow struct {
		Position int   `json:"position"`
		Entry    Entry `json:"entry"`
	}

	Standing struct {
		Place      int            `json:"place"`
		MemberID   string         `json:"member_id"`
		RankSum    int            `json:"rank_sum"`
		Categories int            `json:"categories"`
		Member     *MemberSummary `json:"member,omitempty"`
	}

	Leaderboard struct {
		Competition Competition           `json:"competition"`
		Categories  []CategoryLeaderboard `json:"categories"`
		Standings   []Standing            `json:"standings"`
		// Registered is set for logged in members only.
		Registered *bool `json:"registered,omitempty"`
	}

	HallOfFameEntry struct {
		Competition  Competition `json:"competition"`
		MaleWinner   *Standing   `json:"male_winner"`
		FemaleWinner *Standing   `json:"female_winner"`
	}

	Workout struct {
		ID          string            `json:"id"`
		Title       string            `json:"title"`
		Description string            `json:"description"`
		BodyPart    domain.BodyPart   `json:"body_part"`
		Difficulty  domain.Difficulty `json:"difficulty"`
		Content     string            `json:"content"`
		ImageURL    string            `json:"image_url,omitempty"`
		CreateTime  time.Time         `json:"create_time"`
	}
)

func toMember(m *domain.Member) Member {
	return Member{
		ID:               m.MemberID,
		Name:             m.Name,
		Email:            m.Email,
		Gender:           m.Gender,
		Role:             m.Role,
		AvatarURL:        m.AvatarURL,
		Goals:            m.Goals,
		TrainingDuration: m.TrainingDuration,
		CurrentWeight:    m.CurrentWeight,
		CreateTime:       m.CreateTime,
	}
}

func toMemberSummary(m *domain.MemberSummary) *MemberSummary {
	if m == nil {
		return nil
	}
	return &MemberSummary{
		ID:           m.MemberID,
		Name:         m.Name,
		Gender:       m.Gender,
		AvatarURL:    m.AvatarURL,
		LatestWeight: m.LatestWeight,
	}
}

func toMeasurement(m domain.Measurement) Measurement {
	return Measurement{
		ID:       m.MeasurementID,
		Date:     m.Date,
		Weight:   m.Weight,
		Chest:    m.Chest,
		Arms:     m.Arms,
		Waist:    m.Waist,
		Thighs:   m.Thighs,
		Neck:     m.Neck,
		Glutes:   m.Glutes,
		PhotoURL: m.PhotoURL,
	}
}

func toProgress(p measurement.Progress) Progress {
	out := Progress{
		Count:        p.Count,
		StartWeight:  p.StartWeight,
		Weight:       p.Weight,
		WeightChange: p.WeightChange,
	}
	if !p.LastDate.IsZero() {
		out.LastDate = &p.LastDate
	}
	return out
}

func toCompetition(c domain.Competition) Competition {
	return Competition{
		ID:               c.CompetitionID,
		Name:             c.Name,
		Date:             c.Date,
		Status:           c.Status,
		MaleCategories:   nonNil(c.MaleCategories),
		FemaleCategories: nonNil(c.FemaleCategories),
		EntryCount:       c.EntryCount,
	}
}

func toEntry(e domain.Entry) Entry {
	return Entry{
		ID:            e.EntryID,
		CompetitionID: e.CompetitionID,
		MemberID:      e.MemberID,
		Category:      e.Category,
		Score:         e.Score,
		Scored:        e.Scored,
		Rank:          e.Rank,
		Member:        toMemberSummary(e.Member),
	}
}

func toStanding(s domain.OverallStanding) Standing {
	return Standing{
		Place:      s.Place,
		MemberID:   s.MemberID,
		RankSum:    s.RankSum,
		Categories: s.Categories,
		Member:     toMemberSummary(s.Member),
	}
}

func toStandings(ss []domain.OverallStanding) []Standing {
	out := make([]Standing, 0, len(ss))
	for _, s := range ss {
		out = append(out, toStanding(s))
	}
	return out
}

func toLeaderboard(l *competition.Leaderboard) Leaderboard {
	out := Leaderboard{
		Competition: toCompetition(l.Competition),
		Categories:  make([]CategoryLeaderboard, 0, len(l.Categories)),
		Standings:   toStandings(l.Standings),
	}

	for _, cl := range l.Categories {
		rows := make([]LeaderboardRow, 0, len(cl.Rows))
		for _, r := range cl.Rows {
			rows = append(rows, LeaderboardRow{Position: r.Position, Entry: toEntry(r.Entry)})
		}
		out.Categories = append(out.Categories, CategoryLeaderboard{Category: cl.Category, Rows: rows})
	}

	return out
}

func toHallOfFameEntry(h domain.HallOfFameEntry) HallOfFameEntry {
	out := HallOfFameEntry{Competition: toCompetition(h.Competition)}
	if h.MaleWinner != nil {
		s := toStanding(*h.MaleWinner)
		out.MaleWinner = &s
	}
	if h.FemaleWinner != nil {
		s := toStanding(*h.FemaleWinner)
		out.FemaleWinner = &s
	}
	return out
}

func toWorkout(w domain.Workout) Workout {
	return Workout{
		ID:          w.WorkoutID,
		Title:       w.Title,
		Description: w.Description,
		BodyPart:    w.BodyPart,
		Difficulty:  w.Difficulty,
		Content:     w.Content,
		ImageURL:    w.ImageURL,
		CreateTime:  w.CreateTime,
	}
}

// mapSlice converts every element of in with f.
func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
