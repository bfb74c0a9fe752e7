package domain

const (
	EventNameScoreEntered          = "score.entered"
	EventNameRankingsCalculated    = "rankings.calculated"
	EventNameStandingsUpdated      = "standings.updated"
	EventNameCompetitionStatus     = "competition.status_changed"
	EventNameCompetitionDeleted    = "competition.deleted"
	EventNameCompetitionRegistered = "competition.registered"
	EventNameMemberUpdated         = "member.updated"
	EventNameMemberDeleted         = "member.deleted"
)

type EventScoreEntered struct {
	Entry Entry
}

func (EventScoreEntered) Name() string { return EventNameScoreEntered }

// EventRankingsCalculated is published after all ranks of a competition were persisted.
type EventRankingsCalculated struct {
	CompetitionID string
	Standings     []OverallStanding
}

func (EventRankingsCalculated) Name() string { return EventNameRankingsCalculated }

type EventStandingsUpdated struct {
	CompetitionID string
	Standings     []OverallStanding
}

func (EventStandingsUpdated) Name() string { return EventNameStandingsUpdated }

type EventCompetitionStatusChanged struct {
	Competition Competition
	From        CompetitionStatus
}

func (EventCompetitionStatusChanged) Name() string { return EventNameCompetitionStatus }

type EventCompetitionDeleted struct {
	CompetitionID string
}

func (EventCompetitionDeleted) Name() string { return EventNameCompetitionDeleted }

type EventCompetitionRegistered struct {
	CompetitionID string
	MemberID      string
	Categories    []string
}

func (EventCompetitionRegistered) Name() string { return EventNameCompetitionRegistered }

// EventMemberUpdated is published when a member's profile changed.
type EventMemberUpdated struct {
	MemberID string
}

func (EventMemberUpdated) Name() string { return EventNameMemberUpdated }

type EventMemberDeleted struct {
	MemberID string
}

func (EventMemberDeleted) Name() string { return EventNameMemberDeleted }
