package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/botm/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Standings struct {
		CompetitionID string     `json:"competition_id"`
		Standings     []Standing `json:"standings"`
	}

	StatusChange struct {
		Competition Competition              `json:"competition"`
		From        domain.CompetitionStatus `json:"from"`
	}

	Registration struct {
		CompetitionID string   `json:"competition_id"`
		MemberID      string   `json:"member_id"`
		Categories    []string `json:"categories"`
	}
)

// PublishStandingsUpdated relays new standings to the competition's pubsub channel,
// where every live connection of any instance picks them up.
func (a *API) PublishStandingsUpdated(ctx context.Context, e domain.EventStandingsUpdated) error {
	data := Standings{
		CompetitionID: e.CompetitionID,
		Standings:     toStandings(e.Standings),
	}

	return a.publishNotification(ctx, e.CompetitionID, e.Name(), data)
}

// PublishScoreEntered lets live viewers follow the judging before ranks are recalculated.
func (a *API) PublishScoreEntered(ctx context.Context, e domain.EventScoreEntered) error {
	return a.publishNotification(ctx, e.Entry.CompetitionID, e.Name(), toEntry(e.Entry))
}

func (a *API) PublishCompetitionStatusChanged(ctx context.Context, e domain.EventCompetitionStatusChanged) error {
	data := StatusChange{
		Competition: toCompetition(e.Competition),
		From:        e.From,
	}

	return a.publishNotification(ctx, e.Competition.CompetitionID, e.Name(), data)
}

func (a *API) PublishCompetitionRegistered(ctx context.Context, e domain.EventCompetitionRegistered) error {
	data := Registration{
		CompetitionID: e.CompetitionID,
		MemberID:      e.MemberID,
		Categories:    nonNil(e.Categories),
	}

	return a.publishNotification(ctx, e.CompetitionID, e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, competitionID, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, a.competitionChannel(competitionID), b).Err()
}

func (a *API) competitionChannel(competitionID string) string {
	return fmt.Sprintf("%s:competition:%s", a.prefix, competitionID)
}
