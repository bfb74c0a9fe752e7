package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/memstore"
	"github.com/victornm/botm/internal/workout"
)

var (
	_ competition.Store = (*memstore.Store)(nil)
	_ member.Store      = (*memstore.Store)(nil)
	_ measurement.Store = (*memstore.Store)(nil)
	_ workout.Store     = (*memstore.Store)(nil)
)

func TestStore_DeleteMemberCascades(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.InsertMember(ctx,
		&domain.Member{MemberID: "m1", Email: "m1@example.com", Gender: domain.GenderMale, Role: domain.RoleMember},
		&domain.Measurement{MeasurementID: "x1", MemberID: "m1", Weight: decimal.NewFromInt(80)},
	))
	require.NoError(t, s.InsertCompetition(ctx, &domain.Competition{CompetitionID: "c1", Status: domain.StatusUpcoming}))
	require.NoError(t, s.InsertEntries(ctx, []domain.Entry{{EntryID: "e1", CompetitionID: "c1", MemberID: "m1", Category: "Squats"}}))

	c, err := s.GetCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.EntryCount)

	require.NoError(t, s.DeleteMember(ctx, "m1"))

	entries, err := s.ListEntries(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	ms, err := s.ListMeasurements(ctx, "m1", 10)
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestStore_UpdateRanksIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.InsertMember(ctx, &domain.Member{MemberID: "m1", Email: "m1@example.com"}, nil))
	require.NoError(t, s.InsertCompetition(ctx, &domain.Competition{CompetitionID: "c1"}))
	require.NoError(t, s.InsertEntries(ctx, []domain.Entry{{EntryID: "e1", CompetitionID: "c1", MemberID: "m1", Category: "Squats"}}))

	one := 1
	err := s.UpdateRanks(ctx, "c1", []domain.Entry{
		{EntryID: "e1", Rank: &one},
		{EntryID: "missing", Rank: &one},
	})
	require.True(t, errors.Is(err, errors.CodeNotFound))

	entries, err := s.ListEntries(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Rank)
}

func TestStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.InsertMember(ctx, &domain.Member{MemberID: "m1", Email: "a@example.com"}, nil))
	err := s.InsertMember(ctx, &domain.Member{MemberID: "m2", Email: "a@example.com"}, nil)
	assert.True(t, errors.Is(err, errors.CodeAlreadyExists))
}

func TestStore_ListEntriesWithLatestWeight(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertMember(ctx, &domain.Member{MemberID: "m1", Email: "m1@example.com"},
		&domain.Measurement{MeasurementID: "w1", MemberID: "m1", Date: day, Weight: decimal.NewFromInt(80)}))
	require.NoError(t, s.InsertMember(ctx, &domain.Member{MemberID: "m2", Email: "m2@example.com"}, nil))

	// Inserted out of order on purpose.
	require.NoError(t, s.InsertMeasurement(ctx, &domain.Measurement{MeasurementID: "w3", MemberID: "m1", Date: day.AddDate(0, 2, 0), Weight: decimal.NewFromInt(84)}))
	require.NoError(t, s.InsertMeasurement(ctx, &domain.Measurement{MeasurementID: "w2", MemberID: "m1", Date: day.AddDate(0, 1, 0), Weight: decimal.NewFromInt(82)}))

	require.NoError(t, s.InsertCompetition(ctx, &domain.Competition{CompetitionID: "c1"}))
	require.NoError(t, s.InsertEntries(ctx, []domain.Entry{
		{EntryID: "e1", CompetitionID: "c1", MemberID: "m1", Category: "Squats"},
		{EntryID: "e2", CompetitionID: "c1", MemberID: "m2", Category: "Squats"},
	}))

	entries, err := s.ListEntries(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byMember := map[string]domain.Entry{}
	for _, e := range entries {
		byMember[e.MemberID] = e
	}

	require.NotNil(t, byMember["m1"].Member)
	require.True(t, byMember["m1"].Member.LatestWeight.Valid)
	assert.True(t, decimal.NewFromInt(84).Equal(byMember["m1"].Member.LatestWeight.Decimal), "got %s", byMember["m1"].Member.LatestWeight.Decimal)

	require.NotNil(t, byMember["m2"].Member)
	assert.False(t, byMember["m2"].Member.LatestWeight.Valid, "members without measurements have no weight")
}
