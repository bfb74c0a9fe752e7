package ranking_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/ranking"
)

func TestCategoryRanks(t *testing.T) {
	type (
		inputs struct {
			entries []domain.Entry
		}

		outputs struct {
			ranked []domain.Entry
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"higher score should get the better rank": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					entry("e2", "bob", "Squats", 80),
					entry("e1", "alice", "Squats", 100),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, ranksOf(out.ranked, "Squats"))
			},
		},

		"ranks should be 1..N without gaps in every category": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					entry("e1", "alice", "Squats", 10),
					entry("e2", "bob", "Bench", 50),
					entry("e3", "carol", "Squats", 30),
					entry("e4", "dave", "Squats", 20),
					entry("e5", "alice", "Bench", 70),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.ranked, 5)
				assert.Equal(t, map[string]int{"carol": 1, "dave": 2, "alice": 3}, ranksOf(out.ranked, "Squats"))
				assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, ranksOf(out.ranked, "Bench"))
			},
		},

		"equal scores should get distinct consecutive ranks ordered by member id": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					entry("e1", "zed", "Curls", 40),
					entry("e2", "amy", "Curls", 40),
					entry("e3", "kim", "Curls", 90),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, map[string]int{"kim": 1, "amy": 2, "zed": 3}, ranksOf(out.ranked, "Curls"))
			},
		},

		"category labels should be compared case-sensitively": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					entry("e1", "alice", "Squats", 10),
					entry("e2", "bob", "squats", 20),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, map[string]int{"alice": 1}, ranksOf(out.ranked, "Squats"))
				assert.Equal(t, map[string]int{"bob": 1}, ranksOf(out.ranked, "squats"))
			},
		},

		"unscored entries with the default zero score should still be ranked": {
			arrange: func() inputs {
				unscored := entry("e2", "bob", "Squats", 0)
				unscored.Scored = false
				return inputs{entries: []domain.Entry{
					entry("e1", "alice", "Squats", 100),
					unscored,
				}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, ranksOf(out.ranked, "Squats"))
			},
		},

		"no entries should yield no ranks": {
			arrange: func() inputs {
				return inputs{}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Empty(t, out.ranked)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			tt.assert(t, outputs{ranked: ranking.CategoryRanks(in.entries)})
		})
	}
}

func TestCategoryRanks_Properties(t *testing.T) {
	entries := []domain.Entry{
		entry("e1", "m1", "Squats", 55),
		entry("e2", "m2", "Squats", 55),
		entry("e3", "m3", "Squats", 12.5),
		entry("e4", "m4", "Squats", 99),
		entry("e5", "m1", "Push-ups", 30),
		entry("e6", "m2", "Push-ups", 0),
	}

	first := ranking.CategoryRanks(entries)

	t.Run("a higher score should never get a worse rank", func(t *testing.T) {
		for _, a := range first {
			for _, b := range first {
				if a.Category == b.Category && a.Score.GreaterThan(b.Score) {
					assert.Less(t, *a.Rank, *b.Rank, "%s vs %s", a.EntryID, b.EntryID)
				}
			}
		}
	})

	t.Run("recalculating unchanged scores should keep the ranks", func(t *testing.T) {
		// Feed the ranked entries back in reversed order.
		reversed := make([]domain.Entry, len(first))
		for i, e := range first {
			reversed[len(first)-1-i] = e
		}

		second := ranking.CategoryRanks(reversed)
		assert.Equal(t, ranksByEntry(first), ranksByEntry(second))
	})

	t.Run("input entries should not be modified", func(t *testing.T) {
		for _, e := range entries {
			assert.Nil(t, e.Rank)
		}
	})
}

func TestOverallStandings(t *testing.T) {
	type (
		inputs struct {
			entries []domain.Entry
		}

		outputs struct {
			standings []domain.OverallStanding
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"rank-sum should add ranks across categories": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					ranked(entry("e1", "alice", "Squats", 100), 1),
					ranked(entry("e2", "bob", "Squats", 80), 2),
					ranked(entry("e3", "bob", "Bench", 90), 1),
					ranked(entry("e4", "alice", "Bench", 70), 2),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.standings, 2)
				assert.Equal(t, domain.OverallStanding{Place: 1, MemberID: "alice", RankSum: 3, Categories: 2}, out.standings[0])
				assert.Equal(t, domain.OverallStanding{Place: 2, MemberID: "bob", RankSum: 3, Categories: 2}, out.standings[1])
			},
		},

		"members without ranked entries should be excluded": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					ranked(entry("e1", "alice", "Squats", 100), 1),
					entry("e2", "bob", "Squats", 0),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.standings, 1)
				assert.Equal(t, "alice", out.standings[0].MemberID)
			},
		},

		"standings should be sorted by ascending rank-sum": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					ranked(entry("e1", "a", "Squats", 1), 3),
					ranked(entry("e2", "b", "Squats", 3), 1),
					ranked(entry("e3", "c", "Squats", 2), 2),
					ranked(entry("e4", "a", "Curls", 1), 3),
					ranked(entry("e5", "b", "Curls", 3), 1),
					ranked(entry("e6", "c", "Curls", 2), 2),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.standings, 3)
				for i := 1; i < len(out.standings); i++ {
					assert.LessOrEqual(t, out.standings[i-1].RankSum, out.standings[i].RankSum)
				}
				assert.Equal(t, []string{"b", "c", "a"}, memberIDs(out.standings))
			},
		},

		"equal rank-sum should favour the member ranked in more categories": {
			arrange: func() inputs {
				return inputs{entries: []domain.Entry{
					ranked(entry("e1", "a", "Squats", 1), 2),
					ranked(entry("e2", "b", "Squats", 1), 1),
					ranked(entry("e3", "b", "Curls", 1), 1),
				}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, []string{"b", "a"}, memberIDs(out.standings))
			},
		},

		"no entries should yield empty standings": {
			arrange: func() inputs {
				return inputs{}
			},

			assert: func(t *testing.T, out outputs) {
				assert.NotNil(t, out.standings)
				assert.Empty(t, out.standings)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			tt.assert(t, outputs{standings: ranking.OverallStandings(in.entries)})
		})
	}
}

func TestLeaderboards(t *testing.T) {
	t.Run("position should fall back to list index before ranks are calculated", func(t *testing.T) {
		boards := ranking.Leaderboards([]domain.Entry{
			entry("e1", "bob", "Squats", 80),
			entry("e2", "alice", "Squats", 100),
			entry("e3", "alice", "Bench", 20),
		})

		require.Len(t, boards, 2)
		assert.Equal(t, "Squats", boards[0].Category)
		assert.Equal(t, "Bench", boards[1].Category)

		require.Len(t, boards[0].Rows, 2)
		assert.Equal(t, 1, boards[0].Rows[0].Position)
		assert.Equal(t, "alice", boards[0].Rows[0].Entry.MemberID)
		assert.Equal(t, 2, boards[0].Rows[1].Position)
	})

	t.Run("position should use the stored rank when present", func(t *testing.T) {
		boards := ranking.Leaderboards([]domain.Entry{
			ranked(entry("e1", "bob", "Squats", 80), 2),
			ranked(entry("e2", "alice", "Squats", 100), 1),
			// scored after rankings were calculated
			ranked(entry("e3", "carol", "Squats", 120), 3),
		})

		require.Len(t, boards, 1)
		assert.Equal(t, []int{3, 1, 2}, []int{
			boards[0].Rows[0].Position,
			boards[0].Rows[1].Position,
			boards[0].Rows[2].Position,
		})
	})

	t.Run("no entries should yield no leaderboards", func(t *testing.T) {
		assert.Empty(t, ranking.Leaderboards(nil))
	})
}

func TestDefaultCategories(t *testing.T) {
	assert.Equal(t, []string{"Squats", "Deadlifts", "Abdominals", "Cable Arm Extensions"}, ranking.DefaultCategories(domain.GenderFemale))
	assert.Equal(t, []string{"Squats", "Bench Press", "Curls", "Push-ups"}, ranking.DefaultCategories(domain.GenderMale))
	assert.Equal(t, []string{"Squats", "Bench Press", "Curls", "Push-ups"}, ranking.DefaultCategories(""))

	c := ranking.DefaultCategories(domain.GenderMale)
	c[0] = "changed"
	assert.Equal(t, "Squats", ranking.DefaultCategories(domain.GenderMale)[0], "should return a copy")
}

func TestHallOfFame(t *testing.T) {
	standings := []domain.OverallStanding{
		{Place: 1, MemberID: "m1", RankSum: 2, Member: &domain.MemberSummary{MemberID: "m1", Gender: domain.GenderMale}},
		{Place: 2, MemberID: "m2", RankSum: 3, Member: &domain.MemberSummary{MemberID: "m2", Gender: domain.GenderMale}},
		{Place: 3, MemberID: "f1", RankSum: 5, Member: &domain.MemberSummary{MemberID: "f1", Gender: domain.GenderFemale}},
	}

	t.Run("completed competition should pick the best man and woman", func(t *testing.T) {
		h, ok := ranking.HallOfFame(domain.Competition{CompetitionID: "c1", Status: domain.StatusCompleted}, standings)
		require.True(t, ok)
		require.NotNil(t, h.MaleWinner)
		require.NotNil(t, h.FemaleWinner)
		assert.Equal(t, "m1", h.MaleWinner.MemberID)
		assert.Equal(t, "f1", h.FemaleWinner.MemberID)
	})

	t.Run("missing gender should leave that winner empty", func(t *testing.T) {
		h, ok := ranking.HallOfFame(domain.Competition{Status: domain.StatusCompleted}, standings[:2])
		require.True(t, ok)
		assert.Nil(t, h.FemaleWinner)
	})

	t.Run("competition not completed should be skipped", func(t *testing.T) {
		_, ok := ranking.HallOfFame(domain.Competition{Status: domain.StatusActive}, standings)
		assert.False(t, ok)
	})
}

func entry(id, member, category string, score float64) domain.Entry {
	return domain.Entry{
		EntryID:       id,
		CompetitionID: "c1",
		MemberID:      member,
		Category:      category,
		Score:         decimal.NewFromFloat(score),
		Scored:        true,
	}
}

func ranked(e domain.Entry, rank int) domain.Entry {
	e.Rank = &rank
	return e
}

func ranksOf(entries []domain.Entry, category string) map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		if e.Category == category && e.Rank != nil {
			m[e.MemberID] = *e.Rank
		}
	}
	return m
}

func ranksByEntry(entries []domain.Entry) map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		m[e.EntryID] = *e.Rank
	}
	return m
}

func memberIDs(standings []domain.OverallStanding) []string {
	ids := make([]string, 0, len(standings))
	for _, s := range standings {
		ids = append(ids, s.MemberID)
	}
	return ids
}
