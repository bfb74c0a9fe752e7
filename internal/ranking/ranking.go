// Package ranking turns per-category scores into ranks and aggregates them into
// overall standings. All functions are pure: they neither read nor write storage.
package ranking

import (
	"slices"
	"strings"

	"github.com/victornm/botm/internal/domain"
)

var (
	maleDefaults   = []string{"Squats", "Bench Press", "Curls", "Push-ups"}
	femaleDefaults = []string{"Squats", "Deadlifts", "Abdominals", "Cable Arm Extensions"}
)

// DefaultCategories returns the categories a member is entered in when registering
// without choosing any. Members flagged female get their own set, everyone else the male set.
func DefaultCategories(g domain.Gender) []string {
	if g == domain.GenderFemale {
		return slices.Clone(femaleDefaults)
	}
	return slices.Clone(maleDefaults)
}

// CategoryRanks assigns rank 1..N within every category by descending score.
// Equal scores get consecutive ranks; ties are broken by member ID then entry ID so
// the assignment does not depend on the order the entries were read in.
// The returned slice holds a copy of every input entry, grouped by category in order
// of first appearance.
func CategoryRanks(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, g := range groupByCategory(entries) {
		sortByScore(g.entries)
		for i := range g.entries {
			r := i + 1
			g.entries[i].Rank = &r
		}
		out = append(out, g.entries...)
	}
	return out
}

// Leaderboards groups entries per category, best score first. A row's position is
// the stored rank if one was calculated, otherwise its place in the sorted list.
func Leaderboards(entries []domain.Entry) []domain.CategoryLeaderboard {
	groups := groupByCategory(entries)
	out := make([]domain.CategoryLeaderboard, 0, len(groups))
	for _, g := range groups {
		sortByScore(g.entries)

		rows := make([]domain.LeaderboardRow, 0, len(g.entries))
		for i, e := range g.entries {
			pos := i + 1
			if e.Rank != nil {
				pos = *e.Rank
			}
			rows = append(rows, domain.LeaderboardRow{Position: pos, Entry: e})
		}

		out = append(out, domain.CategoryLeaderboard{Category: g.category, Rows: rows})
	}
	return out
}

// OverallStandings sums every member's ranks across the categories they were ranked in.
// Members without any ranked entry are left out. The result is ordered by ascending
// rank-sum; equal sums put the member ranked in more categories first, then fall back
// to member ID.
func OverallStandings(entries []domain.Entry) []domain.OverallStanding {
	byMember := make(map[string]*domain.OverallStanding)
	for _, e := range entries {
		if e.Rank == nil {
			continue
		}

		s, ok := byMember[e.MemberID]
		if !ok {
			s = &domain.OverallStanding{MemberID: e.MemberID}
			byMember[e.MemberID] = s
		}
		if s.Member == nil && e.Member != nil {
			m := *e.Member
			s.Member = &m
		}
		s.RankSum += *e.Rank
		s.Categories++
	}

	out := make([]domain.OverallStanding, 0, len(byMember))
	for _, s := range byMember {
		out = append(out, *s)
	}

	slices.SortFunc(out, func(a, b domain.OverallStanding) int {
		if a.RankSum != b.RankSum {
			return a.RankSum - b.RankSum
		}
		if a.Categories != b.Categories {
			return b.Categories - a.Categories
		}
		return strings.Compare(a.MemberID, b.MemberID)
	})

	for i := range out {
		out[i].Place = i + 1
	}
	return out
}

// HallOfFame picks the best placed man and woman of a completed competition from
// standings already ordered by OverallStandings. Standings without member info are skipped.
// ok is false when the competition is not completed.
func HallOfFame(c domain.Competition, standings []domain.OverallStanding) (domain.HallOfFameEntry, bool) {
	if c.Status != domain.StatusCompleted {
		return domain.HallOfFameEntry{}, false
	}

	h := domain.HallOfFameEntry{Competition: c}
	for i := range standings {
		s := standings[i]
		if s.Member == nil {
			continue
		}

		switch {
		case s.Member.Gender == domain.GenderMale && h.MaleWinner == nil:
			h.MaleWinner = &s
		case s.Member.Gender == domain.GenderFemale && h.FemaleWinner == nil:
			h.FemaleWinner = &s
		}
	}
	return h, true
}

type categoryGroup struct {
	category string
	entries  []domain.Entry
}

// groupByCategory copies entries into per-category groups. Labels are compared as is.
func groupByCategory(entries []domain.Entry) []*categoryGroup {
	var (
		groups []*categoryGroup
		index  = make(map[string]*categoryGroup)
	)
	for _, e := range entries {
		g, ok := index[e.Category]
		if !ok {
			g = &categoryGroup{category: e.Category}
			index[e.Category] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
	}
	return groups
}

func sortByScore(entries []domain.Entry) {
	slices.SortStableFunc(entries, func(a, b domain.Entry) int {
		if c := b.Score.Cmp(a.Score); c != 0 {
			return c
		}
		if c := strings.Compare(a.MemberID, b.MemberID); c != 0 {
			return c
		}
		return strings.Compare(a.EntryID, b.EntryID)
	})
}
