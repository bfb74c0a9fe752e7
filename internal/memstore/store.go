// Package memstore keeps members, measurements, competitions and workouts in memory.
// It implements the Store port of every service and is meant for local runs and tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

type Store struct {
	mu sync.RWMutex

	members      map[string]domain.Member
	measurements []domain.Measurement
	competitions map[string]domain.Competition
	entries      []domain.Entry
	workouts     []domain.Workout
}

func New() *Store {
	return &Store{
		members:      make(map[string]domain.Member),
		competitions: make(map[string]domain.Competition),
	}
}

// Members

func (s *Store) InsertMember(_ context.Context, m *domain.Member, initial *domain.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.MemberID]; ok || s.emailTaken(m.Email, "") {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("email already in use"))
	}

	s.members[m.MemberID] = *m
	if initial != nil {
		s.measurements = append(s.measurements, *initial)
	}
	return nil
}

func (s *Store) GetMember(_ context.Context, id string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, errors.NotFound("member not found: id=%s", id)
	}
	return &m, nil
}

func (s *Store) GetMemberByEmail(_ context.Context, email string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.Email == email {
			return &m, nil
		}
	}
	return nil, errors.NotFound("member not found")
}

func (s *Store) ListMembers(_ context.Context) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].CreateTime.After(out[j].CreateTime)
		}
		return out[i].MemberID > out[j].MemberID
	})
	return out, nil
}

func (s *Store) CountMembers(_ context.Context, role domain.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.members {
		if m.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateProfile(_ context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.members[m.MemberID]
	if !ok {
		return errors.NotFound("member not found: id=%s", m.MemberID)
	}
	if s.emailTaken(m.Email, m.MemberID) {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("email already in use"))
	}

	cur.Name, cur.Email, cur.Gender = m.Name, m.Email, m.Gender
	cur.Goals, cur.TrainingDuration = m.Goals, m.TrainingDuration
	cur.CurrentWeight, cur.AvatarURL = m.CurrentWeight, m.AvatarURL
	s.members[m.MemberID] = cur
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string) error {
	return s.updateMember(id, func(m *domain.Member) { m.PasswordHash = hash })
}

func (s *Store) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return s.updateMember(id, func(m *domain.Member) { m.Role = role })
}

// DeleteMember also removes the member's measurements and entries.
func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return errors.NotFound("member not found: id=%s", id)
	}

	delete(s.members, id)
	s.measurements = slices.DeleteFunc(s.measurements, func(m domain.Measurement) bool { return m.MemberID == id })
	s.entries = slices.DeleteFunc(s.entries, func(e domain.Entry) bool { return e.MemberID == id })
	return nil
}

func (s *Store) updateMember(id string, fn func(m *domain.Member)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return errors.NotFound("member not found: id=%s", id)
	}
	fn(&m)
	s.members[id] = m
	return nil
}

func (s *Store) emailTaken(email, except string) bool {
	for _, m := range s.members {
		if m.Email == email && m.MemberID != except {
			return true
		}
	}
	return false
}

// Measurements

func (s *Store) InsertMeasurement(_ context.Context, m *domain.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[m.MemberID]
	if !ok {
		return errors.NotFound("member not found: id=%s", m.MemberID)
	}

	member.CurrentWeight.Decimal, member.CurrentWeight.Valid = m.Weight, true
	s.members[m.MemberID] = member
	s.measurements = append(s.measurements, *m)
	return nil
}

func (s *Store) ListMeasurements(_ context.Context, memberID string, limit int) ([]domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Measurement
	for _, m := range s.measurements {
		if m.MemberID == memberID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Competitions

func (s *Store) InsertCompetition(_ context.Context, c *domain.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.competitions[c.CompetitionID]; ok {
		return errors.New(errors.CodeAlreadyExists)
	}
	s.competitions[c.CompetitionID] = *c
	return nil
}

func (s *Store) GetCompetition(_ context.Context, id string) (*domain.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.competitions[id]
	if !ok {
		return nil, errors.NotFound("competition not found: id=%s", id)
	}
	c.EntryCount = s.countEntries(id)
	return &c, nil
}

func (s *Store) ListCompetitions(_ context.Context, statuses []domain.CompetitionStatus) ([]domain.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Competition
	for _, c := range s.competitions {
		if len(statuses) > 0 && !slices.Contains(statuses, c.Status) {
			continue
		}
		c.EntryCount = s.countEntries(c.CompetitionID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CompetitionID < out[j].CompetitionID
	})
	return out, nil
}

func (s *Store) CountCompetitions(ctx context.Context, statuses []domain.CompetitionStatus) (int, error) {
	cs, err := s.ListCompetitions(ctx, statuses)
	return len(cs), err
}

func (s *Store) UpdateStatus(_ context.Context, id string, status domain.CompetitionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitions[id]
	if !ok {
		return errors.NotFound("competition not found: id=%s", id)
	}
	c.Status = status
	s.competitions[id] = c
	return nil
}

func (s *Store) DeleteCompetition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.competitions[id]; !ok {
		return errors.NotFound("competition not found: id=%s", id)
	}
	delete(s.competitions, id)
	s.entries = slices.DeleteFunc(s.entries, func(e domain.Entry) bool { return e.CompetitionID == id })
	return nil
}

func (s *Store) InsertEntries(_ context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := entries[0]
	if _, ok := s.competitions[first.CompetitionID]; !ok {
		return errors.NotFound("competition not found: id=%s", first.CompetitionID)
	}
	if _, ok := s.members[first.MemberID]; !ok {
		return errors.NotFound("member not found: id=%s", first.MemberID)
	}

	for _, e := range s.entries {
		if e.CompetitionID == first.CompetitionID && e.MemberID == first.MemberID {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("member already registered: competition=%s member=%s", first.CompetitionID, first.MemberID))
		}
	}

	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Store) UpsertScore(_ context.Context, e *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.competitions[e.CompetitionID]; !ok {
		return errors.NotFound("competition or member not found")
	}
	if _, ok := s.members[e.MemberID]; !ok {
		return errors.NotFound("competition or member not found")
	}

	for i, x := range s.entries {
		if x.CompetitionID == e.CompetitionID && x.MemberID == e.MemberID && x.Category == e.Category {
			s.entries[i].Score, s.entries[i].Scored = e.Score, true
			e.EntryID, e.Rank = x.EntryID, x.Rank
			return nil
		}
	}

	e.Scored = true
	s.entries = append(s.entries, *e)
	return nil
}

func (s *Store) ListEntries(_ context.Context, competitionID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Entry
	for _, e := range s.entries {
		if e.CompetitionID != competitionID {
			continue
		}
		if e.Rank != nil {
			r := *e.Rank
			e.Rank = &r
		}
		if m, ok := s.members[e.MemberID]; ok {
			e.Member = &domain.MemberSummary{
				MemberID:     m.MemberID,
				Name:         m.Name,
				Gender:       m.Gender,
				AvatarURL:    m.AvatarURL,
				LatestWeight: s.latestWeight(m.MemberID),
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) latestWeight(memberID string) decimal.NullDecimal {
	var latest *domain.Measurement
	for i, m := range s.measurements {
		if m.MemberID == memberID && (latest == nil || !m.Date.Before(latest.Date)) {
			latest = &s.measurements[i]
		}
	}
	if latest == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(latest.Weight)
}

func (s *Store) UpdateRanks(_ context.Context, competitionID string, entries []domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		if e.CompetitionID == competitionID {
			idx[e.EntryID] = i
		}
	}

	// Check every entry before touching any rank.
	for _, e := range entries {
		if _, ok := idx[e.EntryID]; !ok {
			return errors.NotFound("entry not found: id=%s", e.EntryID)
		}
	}

	for _, e := range entries {
		var rank *int
		if e.Rank != nil {
			r := *e.Rank
			rank = &r
		}
		s.entries[idx[e.EntryID]].Rank = rank
	}
	return nil
}

func (s *Store) countEntries(competitionID string) int {
	n := 0
	for _, e := range s.entries {
		if e.CompetitionID == competitionID {
			n++
		}
	}
	return n
}

// Workouts

func (s *Store) InsertWorkout(_ context.Context, w *domain.Workout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workouts = append(s.workouts, *w)
	return nil
}

func (s *Store) ListWorkouts(_ context.Context) ([]domain.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.workouts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreateTime.After(out[j].CreateTime) })
	return out, nil
}

func (s *Store) DeleteWorkout(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.workouts)
	s.workouts = slices.DeleteFunc(s.workouts, func(w domain.Workout) bool { return w.WorkoutID == id })
	if len(s.workouts) == n {
		return errors.NotFound("workout not found: id=%s", id)
	}
	return nil
}

func (s *Store) CountWorkouts(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.workouts), nil
}
