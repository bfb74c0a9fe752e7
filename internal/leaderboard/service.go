package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/event"
)

const (
	defaultPublishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// PublishInterval is the minimum time between two standings.updated events of the same competition.
	PublishInterval time.Duration
}

// Service caches the overall standings of competitions in Redis and notifies
// listeners when they change.
type Service struct {
	eb       *event.Bus
	redis    redis.UniversalClient
	prefix   string
	interval time.Duration

	mu       sync.Mutex
	stopped  bool
	trailing map[string]*time.Timer
}

func NewService(c Config) *Service {
	interval := c.PublishInterval
	if interval == 0 {
		interval = defaultPublishInterval
	}

	s := &Service{
		eb:       c.EventBus,
		redis:    c.Redis,
		prefix:   c.Prefix,
		interval: interval,
		trailing: make(map[string]*time.Timer),
	}

	s.eb.Subscribe(domain.EventNameRankingsCalculated, func(ctx context.Context, e event.Event) error {
		return s.CacheStandings(ctx, e.(domain.EventRankingsCalculated))
	})

	s.eb.Subscribe(domain.EventNameCompetitionDeleted, func(ctx context.Context, e event.Event) error {
		return s.Evict(ctx, e.(domain.EventCompetitionDeleted).CompetitionID)
	})

	// Cached standings embed the member's name and gender.
	s.eb.Subscribe(domain.EventNameMemberUpdated, func(ctx context.Context, e event.Event) error {
		return s.EvictMember(ctx, e.(domain.EventMemberUpdated).MemberID)
	})

	s.eb.Subscribe(domain.EventNameMemberDeleted, func(ctx context.Context, e event.Event) error {
		return s.EvictMember(ctx, e.(domain.EventMemberDeleted).MemberID)
	})

	return s
}

type GetStandingsRequest struct {
	CompetitionID string
}

// GetStandings returns the cached standings, best first. It fails with CodeNotFound
// when nothing is cached for the competition.
func (s *Service) GetStandings(ctx context.Context, req GetStandingsRequest) ([]domain.OverallStanding, error) {
	ids, err := s.redis.ZRange(ctx, s.getStandingsKey(req.CompetitionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}

	if len(ids) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("standings not found: competition=%s", req.CompetitionID))
	}

	vals, err := s.redis.HMGet(ctx, s.getMembersKey(req.CompetitionID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings members: %w", err)
	}

	standings := make([]domain.OverallStanding, 0, len(ids))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("standing missing from cache: competition=%s member=%s", req.CompetitionID, ids[i])
		}

		var st domain.OverallStanding
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("decode standing: member=%s: %w", ids[i], err)
		}
		standings = append(standings, st)
	}

	return standings, nil
}

// CacheStandings replaces the cached standings of the competition.
func (s *Service) CacheStandings(ctx context.Context, e domain.EventRankingsCalculated) error {
	var (
		zs      = make([]redis.Z, 0, len(e.Standings))
		members = make(map[string]any, len(e.Standings))
	)

	for _, st := range e.Standings {
		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode standing: member=%s: %w", st.MemberID, err)
		}

		// Place keeps every tie-break of the ranking, rank sum alone does not.
		zs = append(zs, redis.Z{Score: float64(st.Place), Member: st.MemberID})
		members[st.MemberID] = b
	}

	standingsKey, membersKey := s.getStandingsKey(e.CompetitionID), s.getMembersKey(e.CompetitionID)

	// TODO: retry on error
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, standingsKey, membersKey)
		if len(zs) > 0 {
			p.ZAdd(ctx, standingsKey, zs...)
			p.HSet(ctx, membersKey, members)
		}
		for _, st := range e.Standings {
			p.SAdd(ctx, s.getMemberCompetitionsKey(st.MemberID), e.CompetitionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache standings: %w", err)
	}

	return s.schedulePublishStandings(ctx, e.CompetitionID)
}

// Evict drops everything cached for the competition.
func (s *Service) Evict(ctx context.Context, competitionID string) error {
	err := s.redis.Del(ctx,
		s.getStandingsKey(competitionID),
		s.getMembersKey(competitionID),
		s.getPublishTimeKey(competitionID),
		s.getPublishPendingKey(competitionID),
	).Err()
	if err != nil {
		return fmt.Errorf("evict standings: %w", err)
	}
	return nil
}

// EvictMember drops the cached standings of every competition the member was ranked in.
// Live viewers fall back to the stored ranks until the next recalculation.
func (s *Service) EvictMember(ctx context.Context, memberID string) error {
	key := s.getMemberCompetitionsKey(memberID)

	ids, err := s.redis.SMembers(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("get member competitions: %w", err)
	}

	for _, id := range ids {
		if err := s.Evict(ctx, id); err != nil {
			return err
		}
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("evict member: %w", err)
	}
	return nil
}

// Stop cancels pending trailing publishes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.trailing {
		t.Stop()
		delete(s.trailing, id)
	}
}

// schedulePublishStandings publishes at most one standings.updated event per competition
// and interval, however often ranks are recalculated. A recalculation that loses the
// race is not dropped: one trailing publish reads the cache once the interval is over.
func (s *Service) schedulePublishStandings(ctx context.Context, competitionID string) error {
	// Only one instance wins the key within the interval.
	ok, err := s.redis.SetNX(ctx, s.getPublishTimeKey(competitionID), time.Now().UnixMilli(), s.interval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if ok {
		return s.publishStandings(ctx, competitionID)
	}

	// Only one trailing publish per competition across instances.
	ok, err = s.redis.SetNX(ctx, s.getPublishPendingKey(competitionID), time.Now().UnixMilli(), 2*s.interval).Result()
	if err != nil {
		return fmt.Errorf("setnx pending: %w", err)
	}

	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	s.trailing[competitionID] = time.AfterFunc(s.interval, func() {
		s.publishTrailing(competitionID)
	})

	return nil
}

func (s *Service) publishTrailing(competitionID string) {
	s.mu.Lock()
	delete(s.trailing, competitionID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Restart the interval before the cache is read, a recalculation landing in between
	// schedules its own trailing publish.
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.getPublishTimeKey(competitionID), time.Now().UnixMilli(), s.interval)
		p.Del(ctx, s.getPublishPendingKey(competitionID))
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "leaderboard: reset publish interval failed", "competition_id", competitionID, "error", err)
		return
	}

	if err := s.publishStandings(ctx, competitionID); err != nil {
		slog.ErrorContext(ctx, "leaderboard: trailing publish failed", "competition_id", competitionID, "error", err)
	}
}

func (s *Service) publishStandings(ctx context.Context, competitionID string) error {
	standings, err := s.GetStandings(ctx, GetStandingsRequest{CompetitionID: competitionID})
	if errors.Is(err, errors.CodeNotFound) {
		standings = []domain.OverallStanding{}
	} else if err != nil {
		return fmt.Errorf("get standings failed: competition=%s: %w", competitionID, err)
	}

	s.eb.Publish(ctx, domain.EventStandingsUpdated{
		CompetitionID: competitionID,
		Standings:     standings,
	})

	return nil
}

func (s *Service) getStandingsKey(competition string) string {
	return fmt.Sprintf("%s:%s:standings", s.prefix, competition)
}

func (s *Service) getMembersKey(competition string) string {
	return fmt.Sprintf("%s:%s:members", s.prefix, competition)
}

func (s *Service) getPublishTimeKey(competition string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, competition)
}

func (s *Service) getPublishPendingKey(competition string) string {
	return fmt.Sprintf("%s:%s:pending", s.prefix, competition)
}

func (s *Service) getMemberCompetitionsKey(member string) string {
	return fmt.Sprintf("%s:member:%s", s.prefix, member)
}
