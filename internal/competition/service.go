package competition

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/event"
	"github.com/victornm/botm/internal/ranking"
	"github.com/victornm/botm/internal/telemetry"
)

// Store persists competitions and their entries.
type Store interface {
	InsertCompetition(ctx context.Context, c *domain.Competition) error
	GetCompetition(ctx context.Context, id string) (*domain.Competition, error)
	ListCompetitions(ctx context.Context, statuses []domain.CompetitionStatus) ([]domain.Competition, error)
	CountCompetitions(ctx context.Context, statuses []domain.CompetitionStatus) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.CompetitionStatus) error
	DeleteCompetition(ctx context.Context, id string) error

	// InsertEntries creates all entries atomically. It fails with CodeAlreadyExists
	// when the member already has any entry in the competition.
	InsertEntries(ctx context.Context, entries []domain.Entry) error
	// UpsertScore writes the score of the (competition, member, category) triple.
	UpsertScore(ctx context.Context, e *domain.Entry) error
	// ListEntries returns the entries of a competition with their member summary.
	ListEntries(ctx context.Context, competitionID string) ([]domain.Entry, error)
	// UpdateRanks overwrites the rank of every given entry in a single transaction.
	UpdateRanks(ctx context.Context, competitionID string, entries []domain.Entry) error
}

type Config struct {
	Store    Store
	EventBus *event.Bus
	Now      func() time.Time
}

type Service struct {
	store Store
	eb    *event.Bus
	now   func() time.Time
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store: c.Store,
		eb:    c.EventBus,
		now:   now,
	}
}

type CreateCompetitionRequest struct {
	Name string
	Date time.Time
	// Comma separated category lists, empty means the defaults apply.
	MaleCategories   string
	FemaleCategories string
}

// CreateCompetition creates an upcoming competition.
func (s *Service) CreateCompetition(ctx context.Context, req CreateCompetitionRequest) (*domain.Competition, error) {
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 3 {
		return nil, errors.InvalidArgument("competition name must have at least 3 characters")
	}
	if req.Date.IsZero() {
		return nil, errors.InvalidArgument("competition date is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate competition ID: %w", err)
	}

	c := &domain.Competition{
		CompetitionID:    id.String(),
		Name:             name,
		Date:             req.Date,
		Status:           domain.StatusUpcoming,
		MaleCategories:   SplitCategories(req.MaleCategories),
		FemaleCategories: SplitCategories(req.FemaleCategories),
	}

	if err := s.store.InsertCompetition(ctx, c); err != nil {
		return nil, errors.Failed(err, "create competition")
	}

	return c, nil
}

type ListCompetitionsRequest struct {
	// Statuses filters the result, empty means all competitions.
	Statuses []domain.CompetitionStatus
}

// ListCompetitions returns competitions ordered by date.
func (s *Service) ListCompetitions(ctx context.Context, req ListCompetitionsRequest) ([]domain.Competition, error) {
	cs, err := s.store.ListCompetitions(ctx, req.Statuses)
	if err != nil {
		return nil, errors.Failed(err, "list competitions")
	}
	return cs, nil
}

// ListUpcoming returns the competitions members can still register for.
func (s *Service) ListUpcoming(ctx context.Context) ([]domain.Competition, error) {
	return s.ListCompetitions(ctx, ListCompetitionsRequest{
		Statuses: []domain.CompetitionStatus{domain.StatusUpcoming, domain.StatusActive},
	})
}

func (s *Service) GetCompetition(ctx context.Context, id string) (*domain.Competition, error) {
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return nil, s.convert(err, "get competition")
	}
	return c, nil
}

type UpdateStatusRequest struct {
	CompetitionID string
	Status        domain.CompetitionStatus
}

// UpdateStatus sets the competition status. Any known status is accepted in any order.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Competition, error) {
	if !req.Status.Valid() {
		return nil, errors.InvalidArgument("unknown competition status: %q", req.Status)
	}

	c, err := s.GetCompetition(ctx, req.CompetitionID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateStatus(ctx, req.CompetitionID, req.Status); err != nil {
		return nil, s.convert(err, "update status")
	}

	from := c.Status
	c.Status = req.Status

	s.eb.Publish(ctx, domain.EventCompetitionStatusChanged{
		Competition: *c,
		From:        from,
	})

	return c, nil
}

// DeleteCompetition removes a competition together with its entries.
func (s *Service) DeleteCompetition(ctx context.Context, id string) error {
	if err := s.store.DeleteCompetition(ctx, id); err != nil {
		return s.convert(err, "delete competition")
	}

	s.eb.Publish(ctx, domain.EventCompetitionDeleted{CompetitionID: id})
	return nil
}

type RegisterRequest struct {
	CompetitionID string
	Member        domain.Member
	// Categories to enter, empty means the gender defaults.
	Categories []string
}

// Register enters a member in a competition, one entry per category with a zero score.
// Registration is all or nothing: a member with any entry in the competition is
// already registered and nothing is created.
func (s *Service) Register(ctx context.Context, req RegisterRequest) ([]domain.Entry, error) {
	c, err := s.GetCompetition(ctx, req.CompetitionID)
	if err != nil {
		return nil, err
	}

	if c.Status == domain.StatusCompleted {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("competition is completed: id=%s", c.CompetitionID))
	}

	categories := normalizeCategories(req.Categories)
	if len(categories) == 0 {
		categories = s.defaultCategories(c, req.Member.Gender)
	}

	entries := make([]domain.Entry, 0, len(categories))
	for _, cat := range categories {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate entry ID: %w", err)
		}

		entries = append(entries, domain.Entry{
			EntryID:       id.String(),
			CompetitionID: c.CompetitionID,
			MemberID:      req.Member.MemberID,
			Category:      cat,
			Score:         decimal.Zero,
		})
	}

	if err := s.store.InsertEntries(ctx, entries); err != nil {
		if errors.Is(err, errors.CodeAlreadyExists) {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("already registered for this competition"),
				errors.WithCause(err),
			)
		}
		return nil, s.convert(err, "register for competition")
	}

	telemetry.CountRegistration()
	s.eb.Publish(ctx, domain.EventCompetitionRegistered{
		CompetitionID: c.CompetitionID,
		MemberID:      req.Member.MemberID,
		Categories:    categories,
	})

	return entries, nil
}

func (s *Service) defaultCategories(c *domain.Competition, g domain.Gender) []string {
	switch {
	case g == domain.GenderFemale && len(c.FemaleCategories) > 0:
		return c.FemaleCategories
	case g != domain.GenderFemale && len(c.MaleCategories) > 0:
		return c.MaleCategories
	}
	return ranking.DefaultCategories(g)
}

type EnterScoreRequest struct {
	CompetitionID string
	MemberID      string
	Category      string
	Score         decimal.Decimal
}

// EnterScore records a member's score in a category. Scoring the same triple twice
// updates the existing entry.
func (s *Service) EnterScore(ctx context.Context, req EnterScoreRequest) (*domain.Entry, error) {
	category := strings.TrimSpace(req.Category)
	switch {
	case req.MemberID == "":
		return nil, errors.InvalidArgument("member is required")
	case category == "":
		return nil, errors.InvalidArgument("category is required")
	case req.Score.IsNegative():
		return nil, errors.InvalidArgument("score must not be negative")
	}

	if _, err := s.GetCompetition(ctx, req.CompetitionID); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate entry ID: %w", err)
	}

	e := &domain.Entry{
		EntryID:       id.String(),
		CompetitionID: req.CompetitionID,
		MemberID:      req.MemberID,
		Category:      category,
		Score:         req.Score,
		Scored:        true,
	}

	if err := s.store.UpsertScore(ctx, e); err != nil {
		return nil, s.convert(err, "enter score")
	}

	s.eb.Publish(ctx, domain.EventScoreEntered{Entry: *e})
	return e, nil
}

// CalculateRankings ranks every category of a competition and persists all ranks at once.
// Either every rank is written or none is.
func (s *Service) CalculateRankings(ctx context.Context, competitionID string) (_ []domain.OverallStanding, err error) {
	start := s.now()
	defer func() { telemetry.ObserveRankingCalculation(s.now().Sub(start), err) }()

	if _, err := s.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, competitionID)
	if err != nil {
		return nil, errors.Failed(err, "calculate rankings")
	}

	ranked := ranking.CategoryRanks(entries)
	if err := s.store.UpdateRanks(ctx, competitionID, ranked); err != nil {
		return nil, errors.Failed(err, "calculate rankings")
	}

	standings := ranking.OverallStandings(ranked)

	slog.InfoContext(ctx, "competition: rankings calculated",
		"competition_id", competitionID,
		"entries", len(ranked),
		"ranked_members", len(standings),
	)

	s.eb.Publish(ctx, domain.EventRankingsCalculated{
		CompetitionID: competitionID,
		Standings:     standings,
	})

	return standings, nil
}

// Leaderboard is the read model of a competition page.
type Leaderboard struct {
	Competition domain.Competition
	Categories  []domain.CategoryLeaderboard
	Standings   []domain.OverallStanding
}

func (s *Service) Leaderboard(ctx context.Context, competitionID string) (*Leaderboard, error) {
	var (
		c       *domain.Competition
		entries []domain.Entry
		eg      errgroup.Group
	)

	eg.Go(func() (err error) {
		c, err = s.GetCompetition(ctx, competitionID)
		return err
	})
	eg.Go(func() (err error) {
		entries, err = s.store.ListEntries(ctx, competitionID)
		if err != nil {
			return errors.Failed(err, "get leaderboard")
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Leaderboard{
		Competition: *c,
		Categories:  ranking.Leaderboards(entries),
		Standings:   ranking.OverallStandings(entries),
	}, nil
}

// IsRegistered reports whether the member has any entry in the competition.
func (s *Service) IsRegistered(ctx context.Context, competitionID, memberID string) (bool, error) {
	entries, err := s.store.ListEntries(ctx, competitionID)
	if err != nil {
		return false, errors.Failed(err, "list entries")
	}

	for _, e := range entries {
		if e.MemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}

// HallOfFame returns the male and female winners of every completed competition,
// most recent first.
func (s *Service) HallOfFame(ctx context.Context) ([]domain.HallOfFameEntry, error) {
	cs, err := s.store.ListCompetitions(ctx, []domain.CompetitionStatus{domain.StatusCompleted})
	if err != nil {
		return nil, errors.Failed(err, "get hall of fame")
	}

	out := make([]domain.HallOfFameEntry, 0, len(cs))
	for i := len(cs) - 1; i >= 0; i-- {
		entries, err := s.store.ListEntries(ctx, cs[i].CompetitionID)
		if err != nil {
			return nil, errors.Failed(err, "get hall of fame")
		}

		if h, ok := ranking.HallOfFame(cs[i], ranking.OverallStandings(entries)); ok {
			out = append(out, h)
		}
	}

	return out, nil
}

type Counts struct {
	Total    int
	Upcoming int
}

func (s *Service) Counts(ctx context.Context) (*Counts, error) {
	var (
		c  Counts
		eg errgroup.Group
	)

	eg.Go(func() (err error) {
		c.Total, err = s.store.CountCompetitions(ctx, nil)
		return err
	})
	eg.Go(func() (err error) {
		c.Upcoming, err = s.store.CountCompetitions(ctx, []domain.CompetitionStatus{domain.StatusUpcoming})
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, errors.Failed(err, "count competitions")
	}
	return &c, nil
}

// convert keeps coded store errors and turns anything else into a generic failure.
func (*Service) convert(err error, op string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	return errors.Failed(err, op)
}

// SplitCategories parses a comma separated category list.
func SplitCategories(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return normalizeCategories(strings.Split(s, ","))
}

// normalizeCategories trims labels and drops empty and duplicate ones. Case is kept.
func normalizeCategories(in []string) []string {
	var (
		out  = make([]string, 0, len(in))
		seen = make(map[string]struct{}, len(in))
	)
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
