package workout

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

type Store interface {
	InsertWorkout(ctx context.Context, w *domain.Workout) error
	// ListWorkouts returns workouts newest first.
	ListWorkouts(ctx context.Context) ([]domain.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
	CountWorkouts(ctx context.Context) (int, error)
}

type Config struct {
	Store Store
	Now   func() time.Time
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store: c.Store,
		now:   now,
	}
}

type CreateWorkoutRequest struct {
	Title       string
	Description string
	BodyPart    domain.BodyPart
	Difficulty  domain.Difficulty
	Content     string
	ImageURL    string
}

func (s *Service) CreateWorkout(ctx context.Context, req CreateWorkoutRequest) (*domain.Workout, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	content := strings.TrimSpace(req.Content)

	switch {
	case len([]rune(title)) < 3:
		return nil, errors.InvalidArgument("title must be at least 3 characters")
	case len([]rune(description)) < 10:
		return nil, errors.InvalidArgument("description must be at least 10 characters")
	case len([]rune(content)) < 20:
		return nil, errors.InvalidArgument("content must be at least 20 characters")
	case !req.BodyPart.Valid():
		return nil, errors.InvalidArgument("unknown body part: %q", req.BodyPart)
	case !req.Difficulty.Valid():
		return nil, errors.InvalidArgument("unknown difficulty: %q", req.Difficulty)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate workout ID: %w", err)
	}

	w := &domain.Workout{
		WorkoutID:   id.String(),
		Title:       title,
		Description: description,
		BodyPart:    req.BodyPart,
		Difficulty:  req.Difficulty,
		Content:     content,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		CreateTime:  s.now(),
	}

	if err := s.store.InsertWorkout(ctx, w); err != nil {
		return nil, errors.Failed(err, "create workout")
	}

	return w, nil
}

func (s *Service) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	ws, err := s.store.ListWorkouts(ctx)
	if err != nil {
		return nil, errors.Failed(err, "list workouts")
	}
	return ws, nil
}

func (s *Service) DeleteWorkout(ctx context.Context, id string) error {
	if err := s.store.DeleteWorkout(ctx, id); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			return e
		}
		return errors.Failed(err, "delete workout")
	}
	return nil
}

func (s *Service) CountWorkouts(ctx context.Context) (int, error) {
	n, err := s.store.CountWorkouts(ctx)
	if err != nil {
		return 0, errors.Failed(err, "count workouts")
	}
	return n, nil
}
