package workout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertWorkout(ctx context.Context, w *domain.Workout) error {
	const stmt = `
INSERT INTO workouts (workout_id, title, description, body_part, difficulty, content, image_url, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := s.db.Exec(ctx, stmt, w.WorkoutID, w.Title, w.Description, w.BodyPart, w.Difficulty, w.Content, w.ImageURL, w.CreateTime)
	if err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	const stmt = `
SELECT workout_id, title, description, body_part, difficulty, content, image_url, create_time
FROM workouts
ORDER BY create_time DESC;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Workout, error) {
		var w domain.Workout
		err := r.Scan(&w.WorkoutID, &w.Title, &w.Description, &w.BodyPart, &w.Difficulty, &w.Content, &w.ImageURL, &w.CreateTime)
		return w, err
	})
}

func (s *PostgresStore) DeleteWorkout(ctx context.Context, id string) error {
	const stmt = `DELETE FROM workouts WHERE workout_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("workout not found: id=%s", id)
	}
	return nil
}

func (s *PostgresStore) CountWorkouts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM workouts;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workouts: %w", err)
	}
	return n, nil
}
