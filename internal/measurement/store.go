package measurement

import (
	"context"
	stderrors "errors"
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

func (s *PostgresStore) InsertMeasurement(ctx context.Context, m *domain.Measurement) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		updWeightStmt = `UPDATE members SET current_weight = $2 WHERE member_id = $1;`
		insStmt       = `
INSERT INTO measurements (measurement_id, member_id, date, weight, chest, arms, waist, thighs, neck, glutes, photo_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	)

	tag, err := tx.Exec(ctx, updWeightStmt, m.MemberID, m.Weight)
	if err != nil {
		return fmt.Errorf("update current weight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("member not found: id=%s", m.MemberID)
	}

	_, err = tx.Exec(ctx, insStmt, m.MeasurementID, m.MemberID, m.Date, m.Weight,
		m.Chest, m.Arms, m.Waist, m.Thighs, m.Neck, m.Glutes, m.PhotoURL)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListMeasurements(ctx context.Context, memberID string, limit int) ([]domain.Measurement, error) {
	const stmt = `
SELECT measurement_id, member_id, date, weight, chest, arms, waist, thighs, neck, glutes, photo_url
FROM measurements
WHERE member_id = $1
ORDER BY date DESC
LIMIT $2;`

	rows, err := s.db.Query(ctx, stmt, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Measurement, error) {
		var m domain.Measurement
		err := r.Scan(&m.MeasurementID, &m.MemberID, &m.Date, &m.Weight,
			&m.Chest, &m.Arms, &m.Waist, &m.Thighs, &m.Neck, &m.Glutes, &m.PhotoURL)
		return m, err
	})
}
