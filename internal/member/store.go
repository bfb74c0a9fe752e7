package member

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

const codeUniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertMember(ctx context.Context, m *domain.Member, initial *domain.Measurement) (err error) {
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
		insMemberStmt = `
INSERT INTO members (member_id, name, email, password_hash, gender, role, avatar_url, goals, training_duration, current_weight, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
		insMeasurementStmt = `
INSERT INTO measurements (measurement_id, member_id, date, weight, chest, arms, waist, thighs, neck, glutes, photo_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	)

	_, err = tx.Exec(ctx, insMemberStmt, m.MemberID, m.Name, m.Email, m.PasswordHash, m.Gender, m.Role,
		m.AvatarURL, m.Goals, m.TrainingDuration, m.CurrentWeight, m.CreateTime)
	if err != nil {
		return uniqueEmail(fmt.Errorf("insert member: %w", err))
	}

	_, err = tx.Exec(ctx, insMeasurementStmt, initial.MeasurementID, initial.MemberID, initial.Date, initial.Weight,
		initial.Chest, initial.Arms, initial.Waist, initial.Thighs, initial.Neck, initial.Glutes, initial.PhotoURL)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}

	return tx.Commit(ctx)
}

const selectMember = `
SELECT member_id, name, email, password_hash, gender, role, avatar_url, goals, training_duration, current_weight, create_time
FROM members`

func (s *PostgresStore) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	return s.getOne(ctx, selectMember+` WHERE member_id = $1;`, id)
}

func (s *PostgresStore) GetMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return s.getOne(ctx, selectMember+` WHERE email = $1;`, email)
}

func (s *PostgresStore) getOne(ctx context.Context, stmt, arg string) (*domain.Member, error) {
	rows, err := s.db.Query(ctx, stmt, arg)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}

	m, err := pgx.CollectOneRow(rows, scanMember)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &m, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.db.Query(ctx, selectMember+` ORDER BY create_time DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return pgx.CollectRows(rows, scanMember)
}

func (s *PostgresStore) CountMembers(ctx context.Context, role domain.Role) (int, error) {
	const stmt = `SELECT COUNT(*) FROM members WHERE role = $1;`

	var n int
	if err := s.db.QueryRow(ctx, stmt, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, m *domain.Member) error {
	const stmt = `
UPDATE members
SET name = $2, email = $3, gender = $4, goals = $5, training_duration = $6, current_weight = $7, avatar_url = $8
WHERE member_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, m.MemberID, m.Name, m.Email, m.Gender, m.Goals, m.TrainingDuration, m.CurrentWeight, m.AvatarURL)
	if err != nil {
		return uniqueEmail(fmt.Errorf("update profile: %w", err))
	}
	return affected(tag, m.MemberID)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, hash string) error {
	const stmt = `UPDATE members SET password_hash = $2 WHERE member_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affected(tag, id)
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	const stmt = `UPDATE members SET role = $2 WHERE member_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return affected(tag, id)
}

// DeleteMember relies on ON DELETE CASCADE for measurements and entries.
func (s *PostgresStore) DeleteMember(ctx context.Context, id string) error {
	const stmt = `DELETE FROM members WHERE member_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return affected(tag, id)
}

func scanMember(r pgx.CollectableRow) (domain.Member, error) {
	var m domain.Member
	err := r.Scan(&m.MemberID, &m.Name, &m.Email, &m.PasswordHash, &m.Gender, &m.Role,
		&m.AvatarURL, &m.Goals, &m.TrainingDuration, &m.CurrentWeight, &m.CreateTime)
	return m, err
}

func affected(tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() == 0 {
		return errors.NotFound("member not found: id=%s", id)
	}
	return nil
}

func uniqueEmail(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("email already in use"),
			errors.WithCause(err),
		)
	}
	return err
}
