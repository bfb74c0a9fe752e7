package competition

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

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertCompetition(ctx context.Context, c *domain.Competition) error {
	const stmt = `
INSERT INTO competitions (competition_id, name, date, status, male_categories, female_categories)
VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := s.db.Exec(ctx, stmt, c.CompetitionID, c.Name, c.Date, c.Status, nonNil(c.MaleCategories), nonNil(c.FemaleCategories))
	if err != nil {
		return fmt.Errorf("insert competition: %w", err)
	}
	return nil
}

const selectCompetition = `
SELECT c.competition_id, c.name, c.date, c.status, c.male_categories, c.female_categories,
	(SELECT COUNT(*) FROM entries e WHERE e.competition_id = c.competition_id) AS entry_count
FROM competitions c`

func (s *PostgresStore) GetCompetition(ctx context.Context, id string) (*domain.Competition, error) {
	rows, err := s.db.Query(ctx, selectCompetition+` WHERE c.competition_id = $1;`, id)
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}

	c, err := pgx.CollectOneRow(rows, scanCompetition)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("competition not found: id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}

	return &c, nil
}

func (s *PostgresStore) ListCompetitions(ctx context.Context, statuses []domain.CompetitionStatus) ([]domain.Competition, error) {
	rows, err := s.db.Query(ctx, selectCompetition+`
WHERE cardinality($1::text[]) = 0 OR c.status = ANY($1::text[])
ORDER BY c.date ASC;`, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	return pgx.CollectRows(rows, scanCompetition)
}

func (s *PostgresStore) CountCompetitions(ctx context.Context, statuses []domain.CompetitionStatus) (int, error) {
	const stmt = `
SELECT COUNT(*) FROM competitions
WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[]);`

	var n int
	if err := s.db.QueryRow(ctx, stmt, statusStrings(statuses)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count competitions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status domain.CompetitionStatus) error {
	const stmt = `UPDATE competitions SET status = $2 WHERE competition_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("competition not found: id=%s", id)
	}
	return nil
}

// DeleteCompetition relies on ON DELETE CASCADE to remove the entries.
func (s *PostgresStore) DeleteCompetition(ctx context.Context, id string) error {
	const stmt = `DELETE FROM competitions WHERE competition_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete competition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("competition not found: id=%s", id)
	}
	return nil
}

func (s *PostgresStore) InsertEntries(ctx context.Context, entries []domain.Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}

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
		lockStmt   = `SELECT 1 FROM competitions WHERE competition_id = $1 FOR UPDATE;`
		existsStmt = `SELECT EXISTS (SELECT 1 FROM entries WHERE competition_id = $1 AND member_id = $2);`
		insStmt    = `
INSERT INTO entries (entry_id, competition_id, member_id, category, score, scored)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	first := entries[0]

	// Serializes registrations of the same competition.
	if _, err = tx.Exec(ctx, lockStmt, first.CompetitionID); err != nil {
		return fmt.Errorf("lock competition: %w", err)
	}

	var exists bool
	if err = tx.QueryRow(ctx, existsStmt, first.CompetitionID, first.MemberID).Scan(&exists); err != nil {
		return fmt.Errorf("check registration: %w", err)
	}
	if exists {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("member already registered: competition=%s member=%s", first.CompetitionID, first.MemberID))
	}

	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(insStmt, e.EntryID, e.CompetitionID, e.MemberID, e.Category, e.Score, e.Scored)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return mapConstraint(fmt.Errorf("insert entries: %w", err))
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) UpsertScore(ctx context.Context, e *domain.Entry) error {
	const stmt = `
INSERT INTO entries (entry_id, competition_id, member_id, category, score, scored)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (competition_id, member_id, category)
DO UPDATE SET score = EXCLUDED.score, scored = TRUE
RETURNING entry_id, rank;`

	err := s.db.QueryRow(ctx, stmt, e.EntryID, e.CompetitionID, e.MemberID, e.Category, e.Score).Scan(&e.EntryID, &e.Rank)
	if err != nil {
		return mapConstraint(fmt.Errorf("upsert score: %w", err))
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, competitionID string) ([]domain.Entry, error) {
	const stmt = `
SELECT e.entry_id, e.competition_id, e.member_id, e.category, e.score, e.scored, e.rank,
	m.name, m.gender, m.avatar_url,
	(SELECT weight FROM measurements WHERE member_id = e.member_id ORDER BY date DESC LIMIT 1)
FROM entries e
JOIN members m ON m.member_id = e.member_id
WHERE e.competition_id = $1
ORDER BY e.category ASC, e.score DESC, e.member_id ASC;`

	rows, err := s.db.Query(ctx, stmt, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Entry, error) {
		var (
			e domain.Entry
			m domain.MemberSummary
		)
		if err := r.Scan(&e.EntryID, &e.CompetitionID, &e.MemberID, &e.Category, &e.Score, &e.Scored, &e.Rank,
			&m.Name, &m.Gender, &m.AvatarURL, &m.LatestWeight); err != nil {
			return domain.Entry{}, err
		}
		m.MemberID = e.MemberID
		e.Member = &m
		return e, nil
	})
}

func (s *PostgresStore) UpdateRanks(ctx context.Context, competitionID string, entries []domain.Entry) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const stmt = `UPDATE entries SET rank = $3 WHERE entry_id = $1 AND competition_id = $2;`

	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(stmt, e.EntryID, competitionID, e.Rank)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("update ranks: %w", err)
	}

	return tx.Commit(ctx)
}

func scanCompetition(r pgx.CollectableRow) (domain.Competition, error) {
	var c domain.Competition
	err := r.Scan(&c.CompetitionID, &c.Name, &c.Date, &c.Status, &c.MaleCategories, &c.FemaleCategories, &c.EntryCount)
	return c, err
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return errors.New(errors.CodeAlreadyExists, errors.WithCause(err))
	case codeForeignKeyViolation:
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("competition or member not found"),
			errors.WithCause(err),
		)
	}
	return err
}

func statusStrings(statuses []domain.CompetitionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
