package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"reunite/internal/matching/models"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/platform/tx"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var matchColumns = []string{
	"id", "missing_case_id", "found_case_id", "score", "status",
	"confirmed_by", "confirmed_at", "created_at",
}

// PostgresStore persists case matches in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed match store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, m *models.CaseMatch) error {
	query, args, err := psql.Insert("case_matches").
		Columns(matchColumns...).
		Values(m.ID, m.MissingCaseID, m.FoundCaseID, m.Score, string(m.Status),
			nullString(m.ResolvedBy), nullTime(m.ResolvedAt), m.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert match: %w", err)
	}
	if _, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// CreateIfPairAvailable inserts the match unless a pending match already
// covers the unordered pair, in which case it returns
// sentinel.ErrDuplicatePair. Run it inside a transaction so the pair check
// and the insert share one.
func (s *PostgresStore) CreateIfPairAvailable(ctx context.Context, m *models.CaseMatch) error {
	exists, err := s.ExistsPendingForPair(ctx, m.MissingCaseID, m.FoundCaseID)
	if err != nil {
		return err
	}
	if exists {
		return sentinel.ErrDuplicatePair
	}
	return s.Create(ctx, m)
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.CaseMatch, error) {
	query, args, err := psql.Select(matchColumns...).
		From("case_matches").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select match: %w", err)
	}
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, args...)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.CaseMatch, error) {
	return s.list(ctx, sq.Eq{"status": string(models.StatusPending)})
}

func (s *PostgresStore) ListPendingByCase(ctx context.Context, caseID uuid.UUID) ([]*models.CaseMatch, error) {
	return s.list(ctx, sq.And{
		sq.Eq{"status": string(models.StatusPending)},
		sq.Or{sq.Eq{"missing_case_id": caseID}, sq.Eq{"found_case_id": caseID}},
	})
}

func (s *PostgresStore) list(ctx context.Context, where sq.Sqlizer) ([]*models.CaseMatch, error) {
	query, args, err := psql.Select(matchColumns...).
		From("case_matches").
		Where(where).
		OrderBy("score DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list matches: %w", err)
	}
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []*models.CaseMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

// ExistsPendingForPair checks both orientations of the unordered pair.
func (s *PostgresStore) ExistsPendingForPair(ctx context.Context, a, b uuid.UUID) (bool, error) {
	query, args, err := psql.Select("1").
		From("case_matches").
		Where(sq.And{
			sq.Eq{"status": string(models.StatusPending)},
			sq.Or{
				sq.Eq{"missing_case_id": a, "found_case_id": b},
				sq.Eq{"missing_case_id": b, "found_case_id": a},
			},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build pending pair check: %w", err)
	}
	var one int
	err = tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pending pair check: %w", err)
	}
	return true, nil
}

// ResolveIfPending transitions the match to the given terminal status with a
// conditional UPDATE, so concurrent resolutions have exactly one winner.
// Returns sentinel.ErrInvalidState when the match exists but is no longer
// pending.
func (s *PostgresStore) ResolveIfPending(ctx context.Context, id uuid.UUID, status models.MatchStatus, adminID string, now time.Time) (*models.CaseMatch, error) {
	query, args, err := psql.Update("case_matches").
		SetMap(map[string]any{
			"status":       string(status),
			"confirmed_by": adminID,
			"confirmed_at": now,
		}).
		Where(sq.Eq{"id": id, "status": string(models.StatusPending)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build resolve match: %w", err)
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("resolve match rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, sentinel.ErrInvalidState
	}
	return s.FindByID(ctx, id)
}

// RejectPendingByCase force-rejects every pending match touching the case in
// one statement.
func (s *PostgresStore) RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error) {
	query, args, err := psql.Update("case_matches").
		SetMap(map[string]any{
			"status":       string(models.StatusRejected),
			"confirmed_at": now,
		}).
		Where(sq.And{
			sq.Eq{"status": string(models.StatusPending)},
			sq.Or{sq.Eq{"missing_case_id": caseID}, sq.Eq{"found_case_id": caseID}},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reject pending matches: %w", err)
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reject pending matches: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject pending matches rows affected: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.CaseMatch, error) {
	var (
		m          models.CaseMatch
		resolvedBy sql.NullString
		resolvedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.MissingCaseID, &m.FoundCaseID, &m.Score, &m.Status,
		&resolvedBy, &resolvedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resolvedBy.Valid {
		v := resolvedBy.String
		m.ResolvedBy = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	return &m, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
