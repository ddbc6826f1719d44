package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"reunite/internal/contact/models"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/platform/tx"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var requestColumns = []string{
	"id", "case_id", "requester_id", "requester_email", "requester_agent",
	"message", "status", "created_at", "responded_at",
}

// PostgresStore persists contact requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contact request store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.ContactRequest) error {
	var requesterID sql.NullString
	if r.RequesterID != "" {
		requesterID = sql.NullString{String: r.RequesterID, Valid: true}
	}
	query, args, err := psql.Insert("contact_requests").
		Columns(requestColumns...).
		Values(r.ID, r.CaseID, requesterID, r.RequesterEmail, r.RequesterAgent,
			r.Message, string(r.Status), r.CreatedAt, nullTime(r.RespondedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert contact request: %w", err)
	}
	if _, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert contact request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	query, args, err := psql.Select(requestColumns...).
		From("contact_requests").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select contact request: %w", err)
	}
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, args...)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find contact request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error) {
	return s.list(ctx, sq.Eq{"case_id": caseID})
}

func (s *PostgresStore) ListPendingByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error) {
	return s.list(ctx, sq.Eq{"case_id": caseID, "status": string(models.StatusPending)})
}

func (s *PostgresStore) list(ctx context.Context, where sq.Eq) ([]*models.ContactRequest, error) {
	query, args, err := psql.Select(requestColumns...).
		From("contact_requests").
		Where(where).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list contact requests: %w", err)
	}
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ContactRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.ContactRequest) error {
	query, args, err := psql.Update("contact_requests").
		SetMap(map[string]any{
			"status":       string(r.Status),
			"responded_at": nullTime(r.RespondedAt),
		}).
		Where(sq.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update contact request: %w", err)
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contact request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact request rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// RejectPendingByCase force-rejects every pending request on the case in one
// statement. Idempotent by construction: only pending rows qualify.
func (s *PostgresStore) RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error) {
	query, args, err := psql.Update("contact_requests").
		SetMap(map[string]any{
			"status":       string(models.StatusRejected),
			"responded_at": now,
		}).
		Where(sq.Eq{"case_id": caseID, "status": string(models.StatusPending)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reject pending contact requests: %w", err)
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reject pending contact requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject pending rows affected: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ContactRequest, error) {
	var (
		r           models.ContactRequest
		requesterID sql.NullString
		respondedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.CaseID, &requesterID, &r.RequesterEmail,
		&r.RequesterAgent, &r.Message, &r.Status, &r.CreatedAt, &respondedAt)
	if err != nil {
		return nil, err
	}
	if requesterID.Valid {
		r.RequesterID = requesterID.String
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		r.RespondedAt = &t
	}
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
