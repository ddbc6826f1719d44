package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"reunite/internal/cases/models"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/platform/tx"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var caseColumns = []string{
	"id", "kind", "status", "full_name", "age", "gender", "city", "area",
	"description", "last_seen_or_found_on", "contact_name", "contact_phone",
	"contact_email", "reporter_id", "verified_by", "verified_at",
	"rejection_reason", "matched_with_case_id", "cancelled_at",
	"created_at", "updated_at",
}

// PostgresStore persists cases in PostgreSQL. Queries join a transaction from
// context when one is present.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	query, args, err := psql.Insert("cases").
		Columns(caseColumns...).
		Values(caseValues(c)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert case: %w", err)
	}
	if _, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query, args, err := psql.Select(caseColumns...).
		From("cases").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select case: %w", err)
	}
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, args...)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByKindAndStatus(ctx context.Context, kind models.CaseKind, status models.CaseStatus) ([]*models.Case, error) {
	return s.list(ctx, sq.Eq{"kind": string(kind), "status": string(status)})
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error) {
	return s.list(ctx, sq.Eq{"status": string(status)})
}

func (s *PostgresStore) list(ctx context.Context, where sq.Eq) ([]*models.Case, error) {
	query, args, err := psql.Select(caseColumns...).
		From("cases").
		Where(where).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list cases: %w", err)
	}
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Case) error {
	query, args, err := psql.Update("cases").
		SetMap(map[string]any{
			"status":                string(c.Status),
			"full_name":             c.FullName,
			"age":                   nullInt(c.Age),
			"gender":                string(c.Gender),
			"city":                  c.City,
			"area":                  c.Area,
			"description":           c.Description,
			"last_seen_or_found_on": nullTime(c.LastSeenOrFoundOn),
			"contact_name":          c.ContactName,
			"contact_phone":         c.ContactPhone,
			"contact_email":         c.ContactEmail,
			"verified_by":           nullString(c.VerifiedBy),
			"verified_at":           nullTime(c.VerifiedAt),
			"rejection_reason":      nullString(c.RejectionReason),
			"matched_with_case_id":  nullUUID(c.MatchedWithCaseID),
			"cancelled_at":          nullTime(c.CancelledAt),
			"updated_at":            c.UpdatedAt,
		}).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update case: %w", err)
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c               models.Case
		age             sql.NullInt64
		area            sql.NullString
		lastSeen        sql.NullTime
		verifiedBy      sql.NullString
		verifiedAt      sql.NullTime
		rejectionReason sql.NullString
		matchedWith     sql.NullString
		cancelledAt     sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Kind, &c.Status, &c.FullName, &age, &c.Gender, &c.City,
		&area, &c.Description, &lastSeen, &c.ContactName, &c.ContactPhone,
		&c.ContactEmail, &c.ReporterID, &verifiedBy, &verifiedAt,
		&rejectionReason, &matchedWith, &cancelledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		c.Age = &v
	}
	if area.Valid {
		c.Area = area.String
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		c.LastSeenOrFoundOn = &t
	}
	if verifiedBy.Valid {
		c.VerifiedBy = &verifiedBy.String
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.VerifiedAt = &t
	}
	if rejectionReason.Valid {
		c.RejectionReason = &rejectionReason.String
	}
	if matchedWith.Valid {
		id, err := uuid.Parse(matchedWith.String)
		if err != nil {
			return nil, fmt.Errorf("parse matched_with_case_id: %w", err)
		}
		c.MatchedWithCaseID = &id
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		c.CancelledAt = &t
	}
	return &c, nil
}

func caseValues(c *models.Case) []any {
	return []any{
		c.ID, string(c.Kind), string(c.Status), c.FullName, nullInt(c.Age),
		string(c.Gender), c.City, c.Area, c.Description,
		nullTime(c.LastSeenOrFoundOn), c.ContactName, c.ContactPhone,
		c.ContactEmail, c.ReporterID, nullString(c.VerifiedBy),
		nullTime(c.VerifiedAt), nullString(c.RejectionReason),
		nullUUID(c.MatchedWithCaseID), nullTime(c.CancelledAt),
		c.CreatedAt, c.UpdatedAt,
	}
}
