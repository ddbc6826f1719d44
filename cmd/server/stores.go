package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	casemodels "reunite/internal/cases/models"
	casestore "reunite/internal/cases/store"
	contactmodels "reunite/internal/contact/models"
	contactstore "reunite/internal/contact/store"
	matchmodels "reunite/internal/matching/models"
	matchstore "reunite/internal/matching/store"
	"reunite/internal/platform/config"
	"reunite/internal/platform/postgres"
	"reunite/pkg/platform/tx"
)

// caseStorage is the union of the store methods the case and matching
// services consume, satisfied by both the memory and postgres stores.
type caseStorage interface {
	Create(ctx context.Context, c *casemodels.Case) error
	FindByID(ctx context.Context, id uuid.UUID) (*casemodels.Case, error)
	FindByKindAndStatus(ctx context.Context, kind casemodels.CaseKind, status casemodels.CaseStatus) ([]*casemodels.Case, error)
	ListByStatus(ctx context.Context, status casemodels.CaseStatus) ([]*casemodels.Case, error)
	Update(ctx context.Context, c *casemodels.Case) error
}

type matchStorage interface {
	CreateIfPairAvailable(ctx context.Context, m *matchmodels.CaseMatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*matchmodels.CaseMatch, error)
	ListPending(ctx context.Context) ([]*matchmodels.CaseMatch, error)
	ResolveIfPending(ctx context.Context, id uuid.UUID, status matchmodels.MatchStatus, adminID string, now time.Time) (*matchmodels.CaseMatch, error)
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

type contactStorage interface {
	Create(ctx context.Context, r *contactmodels.ContactRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*contactmodels.ContactRequest, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*contactmodels.ContactRequest, error)
	Update(ctx context.Context, r *contactmodels.ContactRequest) error
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

type stores struct {
	cases    caseStorage
	matches  matchStorage
	contacts contactStorage
	tx       tx.StoreTx
	close    func()
}

// buildStores selects the persistence backend: postgres when a DSN is
// configured, in-memory otherwise.
func buildStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.DSN == "" {
		return &stores{
			cases:    casestore.NewInMemoryStore(),
			matches:  matchstore.NewInMemoryStore(),
			contacts: contactstore.NewInMemoryStore(),
			tx:       tx.NewNoopStoreTx(),
			close:    func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &stores{
		cases:    casestore.NewPostgres(db),
		matches:  matchstore.NewPostgres(db),
		contacts: contactstore.NewPostgres(db),
		tx:       tx.NewSQLStoreTx(db),
		close:    func() { _ = db.Close() },
	}, nil
}
