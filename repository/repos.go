package repository

import (
	"context"
	"fmt"

	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/repository/postgres"
)

type Repo struct {
	Requests entity.LedgerRepo
	Refunds  entity.LedgerRepo
	Configs  entity.BridgeConfigRepo
}

func (r *Repo) Ledger(kind entity.LedgerKind) (entity.LedgerRepo, error) {
	switch kind {
	case entity.LedgerRequests:
		return r.Requests, nil
	case entity.LedgerRefunds:
		return r.Refunds, nil
	default:
		return nil, fmt.Errorf("unknown ledger kind %q", kind)
	}
}

// Store gives access to the repositories, either directly or within a
// transaction.
type Store interface {
	Repo() *Repo
	// WithinTransaction runs fn against repositories sharing one
	// transaction. Nothing fn wrote is kept when it fails.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo *Repo) error) error
}

func NewRepo(q db.Queryer) *Repo {
	return &Repo{
		Requests: postgres.NewLedgerRepo("bridge_requests", q),
		Refunds:  postgres.NewLedgerRepo("bridge_refunds", q),
		Configs:  postgres.NewBridgeConfigRepo("bridge_config", q),
	}
}

type postgresStore struct {
	db   *db.DB
	repo *Repo
}

func NewPostgresStore(conn *db.DB) Store {
	return &postgresStore{
		db:   conn,
		repo: NewRepo(conn),
	}
}

func (s *postgresStore) Repo() *Repo {
	return s.repo
}

// storeLockKey serializes bridge transactions of all processes sharing the
// database.
const storeLockKey int64 = 0x627269646765

func (s *postgresStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo *Repo) error) error {
	return s.db.RunInLockedTx(ctx, storeLockKey, func(ctx context.Context, q db.Queryer) error {
		return fn(ctx, NewRepo(q))
	})
}
