package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
)

type ledgerRepo basePostgresRepo

func NewLedgerRepo(table string, db db.Queryer) entity.LedgerRepo {
	return (*ledgerRepo)(newBasePostgresRepo(table, db))
}

func (r *ledgerRepo) Insert(ctx context.Context, entry *entity.LedgerEntry) error {
	q, args, err := r.psql.Insert(r.table).
		Columns("call_id", "timestamp").
		Values(entry.CallID, entry.Timestamp).
		Suffix("ON CONFLICT (call_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	err = r.db.GetContext(ctx, &entry.ID, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("ledger entry %s: %w", entry.CallID, entity.ErrAlreadyExists)
		}
		return fmt.Errorf("can't insert ledger entry: %w", err)
	}
	return nil
}

func (r *ledgerRepo) ExistsByCallID(ctx context.Context, callID common.Hash) (bool, error) {
	q, args, err := r.psql.Select("1").
		Prefix("SELECT EXISTS (").
		From(r.table).
		Where(sq.Eq{"call_id": callID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("can't build query: %w", err)
	}
	var exists bool
	err = r.db.GetContext(ctx, &exists, q, args...)
	if err != nil {
		return false, fmt.Errorf("can't check ledger entry: %w", err)
	}
	return exists, nil
}

func (r *ledgerRepo) FindByCallID(ctx context.Context, callID common.Hash) (*entity.LedgerEntry, error) {
	q, args, err := r.psql.Select("*").
		From(r.table).
		Where(sq.Eq{"call_id": callID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	entry := new(entity.LedgerEntry)
	err = r.db.GetContext(ctx, entry, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("can't get ledger entry by call_id: %w", err)
	}
	return entry, nil
}

func (r *ledgerRepo) DeleteOlderThan(ctx context.Context, threshold time.Time, limit uint64) (uint64, error) {
	sub := sq.Select("id").
		From(r.table).
		Where(sq.Lt{"timestamp": threshold}).
		OrderBy("timestamp", "id").
		Limit(limit)
	q, args, err := r.psql.Delete(r.table).
		Where(sq.Expr("id IN (?)", sub)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't delete ledger entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("can't get deleted rows count: %w", err)
	}
	return uint64(n), nil
}

func (r *ledgerRepo) FindAll(ctx context.Context, limit uint64) ([]*entity.LedgerEntry, error) {
	q, args, err := r.psql.Select("*").
		From(r.table).
		OrderBy("id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	entries := make([]*entity.LedgerEntry, 0, 16)
	err = r.db.SelectContext(ctx, &entries, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get ledger entries: %w", err)
	}
	return entries, nil
}
