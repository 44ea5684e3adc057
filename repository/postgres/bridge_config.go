package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
)

type bridgeConfigRepo basePostgresRepo

func NewBridgeConfigRepo(table string, db db.Queryer) entity.BridgeConfigRepo {
	return (*bridgeConfigRepo)(newBasePostgresRepo(table, db))
}

func (r *bridgeConfigRepo) Get(ctx context.Context, contract antelope.Name) (*entity.BridgeConfig, error) {
	q, args, err := r.psql.Select("*").
		From(r.table).
		Where(sq.Eq{"contract": contract.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	cfg := new(entity.BridgeConfig)
	err = r.db.GetContext(ctx, cfg, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("can't get bridge config: %w", err)
	}
	return cfg, nil
}

func (r *bridgeConfigRepo) Insert(ctx context.Context, cfg *entity.BridgeConfig) error {
	q, args, err := r.psql.Insert(r.table).
		Columns("contract", "bridge_address", "bridge_scope", "register_address", "register_scope", "admin", "version").
		Values(cfg.Contract.String(), cfg.BridgeAddress, cfg.BridgeScope, cfg.RegisterAddress, cfg.RegisterScope, cfg.Admin.String(), cfg.Version).
		Suffix("ON CONFLICT (contract) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert bridge config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't get inserted rows count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bridge config of %s: %w", cfg.Contract, entity.ErrAlreadyExists)
	}
	return nil
}

func (r *bridgeConfigRepo) Update(ctx context.Context, cfg *entity.BridgeConfig) error {
	q, args, err := r.psql.Update(r.table).
		SetMap(map[string]interface{}{
			"bridge_address":   cfg.BridgeAddress,
			"bridge_scope":     cfg.BridgeScope,
			"register_address": cfg.RegisterAddress,
			"register_scope":   cfg.RegisterScope,
			"admin":            cfg.Admin.String(),
			"version":          cfg.Version,
			"updated_at":       sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"contract": cfg.Contract.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update bridge config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't get updated rows count: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
