package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/repository/postgres"
)

type rowsAffected int64

func (r rowsAffected) LastInsertId() (int64, error) { return 0, nil }
func (r rowsAffected) RowsAffected() (int64, error) { return int64(r), nil }

// recorder captures the last statement and answers with canned results.
type recorder struct {
	query  string
	args   []interface{}
	getErr error
	id     uint64
	rows   int64
}

func (r *recorder) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.query, r.args = query, args
	return rowsAffected(r.rows), nil
}

func (r *recorder) GetContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	r.query, r.args = query, args
	if r.getErr != nil {
		return r.getErr
	}
	if id, ok := dest.(*uint64); ok {
		*id = r.id
	}
	return nil
}

func (r *recorder) SelectContext(_ context.Context, _ interface{}, query string, args ...interface{}) error {
	r.query, r.args = query, args
	return nil
}

var _ db.Queryer = (*recorder)(nil)

func TestLedgerRepo_Insert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	callID := common.HexToHash("0x01")

	t.Run("should return the generated id", func(t *testing.T) {
		q := &recorder{id: 7}
		entry := &entity.LedgerEntry{CallID: callID, Timestamp: time.Unix(1700000000, 0)}
		require.NoError(t, postgres.NewLedgerRepo("bridge_requests", q).Insert(ctx, entry))
		require.Equal(t, uint64(7), entry.ID)
		require.Contains(t, q.query, "INSERT INTO bridge_requests (call_id,timestamp) VALUES ($1,$2)")
		require.Contains(t, q.query, "ON CONFLICT (call_id) DO NOTHING RETURNING id")
	})

	t.Run("should report a conflicting call id", func(t *testing.T) {
		q := &recorder{getErr: db.ErrNotFound}
		err := postgres.NewLedgerRepo("bridge_refunds", q).Insert(ctx, &entity.LedgerEntry{CallID: callID})
		require.ErrorIs(t, err, entity.ErrAlreadyExists)
	})
}

func TestLedgerRepo_DeleteOlderThan(t *testing.T) {
	t.Parallel()

	q := &recorder{rows: 3}
	threshold := time.Unix(1700000000, 0)
	n, err := postgres.NewLedgerRepo("bridge_refunds", q).DeleteOlderThan(context.Background(), threshold, 15)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	require.Contains(t, q.query, "DELETE FROM bridge_refunds WHERE id IN (SELECT id FROM bridge_refunds WHERE timestamp < $1")
	require.Contains(t, q.query, "LIMIT 15")
	require.Equal(t, []interface{}{threshold}, q.args)
}

func TestBridgeConfigRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &entity.BridgeConfig{Contract: "token.brdg", Admin: "admin.brdg", Version: "1"}

	t.Run("should report an existing config", func(t *testing.T) {
		q := &recorder{rows: 0}
		err := postgres.NewBridgeConfigRepo("bridge_config", q).Insert(ctx, cfg)
		require.ErrorIs(t, err, entity.ErrAlreadyExists)
	})

	t.Run("should report a missing config on update", func(t *testing.T) {
		q := &recorder{rows: 0}
		err := postgres.NewBridgeConfigRepo("bridge_config", q).Update(ctx, cfg)
		require.ErrorIs(t, err, db.ErrNotFound)
		require.Contains(t, q.query, "UPDATE bridge_config SET")
		require.Contains(t, q.query, "WHERE contract = $")
	})

	t.Run("should pass not found through on get", func(t *testing.T) {
		q := &recorder{getErr: db.ErrNotFound}
		_, err := postgres.NewBridgeConfigRepo("bridge_config", q).Get(ctx, "token.brdg")
		require.ErrorIs(t, err, db.ErrNotFound)
		require.Equal(t, []interface{}{"token.brdg"}, q.args)
	})
}
