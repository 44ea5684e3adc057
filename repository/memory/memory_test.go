package memory_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/repository"
	"github.com/omni/tokenbridge-antelope/repository/memory"
)

func TestLedgerRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewStore().Repo().Requests
	now := time.Unix(1700000000, 0)

	first := &entity.LedgerEntry{CallID: common.HexToHash("0x01"), Timestamp: now}
	require.NoError(t, repo.Insert(ctx, first))
	require.Equal(t, uint64(1), first.ID)

	err := repo.Insert(ctx, &entity.LedgerEntry{CallID: common.HexToHash("0x01"), Timestamp: now})
	require.ErrorIs(t, err, entity.ErrAlreadyExists)

	exists, err := repo.ExistsByCallID(ctx, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = repo.ExistsByCallID(ctx, common.HexToHash("0x02"))
	require.NoError(t, err)
	require.False(t, exists)

	_, err = repo.FindByCallID(ctx, common.HexToHash("0x02"))
	require.ErrorIs(t, err, db.ErrNotFound)

	second := &entity.LedgerEntry{CallID: common.HexToHash("0x02"), Timestamp: now.Add(time.Second)}
	require.NoError(t, repo.Insert(ctx, second))
	all, err := repo.FindAll(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []*entity.LedgerEntry{second, first}, all)
}

func TestLedgerRepo_DeleteOlderThan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewStore().Repo().Refunds
	base := time.Unix(1700000000, 0)
	// inserted out of timestamp order
	for i, offset := range []int{5, 1, 3, 2, 4, 10} {
		require.NoError(t, repo.Insert(ctx, &entity.LedgerEntry{
			CallID:    common.BigToHash(big.NewInt(int64(i + 1))),
			Timestamp: base.Add(time.Duration(offset) * time.Second),
		}))
	}

	n, err := repo.DeleteOlderThan(ctx, base.Add(5*time.Second), 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	left, err := repo.FindAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 4)
	for _, e := range left {
		require.False(t, e.Timestamp.Before(base.Add(3*time.Second)), "oldest entries must go first")
	}

	n, err = repo.DeleteOlderThan(ctx, base.Add(5*time.Second), 15)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	left, err = repo.FindAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 2)
}

func TestStore_WithinTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	cfg := &entity.BridgeConfig{Contract: "token.brdg", Admin: "admin.brdg", Version: "1"}

	errBoom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context, repo *repository.Repo) error {
		require.NoError(t, repo.Configs.Insert(ctx, cfg))
		require.NoError(t, repo.Requests.Insert(ctx, &entity.LedgerEntry{CallID: common.HexToHash("0x01")}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	_, err = store.Repo().Configs.Get(ctx, "token.brdg")
	require.ErrorIs(t, err, db.ErrNotFound)
	exists, err := store.Repo().Requests.ExistsByCallID(ctx, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.False(t, exists)

	err = store.WithinTransaction(ctx, func(ctx context.Context, repo *repository.Repo) error {
		return repo.Configs.Insert(ctx, cfg)
	})
	require.NoError(t, err)
	stored, err := store.Repo().Configs.Get(ctx, "token.brdg")
	require.NoError(t, err)
	require.Equal(t, cfg.Admin, stored.Admin)
	require.NotNil(t, stored.CreatedAt)

	require.ErrorIs(t, store.Repo().Configs.Insert(ctx, cfg), entity.ErrAlreadyExists)

	stored.Version = "2"
	require.NoError(t, store.Repo().Configs.Update(ctx, stored))
	updated, err := store.Repo().Configs.Get(ctx, "token.brdg")
	require.NoError(t, err)
	require.Equal(t, "2", updated.Version)

	require.ErrorIs(t, store.Repo().Configs.Update(ctx, &entity.BridgeConfig{Contract: "other"}), db.ErrNotFound)
}
