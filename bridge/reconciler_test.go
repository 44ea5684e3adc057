package bridge_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/logging"
	"github.com/omni/tokenbridge-antelope/repository"
	"github.com/omni/tokenbridge-antelope/repository/memory"
)

var oneToken = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))

func request(id int64, receiver antelope.Name) *contract.Settlement {
	return &contract.Settlement{
		CallID:       common.BigToHash(big.NewInt(id)),
		Sender:       evmUser,
		Amount:       oneToken,
		TokenAccount: tokenContract,
		Symbol:       tlos.Code,
		Receiver:     receiver,
		EVMDecimals:  18,
	}
}

func TestBridge_ReconcileRequests(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)
	for id := int64(1); id <= 3; id++ {
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(id, alice))
	}

	res, err := e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRequests, Pending: 3, Processed: 2}, res)

	require.Equal(t, int64(10000000+2*10000), e.chain.Balance(tokenContract, alice, tlos.Code))
	transfers := e.transfers()
	require.Len(t, transfers, 2)
	for _, tr := range transfers {
		require.Equal(t, self, tr.From)
		require.Equal(t, alice, tr.To)
		require.Equal(t, "1.0000 TLOS", tr.Quantity.String())
		require.Equal(t, "Sent from tEVM by 0x1111111111111111111111111111111111111111", tr.Memo)
	}

	relayed := e.state.Relayed()
	require.Len(t, relayed, 2)
	for i, r := range relayed {
		require.Equal(t, custodialAddr, r.Sender)
		require.Equal(t, uint64(i), r.Tx.Nonce)
		require.Equal(t, bridgeAddr, r.Tx.To)
		require.Zero(t, gasPrice.Cmp(r.Tx.GasPrice))
		require.Equal(t, uint64(250000), r.Tx.GasLimit)
		require.Zero(t, r.Tx.Value.Sign())
		require.Equal(t, uint64(41), r.Tx.ChainID.Uint64())
		expected := append(common.FromHex("0fbc79cd"), common.BigToHash(big.NewInt(int64(i+1))).Bytes()...)
		require.Equal(t, expected, r.Tx.Data)
	}

	for id := int64(1); id <= 2; id++ {
		entry, err := e.store.Repo().Requests.FindByCallID(ctx, common.BigToHash(big.NewInt(id)))
		require.NoError(t, err)
		require.Equal(t, e.now, entry.Timestamp)
	}

	t.Run("should not settle the same call id twice", func(t *testing.T) {
		res, err := e.bridge.ReconcileRequests(ctx)
		require.NoError(t, err)
		require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRequests, Pending: 3, Skipped: 2}, res)
		require.Len(t, e.transfers(), 2)
		require.Len(t, e.state.Relayed(), 2)
	})
}

func TestBridge_ReconcileRefunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)
	refund := request(7, alice)
	refund.Sender = common.Address{}
	refund.Amount = uint256.NewInt(25000)
	refund.EVMDecimals = 4
	e.addSettlement(t, contract.DefaultBridgeRefundLayout, refund)

	res, err := e.bridge.ReconcileRefunds(ctx)
	require.NoError(t, err)
	require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRefunds, Pending: 1, Processed: 1}, res)

	transfers := e.transfers()
	require.Len(t, transfers, 1)
	require.Equal(t, "2.5000 TLOS", transfers[0].Quantity.String())
	require.Equal(t, "Bridge refund", transfers[0].Memo)

	relayed := e.state.Relayed()
	require.Len(t, relayed, 1)
	require.Equal(t, append(common.FromHex("dc2fdf9f"), refund.CallID.Bytes()...), relayed[0].Tx.Data)

	exists, err := e.store.Repo().Refunds.ExistsByCallID(ctx, refund.CallID)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = e.store.Repo().Requests.ExistsByCallID(ctx, refund.CallID)
	require.NoError(t, err)
	require.False(t, exists)

	res, err = e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.True(t, res.Empty)
}

func TestBridge_ReconcileNothingPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)

	res, err := e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRequests, Empty: true}, res)
	res, err = e.bridge.ReconcileRefunds(ctx)
	require.NoError(t, err)
	require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRefunds, Empty: true}, res)
	require.Empty(t, e.chain.Executed())
}

func TestBridge_ReconcileSkipsZeroCallID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)
	e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(0, alice))
	e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(5, alice))

	res, err := e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Skipped)
	require.Equal(t, uint64(1), res.Processed)
	relayed := e.state.Relayed()
	require.Len(t, relayed, 1)
	require.Equal(t, uint64(0), relayed[0].Tx.Nonce)
}

func TestBridge_ReconcileRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, test := range []struct {
		Name       string
		Settlement *contract.Settlement
		Err        error
	}{
		{
			Name:       "transfer to a missing account",
			Settlement: request(2, antelope.MustName("nobody")),
			Err:        antelope.ErrTransferFailed,
		},
		{
			Name: "amount below the home precision",
			Settlement: func() *contract.Settlement {
				s := request(2, alice)
				s.Amount = uint256.NewInt(1)
				return s
			}(),
			Err: bridge.ErrAmountTooSmall,
		},
		{
			Name: "unknown token",
			Settlement: func() *contract.Settlement {
				s := request(2, alice)
				s.Symbol = antelope.MustSymbolCode("USDT")
				return s
			}(),
			Err: bridge.ErrTokenNotFound,
		},
	} {
		t.Logf("Running sub-test %q", test.Name)
		e := newTestEnv(t)
		e.initialize(t)
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(1, alice))
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, test.Settlement)

		_, err := e.bridge.ReconcileRequests(ctx)
		require.ErrorIs(t, err, test.Err, "Failed %s", test.Name)

		require.Empty(t, e.chain.Executed(), "Failed %s", test.Name)
		require.Empty(t, e.state.Relayed(), "Failed %s", test.Name)
		require.Equal(t, int64(10000000), e.chain.Balance(tokenContract, alice, tlos.Code), "Failed %s", test.Name)
		for _, id := range []int64{1, 2} {
			exists, err := e.store.Repo().Requests.ExistsByCallID(ctx, common.BigToHash(big.NewInt(id)))
			require.NoError(t, err)
			require.False(t, exists, "Failed %s", test.Name)
		}
	}
}

func TestBridge_ReconcilePrunes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)

	repo := e.store.Repo().Requests
	for i := 0; i < 20; i++ {
		require.NoError(t, repo.Insert(ctx, &entity.LedgerEntry{
			CallID:    common.BigToHash(big.NewInt(int64(100 + i))),
			Timestamp: e.now.Add(-time.Duration(120-i) * time.Second),
		}))
	}
	recent := common.BigToHash(big.NewInt(1))
	require.NoError(t, repo.Insert(ctx, &entity.LedgerEntry{CallID: recent, Timestamp: e.now.Add(-30 * time.Second)}))

	res, err := e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(15), res.Pruned)

	res, err = e.bridge.ReconcileRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), res.Pruned)

	left, err := repo.FindAll(ctx, 100)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, recent, left[0].CallID)
}

type commitFailingStore struct {
	*memory.Store
	fail atomic.Bool
}

var errCommit = errors.New("commit failed")

func (s *commitFailingStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo *repository.Repo) error) error {
	return s.Store.WithinTransaction(ctx, func(ctx context.Context, repo *repository.Repo) error {
		if err := fn(ctx, repo); err != nil {
			return err
		}
		if s.fail.Swap(false) {
			return errCommit
		}
		return nil
	})
}

func TestBridge_ReconcileCommitFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)
	for id := int64(1); id <= 3; id++ {
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(id, alice))
	}

	store := &commitFailingStore{Store: e.store}
	b := bridge.New(e.cfg, store, e.chain, e.state, logging.NewNop(), bridge.WithClock(func() time.Time {
		return e.now
	}))

	store.fail.Store(true)
	_, err := b.ReconcileRequests(ctx)
	require.ErrorIs(t, err, errCommit)
	require.Len(t, e.transfers(), 2)
	require.Len(t, e.state.Relayed(), 2)
	exists, err := e.store.Repo().Requests.ExistsByCallID(ctx, common.BigToHash(big.NewInt(1)))
	require.NoError(t, err)
	require.False(t, exists)

	t.Run("should not pay settlements of a failed commit again", func(t *testing.T) {
		res, err := b.ReconcileRequests(ctx)
		require.NoError(t, err)
		require.Equal(t, &bridge.ReconcileResult{Kind: entity.LedgerRequests, Pending: 3, Skipped: 2}, res)
		require.Len(t, e.transfers(), 2)
		require.Len(t, e.state.Relayed(), 2)
		require.Equal(t, int64(10000000+2*10000), e.chain.Balance(tokenContract, alice, tlos.Code))

		for id := int64(1); id <= 2; id++ {
			entry, err := e.store.Repo().Requests.FindByCallID(ctx, common.BigToHash(big.NewInt(id)))
			require.NoError(t, err)
			require.Equal(t, e.now, entry.Timestamp)
		}
	})

	t.Run("should not remember entries of a call that paid nothing", func(t *testing.T) {
		e := newTestEnv(t)
		e.initialize(t)
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(1, alice))
		e.addSettlement(t, contract.DefaultBridgeRequestLayout, request(2, antelope.MustName("nobody")))

		store := &commitFailingStore{Store: e.store}
		b := bridge.New(e.cfg, store, e.chain, e.state, logging.NewNop(), bridge.WithClock(func() time.Time {
			return e.now
		}))
		_, err := b.ReconcileRequests(ctx)
		require.ErrorIs(t, err, antelope.ErrTransferFailed)
		require.Empty(t, e.transfers())

		exists, err := e.store.Repo().Requests.ExistsByCallID(ctx, common.BigToHash(big.NewInt(1)))
		require.NoError(t, err)
		require.False(t, exists)
	})
}
