package bridge_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/contract"
)

func TestBridge_Deposit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)
	e.addPair(t, &contract.Pair{Active: true, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract})

	err := e.chain.Transfer(ctx, tokenContract, alice, self, antelope.MustParseAsset("100.0000 TLOS"), evmUser.Hex())
	require.NoError(t, err)
	require.Equal(t, int64(9000000), e.chain.Balance(tokenContract, alice, tlos.Code))
	require.Equal(t, int64(11000000), e.chain.Balance(tokenContract, self, tlos.Code))

	relayed := e.state.Relayed()
	require.Len(t, relayed, 1)
	tx := relayed[0].Tx
	require.Equal(t, custodialAddr, relayed[0].Sender)
	require.Equal(t, bridgeAddr, tx.To)
	require.Equal(t, uint64(0), tx.Nonce)
	require.Equal(t, common.FromHex("7d056de7"), tx.Data[:4])

	values := unpack(t, tx.Data, addressType, addressType, uint256Type, stringType)
	require.Equal(t, tokenAddr, values[0])
	require.Equal(t, evmUser, values[1])
	require.Zero(t, new(big.Int).Mul(big.NewInt(100), pow10(18)).Cmp(values[2].(*big.Int)))
	require.Equal(t, "alice", values[3])

	t.Run("should use the next nonce", func(t *testing.T) {
		err := e.chain.Transfer(ctx, tokenContract, alice, self, antelope.MustParseAsset("0.0001 TLOS"), evmUser.Hex())
		require.NoError(t, err)
		relayed := e.state.Relayed()
		require.Len(t, relayed, 2)
		require.Equal(t, uint64(1), relayed[1].Tx.Nonce)
		values := unpack(t, relayed[1].Tx.Data, addressType, addressType, uint256Type, stringType)
		require.Zero(t, pow10(14).Cmp(values[2].(*big.Int)))
	})
}

func TestBridge_DepositRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	otherToken := antelope.MustName("other.token")

	for _, test := range []struct {
		Name     string
		Contract antelope.Name
		Memo     string
		Pair     *contract.Pair
		Err      error
	}{
		{
			Name: "short memo",
			Memo: "0x1111",
			Pair: &contract.Pair{Active: true, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract},
			Err:  bridge.ErrInvalidMemo,
		},
		{
			Name: "memo without prefix",
			Memo: "111111111111111111111111111111111111111111",
			Pair: &contract.Pair{Active: true, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract},
			Err:  bridge.ErrInvalidMemo,
		},
		{
			Name: "memo with non hex characters",
			Memo: "0x11111111111111111111111111111111111111zz",
			Pair: &contract.Pair{Active: true, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract},
			Err:  bridge.ErrInvalidMemo,
		},
		{
			Name: "inactive pair",
			Memo: evmUser.Hex(),
			Pair: &contract.Pair{Active: false, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract},
			Err:  bridge.ErrPairInactive,
		},
		{
			Name: "no pair",
			Memo: evmUser.Hex(),
			Err:  bridge.ErrPairNotRegistered,
		},
		{
			Name:     "same symbol from another token contract",
			Contract: otherToken,
			Memo:     evmUser.Hex(),
			Pair:     &contract.Pair{Active: true, EVMAddress: tokenAddr, EVMDecimals: 18, Symbol: tlos.Code, Account: tokenContract},
			Err:      bridge.ErrPairNotRegistered,
		},
	} {
		t.Logf("Running sub-test %q", test.Name)
		e := newTestEnv(t)
		e.initialize(t)
		e.chain.CreateToken(otherToken, issuer, antelope.MustParseAsset("1000.0000 TLOS"))
		require.NoError(t, e.chain.Issue(otherToken, alice, antelope.MustParseAsset("10.0000 TLOS")))
		if test.Pair != nil {
			e.addPair(t, test.Pair)
		}
		token := tokenContract
		if test.Contract != "" {
			token = test.Contract
		}
		before := e.chain.Balance(token, alice, tlos.Code)
		selfBefore := e.chain.Balance(token, self, tlos.Code)

		err := e.chain.Transfer(ctx, token, alice, self, antelope.MustParseAsset("1.0000 TLOS"), test.Memo)
		require.ErrorIs(t, err, test.Err, "Failed %s", test.Name)
		require.Equal(t, before, e.chain.Balance(token, alice, tlos.Code), "Failed %s", test.Name)
		require.Equal(t, selfBefore, e.chain.Balance(token, self, tlos.Code), "Failed %s", test.Name)
		require.Empty(t, e.chain.Executed(), "Failed %s", test.Name)
		require.Empty(t, e.state.Relayed(), "Failed %s", test.Name)
	}
}

func TestBridge_OnTransfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEnv(t)
	e.initialize(t)

	t.Run("should ignore transfers sent by the contract", func(t *testing.T) {
		err := e.bridge.OnTransfer(ctx, &antelope.TransferNotification{
			Contract: tokenContract,
			From:     self,
			To:       alice,
			Quantity: antelope.MustParseAsset("1.0000 TLOS"),
			Memo:     "Bridge refund",
		})
		require.NoError(t, err)
	})

	t.Run("should reject transfers to another account", func(t *testing.T) {
		err := e.bridge.OnTransfer(ctx, &antelope.TransferNotification{
			Contract: tokenContract,
			From:     alice,
			To:       admin,
			Quantity: antelope.MustParseAsset("1.0000 TLOS"),
			Memo:     evmUser.Hex(),
		})
		require.ErrorIs(t, err, bridge.ErrWrongRecipient)
	})

	t.Run("should reject empty amounts", func(t *testing.T) {
		err := e.bridge.OnTransfer(ctx, &antelope.TransferNotification{
			Contract: tokenContract,
			From:     alice,
			To:       self,
			Quantity: antelope.NewAsset(0, tlos),
			Memo:     evmUser.Hex(),
		})
		require.ErrorIs(t, err, bridge.ErrMinimumAmount)
		require.EqualError(t, err, "Minimum amount is not reached")
	})

	require.Empty(t, e.state.Relayed())
}
