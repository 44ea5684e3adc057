package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/ethclient"
)

// RPCState serves the EVM collaborator from a JSON-RPC node. The account
// registry is a static table, the position of an account in the table is its
// storage scope.
//
// eth_getStorageAt can't tell an unset slot from a zero one, so zero words
// are reported as not found.
type RPCState struct {
	client   ethclient.Client
	accounts []Account
}

func NewRPCState(client ethclient.Client, accounts []Account) *RPCState {
	table := make([]Account, len(accounts))
	for i, acc := range accounts {
		acc.Index = uint64(i)
		table[i] = acc
	}
	return &RPCState{client: client, accounts: table}
}

func (s *RPCState) scopeAddress(scope uint64) (common.Address, error) {
	if scope >= uint64(len(s.accounts)) {
		return common.Address{}, fmt.Errorf("%w: unknown scope %d", ErrAccountNotFound, scope)
	}
	return s.accounts[scope].Address, nil
}

func (s *RPCState) StorageAt(ctx context.Context, scope uint64, key common.Hash) (common.Hash, bool, error) {
	addr, err := s.scopeAddress(scope)
	if err != nil {
		return common.Hash{}, false, err
	}
	v, err := s.client.StorageAt(ctx, addr, key)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("can't read storage of %s: %w", addr, err)
	}
	return v, v != common.Hash{}, nil
}

func (s *RPCState) StorageBatch(ctx context.Context, scope uint64, keys []common.Hash) ([]common.Hash, []bool, error) {
	addr, err := s.scopeAddress(scope)
	if err != nil {
		return nil, nil, err
	}
	values, err := s.client.StorageAtBatch(ctx, addr, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("can't read storage of %s: %w", addr, err)
	}
	found := make([]bool, len(values))
	for i, v := range values {
		found[i] = v != common.Hash{}
	}
	return values, found, nil
}

func (s *RPCState) withNonce(ctx context.Context, acc Account) (*Account, error) {
	nonce, err := s.client.PendingNonceAt(ctx, acc.Address)
	if err != nil {
		return nil, fmt.Errorf("can't get nonce of %s: %w", acc.Address, err)
	}
	acc.Nonce = nonce
	return &acc, nil
}

func (s *RPCState) AccountByAddress(ctx context.Context, addr common.Address) (*Account, error) {
	for _, acc := range s.accounts {
		if acc.Address == addr {
			return s.withNonce(ctx, acc)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
}

func (s *RPCState) AccountByName(ctx context.Context, name antelope.Name) (*Account, error) {
	for _, acc := range s.accounts {
		if acc.Account == name {
			return s.withNonce(ctx, acc)
		}
	}
	return nil, fmt.Errorf("%w: no account owned by %s", ErrAccountNotFound, name)
}

func (s *RPCState) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get gas price: %w", err)
	}
	return price, nil
}
