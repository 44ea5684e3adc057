package evm

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
)

var (
	ErrAccountNotFound = errors.New("evm account not found")
	ErrInvalidNonce    = errors.New("invalid transaction nonce")
)

// Account is a row of the account registry of the EVM system contract. Index
// is the scope under which the account's contract storage is kept.
type Account struct {
	Index   uint64
	Address common.Address
	Account antelope.Name
	Nonce   uint64
}

type AccountRegistry interface {
	AccountByAddress(ctx context.Context, addr common.Address) (*Account, error)
	// AccountByName returns the custodial EVM account owned by a home chain
	// account.
	AccountByName(ctx context.Context, name antelope.Name) (*Account, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

// StateReader gives read access to the raw key/value contract storage.
// found is false when the slot has never been written.
type StateReader interface {
	StorageAt(ctx context.Context, scope uint64, key common.Hash) (value common.Hash, found bool, err error)
}

// BatchStateReader is implemented by readers able to fetch several slots of
// one scope at once.
type BatchStateReader interface {
	StateReader
	StorageBatch(ctx context.Context, scope uint64, keys []common.Hash) ([]common.Hash, []bool, error)
}

type State interface {
	AccountRegistry
	StateReader
}

// ReadSlots reads keys of scope, batching the requests when r supports it.
func ReadSlots(ctx context.Context, r StateReader, scope uint64, keys []common.Hash) ([]common.Hash, []bool, error) {
	if br, ok := r.(BatchStateReader); ok {
		return br.StorageBatch(ctx, scope, keys)
	}
	values := make([]common.Hash, len(keys))
	found := make([]bool, len(keys))
	for i, key := range keys {
		v, ok, err := r.StorageAt(ctx, scope, key)
		if err != nil {
			return nil, nil, err
		}
		values[i], found[i] = v, ok
	}
	return values, found, nil
}
