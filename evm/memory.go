package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract/abi"
	"github.com/omni/tokenbridge-antelope/contract/storage"
)

// RelayedTx is a transaction accepted through a raw action.
type RelayedTx struct {
	Sender common.Address
	Tx     *abi.UnsignedTx
}

// MemoryState is an in-process EVM system contract: an account registry, raw
// per-scope storage and a relay queue. It does not execute transactions.
type MemoryState struct {
	mu       sync.RWMutex
	accounts []*Account
	storage  map[uint64]map[common.Hash]common.Hash
	gasPrice *big.Int
	relayed  []RelayedTx
}

func NewMemoryState(gasPrice *big.Int) *MemoryState {
	return &MemoryState{
		storage:  make(map[uint64]map[common.Hash]common.Hash),
		gasPrice: gasPrice,
	}
}

// CreateAccount adds an account to the registry, owner may be empty for
// accounts that are not owned by a home chain account.
func (s *MemoryState) CreateAccount(addr common.Address, owner antelope.Name) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := &Account{
		Index:   uint64(len(s.accounts)),
		Address: addr,
		Account: owner,
	}
	s.accounts = append(s.accounts, acc)
	return s.copyAccount(acc)
}

func (s *MemoryState) setStorage(scope uint64, key, value common.Hash) {
	slots, ok := s.storage[scope]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		s.storage[scope] = slots
	}
	// a zero word is never stored, like on the real chain
	if value == (common.Hash{}) {
		delete(slots, key)
		return
	}
	slots[key] = value
}

// Append writes a new element at the end of arr, fields maps field offsets
// to their value. Fields that are not given stay unset.
func (s *MemoryState) Append(scope uint64, arr *storage.Array, fields map[uint64]common.Hash) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := storage.Uint256(s.storage[scope][arr.LengthSlot()]).Uint64()
	for field, value := range fields {
		slot, err := arr.MemberSlot(index, field)
		if err != nil {
			return 0, err
		}
		s.setStorage(scope, slot, value)
	}
	s.setStorage(scope, arr.LengthSlot(), storage.EncodeUint64(index+1))
	return index, nil
}

func (s *MemoryState) StorageAt(_ context.Context, scope uint64, key common.Hash) (common.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.storage[scope][key]
	return v, ok, nil
}

func (s *MemoryState) AccountByAddress(_ context.Context, addr common.Address) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc := s.accountByAddress(addr); acc != nil {
		return s.copyAccount(acc), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
}

func (s *MemoryState) accountByAddress(addr common.Address) *Account {
	for _, acc := range s.accounts {
		if acc.Address == addr {
			return acc
		}
	}
	return nil
}

func (s *MemoryState) AccountByName(_ context.Context, name antelope.Name) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Account == name {
			return s.copyAccount(acc), nil
		}
	}
	return nil, fmt.Errorf("%w: no account owned by %s", ErrAccountNotFound, name)
}

func (s *MemoryState) GasPrice(context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.gasPrice), nil
}

// Relay accepts a batch of raw actions or none of them: every sender must own
// its custodial account and the transactions of an account must carry its
// next nonces in order.
func (s *MemoryState) Relay(_ context.Context, actions []*antelope.RawAction) error {
	txs := make([]*abi.UnsignedTx, len(actions))
	for i, action := range actions {
		tx, err := abi.DecodeUnsignedTx(action.Tx)
		if err != nil {
			return fmt.Errorf("raw action %d: %w", i, err)
		}
		txs[i] = tx
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	senders := make([]*Account, len(actions))
	nonces := make(map[*Account]uint64, len(actions))
	for i, action := range actions {
		acc := s.accountByAddress(action.SenderAddress)
		if acc == nil {
			return fmt.Errorf("raw action %d: %w: %s", i, ErrAccountNotFound, action.SenderAddress)
		}
		if acc.Account != action.Sender {
			return fmt.Errorf("raw action %d: missing authority of %s", i, acc.Account)
		}
		next, ok := nonces[acc]
		if !ok {
			next = acc.Nonce
		}
		if txs[i].Nonce != next {
			return fmt.Errorf("raw action %d: %w: got %d, expected %d", i, ErrInvalidNonce, txs[i].Nonce, next)
		}
		nonces[acc] = next + 1
		senders[i] = acc
	}
	for i, acc := range senders {
		acc.Nonce++
		s.relayed = append(s.relayed, RelayedTx{Sender: acc.Address, Tx: txs[i]})
	}
	return nil
}

// Relayed returns every accepted transaction, in order.
func (s *MemoryState) Relayed() []RelayedTx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RelayedTx(nil), s.relayed...)
}

func (s *MemoryState) copyAccount(acc *Account) *Account {
	res := *acc
	return &res
}
