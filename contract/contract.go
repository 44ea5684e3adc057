package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/contract/storage"
	"github.com/omni/tokenbridge-antelope/evm"
)

var (
	ErrPairNotFound   = errors.New("pair not found")
	ErrInvalidElement = errors.New("invalid array element")
)

// Contract is an EVM side contract whose storage is read through the state
// of the EVM system contract.
type Contract struct {
	address common.Address
	scope   uint64
	state   evm.StateReader
}

func NewContract(state evm.StateReader, addr common.Address, scope uint64) *Contract {
	return &Contract{addr, scope, state}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) Scope() uint64 {
	return c.scope
}

// Length returns the length of arr. found is false when the length slot was
// never written, which callers treat as an empty array.
func (c *Contract) Length(ctx context.Context, arr *storage.Array) (length uint64, found bool, err error) {
	w, found, err := c.state.StorageAt(ctx, c.scope, arr.LengthSlot())
	if err != nil {
		return 0, false, fmt.Errorf("can't read length of array at slot %d: %w", arr.Base, err)
	}
	if !found {
		return 0, false, nil
	}
	v := storage.Uint256(w)
	if !v.IsUint64() {
		return 0, false, fmt.Errorf("%w: array length %s", ErrInvalidElement, v.Hex())
	}
	return v.Uint64(), true, nil
}

// Element reads the given fields of element index of arr. Unset fields are
// returned as zero words.
func (c *Contract) Element(ctx context.Context, arr *storage.Array, index uint64, fields ...uint64) (map[uint64]common.Hash, error) {
	keys := make([]common.Hash, len(fields))
	for i, field := range fields {
		slot, err := arr.MemberSlot(index, field)
		if err != nil {
			return nil, err
		}
		keys[i] = slot
	}
	values, _, err := evm.ReadSlots(ctx, c.state, c.scope, keys)
	if err != nil {
		return nil, fmt.Errorf("can't read element %d of array at slot %d: %w", index, arr.Base, err)
	}
	res := make(map[uint64]common.Hash, len(fields))
	for i, field := range fields {
		res[field] = values[i]
	}
	return res, nil
}
