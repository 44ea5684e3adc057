package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract/storage"
)

// Settlement is a pending request or refund of the EVM bridge contract,
// waiting to be paid out on the home chain.
type Settlement struct {
	Index        uint64
	CallID       common.Hash
	Sender       common.Address
	Amount       *uint256.Int
	TokenAccount antelope.Name
	Symbol       antelope.SymbolCode
	Receiver     antelope.Name
	EVMDecimals  uint8
}

// PendingQueue reads one pending settlement array of the bridge contract.
type PendingQueue struct {
	*Contract
	layout SettlementLayout
	array  *storage.Array
}

func NewPendingQueue(c *Contract, layout SettlementLayout) *PendingQueue {
	return &PendingQueue{
		Contract: c,
		layout:   layout,
		array:    layout.Array(),
	}
}

// Len returns the number of pending settlements, found is false when the
// array was never written.
func (q *PendingQueue) Len(ctx context.Context) (uint64, bool, error) {
	return q.Length(ctx, q.array)
}

// Get reads the settlement at index. A zero call id is returned as is, with
// the remaining fields left empty.
func (q *PendingQueue) Get(ctx context.Context, index uint64) (*Settlement, error) {
	fields, err := q.Element(ctx, q.array, index, q.layout.fields()...)
	if err != nil {
		return nil, err
	}
	s := &Settlement{
		Index:  index,
		CallID: fields[q.layout.CallID],
	}
	if s.CallID == (common.Hash{}) {
		return s, nil
	}
	s.Amount = storage.Uint256(fields[q.layout.Amount])
	if q.layout.Sender != NoField {
		s.Sender = storage.Address(fields[q.layout.Sender])
	}
	if s.TokenAccount, err = storage.Name(fields[q.layout.TokenAccount]); err != nil {
		return nil, fmt.Errorf("%w: settlement %d token account: %s", ErrInvalidElement, index, err)
	}
	if s.Symbol, err = storage.SymbolCode(fields[q.layout.Symbol]); err != nil {
		return nil, fmt.Errorf("%w: settlement %d symbol: %s", ErrInvalidElement, index, err)
	}
	if s.Receiver, err = storage.Name(fields[q.layout.Receiver]); err != nil {
		return nil, fmt.Errorf("%w: settlement %d receiver: %s", ErrInvalidElement, index, err)
	}
	if s.EVMDecimals, err = storage.Uint8(fields[q.layout.Decimals]); err != nil {
		return nil, fmt.Errorf("%w: settlement %d decimals: %s", ErrInvalidElement, index, err)
	}
	return s, nil
}
