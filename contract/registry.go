package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract/storage"
)

type Pair struct {
	Index       uint64              `json:"index"`
	Active      bool                `json:"active"`
	EVMAddress  common.Address      `json:"evm_address"`
	EVMDecimals uint8               `json:"evm_decimals"`
	Symbol      antelope.SymbolCode `json:"symbol"`
	Account     antelope.Name       `json:"account"`
}

type RegisterRequest struct {
	Index  uint64              `json:"index"`
	Symbol antelope.SymbolCode `json:"symbol"`
}

// PairRegistry is the read path of the EVM register contract: the pairs
// already registered and the registrations awaiting approval.
type PairRegistry struct {
	*Contract
	pairs    *storage.Array
	requests *storage.Array
}

func NewPairRegistry(c *Contract, pairs, requests Layout) *PairRegistry {
	return &PairRegistry{
		Contract: c,
		pairs:    pairs.Array(),
		requests: requests.Array(),
	}
}

func (r *PairRegistry) pair(ctx context.Context, i uint64) (*Pair, error) {
	fields, err := r.Element(ctx, r.pairs, i, PairFieldActive, PairFieldEVMAddress, PairFieldDecimals, PairFieldSymbol, PairFieldAccount)
	if err != nil {
		return nil, err
	}
	p := &Pair{
		Index:      i,
		Active:     storage.Bool(fields[PairFieldActive]),
		EVMAddress: storage.Address(fields[PairFieldEVMAddress]),
	}
	if p.EVMDecimals, err = storage.Uint8(fields[PairFieldDecimals]); err != nil {
		return nil, fmt.Errorf("%w: pair %d decimals: %s", ErrInvalidElement, i, err)
	}
	if p.Symbol, err = storage.SymbolCode(fields[PairFieldSymbol]); err != nil {
		return nil, fmt.Errorf("%w: pair %d symbol: %s", ErrInvalidElement, i, err)
	}
	if p.Account, err = storage.Name(fields[PairFieldAccount]); err != nil {
		return nil, fmt.Errorf("%w: pair %d account: %s", ErrInvalidElement, i, err)
	}
	return p, nil
}

func (r *PairRegistry) scanPairs(ctx context.Context, fn func(p *Pair) bool) error {
	length, _, err := r.Length(ctx, r.pairs)
	if err != nil {
		return err
	}
	for i := uint64(0); i < length; i++ {
		p, err := r.pair(ctx, i)
		if err != nil {
			return err
		}
		if fn(p) {
			return nil
		}
	}
	return nil
}

// Pairs returns every registered pair. A registry without a pair array is
// empty.
func (r *PairRegistry) Pairs(ctx context.Context) ([]*Pair, error) {
	var res []*Pair
	err := r.scanPairs(ctx, func(p *Pair) bool {
		res = append(res, p)
		return false
	})
	return res, err
}

// FindPair returns the pair of the token code issued by account.
func (r *PairRegistry) FindPair(ctx context.Context, account antelope.Name, code antelope.SymbolCode) (*Pair, error) {
	var res *Pair
	err := r.scanPairs(ctx, func(p *Pair) bool {
		if p.Account == account && p.Symbol == code {
			res = p
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrPairNotFound, code, account)
	}
	return res, nil
}

// IsRegistered reports whether a pair for code exists, whatever its account.
func (r *PairRegistry) IsRegistered(ctx context.Context, code antelope.SymbolCode) (bool, error) {
	length, _, err := r.Length(ctx, r.pairs)
	if err != nil {
		return false, err
	}
	for i := uint64(0); i < length; i++ {
		fields, err := r.Element(ctx, r.pairs, i, PairFieldSymbol)
		if err != nil {
			return false, err
		}
		if symbolMatches(fields[PairFieldSymbol], code) {
			return true, nil
		}
	}
	return false, nil
}

func (r *PairRegistry) RegisterRequests(ctx context.Context) ([]*RegisterRequest, error) {
	length, _, err := r.Length(ctx, r.requests)
	if err != nil {
		return nil, err
	}
	res := make([]*RegisterRequest, 0, length)
	for i := uint64(0); i < length; i++ {
		fields, err := r.Element(ctx, r.requests, i, RegisterRequestFieldSymbol)
		if err != nil {
			return nil, err
		}
		code, err := storage.SymbolCode(fields[RegisterRequestFieldSymbol])
		if err != nil {
			return nil, fmt.Errorf("%w: register request %d symbol: %s", ErrInvalidElement, i, err)
		}
		res = append(res, &RegisterRequest{Index: i, Symbol: code})
	}
	return res, nil
}

// IsAwaitingApproval reports whether a registration of code is pending.
func (r *PairRegistry) IsAwaitingApproval(ctx context.Context, code antelope.SymbolCode) (bool, error) {
	length, _, err := r.Length(ctx, r.requests)
	if err != nil {
		return false, err
	}
	for i := uint64(0); i < length; i++ {
		fields, err := r.Element(ctx, r.requests, i, RegisterRequestFieldSymbol)
		if err != nil {
			return false, err
		}
		if symbolMatches(fields[RegisterRequestFieldSymbol], code) {
			return true, nil
		}
	}
	return false, nil
}

// symbolMatches ignores words that aren't valid symbol codes.
func symbolMatches(w common.Hash, code antelope.SymbolCode) bool {
	s, err := storage.SymbolCode(w)
	return err == nil && s == code
}
