// Package contracttest encodes contract structs into storage words, the way
// the EVM contracts store them, for seeding an in-process EVM state.
package contracttest

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/contract/storage"
)

func PairFields(p *contract.Pair) map[uint64]common.Hash {
	return map[uint64]common.Hash{
		contract.PairFieldActive:     storage.EncodeBool(p.Active),
		contract.PairFieldEVMAddress: storage.EncodeAddress(p.EVMAddress),
		contract.PairFieldDecimals:   storage.EncodeUint64(uint64(p.EVMDecimals)),
		contract.PairFieldSymbol:     storage.MustEncodeShortString(string(p.Symbol)),
		contract.PairFieldAccount:    storage.MustEncodeShortString(string(p.Account)),
	}
}

func RegisterRequestFields(r *contract.RegisterRequest) map[uint64]common.Hash {
	return map[uint64]common.Hash{
		contract.RegisterRequestFieldSymbol: storage.MustEncodeShortString(string(r.Symbol)),
	}
}

// SettlementFields encodes s with the member offsets of l. A nil amount is
// left unset.
func SettlementFields(l contract.SettlementLayout, s *contract.Settlement) map[uint64]common.Hash {
	res := map[uint64]common.Hash{
		l.CallID:       s.CallID,
		l.TokenAccount: storage.MustEncodeShortString(string(s.TokenAccount)),
		l.Symbol:       storage.MustEncodeShortString(string(s.Symbol)),
		l.Receiver:     storage.MustEncodeShortString(string(s.Receiver)),
		l.Decimals:     storage.EncodeUint64(uint64(s.EVMDecimals)),
	}
	if s.Amount != nil {
		res[l.Amount] = storage.EncodeUint256(s.Amount)
	}
	if l.Sender != contract.NoField {
		res[l.Sender] = storage.EncodeAddress(s.Sender)
	}
	return res
}
