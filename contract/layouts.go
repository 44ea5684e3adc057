package contract

import (
	"github.com/omni/tokenbridge-antelope/contract/abi"
	"github.com/omni/tokenbridge-antelope/contract/storage"
)

// NoField marks a struct member a layout does not have.
const NoField = ^uint64(0)

// Field offsets of a registered token pair.
const (
	PairFieldActive     = 0
	PairFieldEVMAddress = 2
	PairFieldDecimals   = 3
	PairFieldSymbol     = 5
	PairFieldAccount    = 6
)

const RegisterRequestFieldSymbol = 8

// Layout is the position of a dynamic struct array in contract storage.
type Layout struct {
	Index uint64 `yaml:"index"`
	Width uint64 `yaml:"width"`
}

func (l Layout) Array() *storage.Array {
	return storage.NewArray(l.Index, l.Width)
}

// SettlementLayout describes the members of a pending request or refund.
type SettlementLayout struct {
	Layout
	CallID       uint64
	Sender       uint64
	Amount       uint64
	TokenAccount uint64
	Symbol       uint64
	Receiver     uint64
	Decimals     uint64
}

// At returns a copy of l placed at another array position.
func (l SettlementLayout) At(pos Layout) SettlementLayout {
	l.Layout = pos
	return l
}

func (l SettlementLayout) fields() []uint64 {
	res := []uint64{l.CallID, l.Amount, l.TokenAccount, l.Symbol, l.Receiver, l.Decimals}
	if l.Sender != NoField {
		res = append(res, l.Sender)
	}
	return res
}

var (
	DefaultPairLayout            = Layout{Index: 3, Width: 10}
	DefaultRegisterRequestLayout = Layout{Index: 4, Width: 11}

	DefaultBridgeRequestLayout = SettlementLayout{
		Layout:       Layout{Index: 4, Width: 8},
		CallID:       0,
		Sender:       1,
		Amount:       2,
		TokenAccount: 4,
		Symbol:       5,
		Receiver:     6,
		Decimals:     7,
	}
	DefaultBridgeRefundLayout = SettlementLayout{
		Layout:       Layout{Index: 5, Width: 6},
		CallID:       0,
		Sender:       NoField,
		Amount:       1,
		TokenAccount: 2,
		Symbol:       3,
		Receiver:     4,
		Decimals:     5,
	}
)

// Selectors of the EVM side methods called by the bridge.
type Selectors struct {
	RequestSuccess   abi.Selector `yaml:"request_success"`
	RefundSuccess    abi.Selector `yaml:"refund_success"`
	BridgeTo         abi.Selector `yaml:"bridge_to"`
	SignRegistration abi.Selector `yaml:"sign_registration_request"`
}

var DefaultSelectors = Selectors{
	RequestSuccess:   abi.MustParseSelector("0fbc79cd"),
	RefundSuccess:    abi.MustParseSelector("dc2fdf9f"),
	BridgeTo:         abi.MustParseSelector("7d056de7"),
	SignRegistration: abi.MustParseSelector("a1d22913"),
}
