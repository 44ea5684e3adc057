package bridge

import (
	"github.com/holiman/uint256"

	"github.com/omni/tokenbridge-antelope/antelope"
)

// 10^77 is the largest power of ten below 2^256.
const maxPow10 = 77

func pow10(n uint8) (*uint256.Int, bool) {
	if n > maxPow10 {
		return nil, false
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n))), true
}

// rescale converts amount between two decimal precisions. Moving to a lower
// precision truncates toward zero.
func rescale(amount *uint256.Int, from, to uint8) (*uint256.Int, error) {
	res := new(uint256.Int).Set(amount)
	switch {
	case from > to:
		p, ok := pow10(from - to)
		if !ok {
			return new(uint256.Int), nil
		}
		res.Div(res, p)
	case to > from:
		p, ok := pow10(to - from)
		if !ok {
			if res.IsZero() {
				return res, nil
			}
			return nil, ErrAmountOverflow
		}
		if _, overflow := res.MulOverflow(res, p); overflow {
			return nil, ErrAmountOverflow
		}
	}
	return res, nil
}

// ToHomeAmount converts a raw EVM amount with evmDecimals into base units of
// a home chain asset with the given precision.
func ToHomeAmount(raw *uint256.Int, evmDecimals, precision uint8) (int64, error) {
	res, err := rescale(raw, evmDecimals, precision)
	if err != nil {
		return 0, err
	}
	if !res.IsUint64() || res.Uint64() > uint64(antelope.MaxAssetAmount) {
		return 0, ErrAmountOverflow
	}
	return int64(res.Uint64()), nil
}

// ToEVMAmount converts base units of a home chain asset into a raw EVM amount
// with evmDecimals.
func ToEVMAmount(amount int64, precision, evmDecimals uint8) (*uint256.Int, error) {
	if amount < 0 {
		return nil, ErrMinimumAmount
	}
	return rescale(uint256.NewInt(uint64(amount)), precision, evmDecimals)
}
