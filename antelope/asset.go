package antelope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidAsset  = errors.New("invalid asset")
)

const (
	MaxSymbolCodeLength = 7
	MaxPrecision        = 18
	// MaxAssetAmount is the largest amount an asset can carry.
	MaxAssetAmount = int64(1)<<62 - 1
)

type SymbolCode string

func NewSymbolCode(s string) (SymbolCode, error) {
	if len(s) == 0 || len(s) > MaxSymbolCodeLength {
		return "", fmt.Errorf("%w %q: length must be between 1 and %d", ErrInvalidSymbol, s, MaxSymbolCodeLength)
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return "", fmt.Errorf("%w %q: unexpected character %q", ErrInvalidSymbol, s, c)
		}
	}
	return SymbolCode(s), nil
}

func MustSymbolCode(s string) SymbolCode {
	c, err := NewSymbolCode(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c SymbolCode) String() string {
	return string(c)
}

func (c *SymbolCode) UnmarshalText(text []byte) error {
	parsed, err := NewSymbolCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type Symbol struct {
	Precision uint8
	Code      SymbolCode
}

func NewSymbol(precision uint8, code string) (Symbol, error) {
	if precision > MaxPrecision {
		return Symbol{}, fmt.Errorf("%w: precision %d exceeds %d", ErrInvalidSymbol, precision, MaxPrecision)
	}
	c, err := NewSymbolCode(code)
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{Precision: precision, Code: c}, nil
}

func MustSymbol(precision uint8, code string) Symbol {
	s, err := NewSymbol(precision, code)
	if err != nil {
		panic(err)
	}
	return s
}

// String formats the symbol as "4,TLOS".
func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

type Asset struct {
	Amount int64
	Symbol Symbol
}

func NewAsset(amount int64, symbol Symbol) Asset {
	return Asset{Amount: amount, Symbol: symbol}
}

func (a Asset) IsValid() bool {
	return a.Amount >= -MaxAssetAmount && a.Amount <= MaxAssetAmount
}

// String formats the asset as "100.0000 TLOS".
func (a Asset) String() string {
	sign := ""
	amount := a.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	p := int(a.Symbol.Precision)
	if p == 0 {
		return fmt.Sprintf("%s%s %s", sign, digits, a.Symbol.Code)
	}
	if len(digits) <= p {
		digits = strings.Repeat("0", p-len(digits)+1) + digits
	}
	return fmt.Sprintf("%s%s.%s %s", sign, digits[:len(digits)-p], digits[len(digits)-p:], a.Symbol.Code)
}

// ParseAsset parses strings such as "100.0000 TLOS", the precision is the
// number of fractional digits.
func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("%w %q: expected amount and symbol", ErrInvalidAsset, s)
	}
	amountStr := parts[0]
	negative := strings.HasPrefix(amountStr, "-")
	amountStr = strings.TrimPrefix(amountStr, "-")

	precision := 0
	if dot := strings.IndexByte(amountStr, '.'); dot >= 0 {
		precision = len(amountStr) - dot - 1
		amountStr = amountStr[:dot] + amountStr[dot+1:]
	}
	if precision > MaxPrecision {
		return Asset{}, fmt.Errorf("%w %q: precision %d exceeds %d", ErrInvalidAsset, s, precision, MaxPrecision)
	}
	symbol, err := NewSymbol(uint8(precision), parts[1])
	if err != nil {
		return Asset{}, fmt.Errorf("%w %q: %s", ErrInvalidAsset, s, err)
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("%w %q: %s", ErrInvalidAsset, s, err)
	}
	if negative {
		amount = -amount
	}
	asset := Asset{Amount: amount, Symbol: symbol}
	if !asset.IsValid() {
		return Asset{}, fmt.Errorf("%w %q: magnitude of asset amount must be less than 2^62", ErrInvalidAsset, s)
	}
	return asset, nil
}

func MustParseAsset(s string) Asset {
	a, err := ParseAsset(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := ParseAsset(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
