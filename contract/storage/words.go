package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/omni/tokenbridge-antelope/antelope"
)

var (
	ErrLongString   = errors.New("string does not fit in a single slot")
	ErrInvalidValue = errors.New("invalid storage value")
)

func Uint256(w common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(w[:])
}

func Bool(w common.Hash) bool {
	return Uint256(w).Eq(uint256.NewInt(1))
}

func Address(w common.Hash) common.Address {
	return common.BytesToAddress(w[12:])
}

func Uint8(w common.Hash) (uint8, error) {
	v := Uint256(w)
	if !v.IsUint64() || v.Uint64() > 0xff {
		return 0, fmt.Errorf("%w: %s does not fit in uint8", ErrInvalidValue, v.Hex())
	}
	return uint8(v.Uint64()), nil
}

// ShortString decodes a solidity string shorter than 32 bytes, stored inline
// with its doubled length in the lowest byte.
func ShortString(w common.Hash) (string, error) {
	marker := w[31]
	if marker&1 == 1 {
		return "", ErrLongString
	}
	length := int(marker / 2)
	if length > 31 {
		return "", fmt.Errorf("%w: short string length %d", ErrInvalidValue, length)
	}
	return string(w[:length]), nil
}

func Name(w common.Hash) (antelope.Name, error) {
	s, err := ShortString(w)
	if err != nil {
		return "", err
	}
	return antelope.NewName(s)
}

func SymbolCode(w common.Hash) (antelope.SymbolCode, error) {
	s, err := ShortString(w)
	if err != nil {
		return "", err
	}
	return antelope.NewSymbolCode(s)
}

func EncodeUint64(v uint64) common.Hash {
	return uint256.NewInt(v).Bytes32()
}

func EncodeUint256(v *uint256.Int) common.Hash {
	return v.Bytes32()
}

func EncodeBool(v bool) common.Hash {
	if v {
		return EncodeUint64(1)
	}
	return common.Hash{}
}

func EncodeAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr[:])
}

func EncodeShortString(s string) (common.Hash, error) {
	if len(s) > 31 {
		return common.Hash{}, ErrLongString
	}
	var w common.Hash
	copy(w[:], s)
	w[31] = byte(len(s) * 2)
	return w, nil
}

func MustEncodeShortString(s string) common.Hash {
	w, err := EncodeShortString(s)
	if err != nil {
		panic(err)
	}
	return w
}
