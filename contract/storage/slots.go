package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var ErrFieldOutOfRange = errors.New("struct field offset out of range")

// Array locates the elements of a dynamic array of structs declared at slot
// Base of a contract, each element spanning Width consecutive slots.
//
// The layout is the one of the solidity compiler: the length lives at the
// declared slot, elements start at keccak256(slot) and are laid out one after
// another without gaps.
type Array struct {
	Base  uint64
	Width uint64
	first *uint256.Int
}

func NewArray(base, width uint64) *Array {
	return &Array{
		Base:  base,
		Width: width,
		first: FirstElementSlot(base),
	}
}

// LengthSlot returns the slot holding the current array length.
func (a *Array) LengthSlot() common.Hash {
	return LengthSlot(a.Base)
}

// FirstElementSlot returns the slot of the first field of the first element.
func (a *Array) FirstElementSlot() common.Hash {
	return a.first.Bytes32()
}

// MemberSlot returns the slot of field of the element at index.
func (a *Array) MemberSlot(index, field uint64) (common.Hash, error) {
	if field >= a.Width {
		return common.Hash{}, fmt.Errorf("%w: field %d of struct with %d fields", ErrFieldOutOfRange, field, a.Width)
	}
	return MemberSlot(a.first, a.Width, field, index), nil
}

func LengthSlot(base uint64) common.Hash {
	return uint256.NewInt(base).Bytes32()
}

func FirstElementSlot(base uint64) *uint256.Int {
	key := LengthSlot(base)
	return new(uint256.Int).SetBytes(crypto.Keccak256(key[:]))
}

// MemberSlot computes first + index*width + field with the wrapping 256-bit
// arithmetic of the EVM.
func MemberSlot(first *uint256.Int, width, field, index uint64) common.Hash {
	offset := new(uint256.Int).Mul(uint256.NewInt(index), uint256.NewInt(width))
	offset.Add(offset, uint256.NewInt(field))
	return new(uint256.Int).Add(first, offset).Bytes32()
}
