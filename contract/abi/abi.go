package abi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const WordSize = 32

var ErrInvalidSelector = errors.New("invalid function selector")

// Selector is the 4-byte function identifier prefixing call data.
type Selector [4]byte

func ParseSelector(s string) (Selector, error) {
	var sel Selector
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return sel, fmt.Errorf("%w %q: %s", ErrInvalidSelector, s, err)
	}
	if len(b) != len(sel) {
		return sel, fmt.Errorf("%w %q: expected %d bytes, got %d", ErrInvalidSelector, s, len(sel), len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

func MustParseSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// MethodSelector derives the selector of a canonical method signature, e.g.
// "bridgeTo(address,address,uint256,string)".
func MethodSelector(signature string) Selector {
	var sel Selector
	copy(sel[:], crypto.Keccak256([]byte(signature)))
	return sel
}

func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}

func (s *Selector) UnmarshalText(text []byte) error {
	sel, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type argument struct {
	word    common.Hash
	dynamic []byte
	isDyn   bool
}

// CallData builds ABI encoded call data: the selector, one head word per
// argument and the tail holding dynamic payloads. Offsets stored in the head
// are counted from the first byte after the selector.
type CallData struct {
	selector Selector
	args     []argument
}

func NewCallData(selector Selector) *CallData {
	return &CallData{selector: selector}
}

func (c *CallData) Word(w common.Hash) *CallData {
	c.args = append(c.args, argument{word: w})
	return c
}

func (c *CallData) Uint256(v *uint256.Int) *CallData {
	return c.Word(v.Bytes32())
}

func (c *CallData) Uint64(v uint64) *CallData {
	return c.Uint256(uint256.NewInt(v))
}

func (c *CallData) Address(addr common.Address) *CallData {
	return c.Word(common.BytesToHash(addr[:]))
}

func (c *CallData) Text(s string) *CallData {
	return c.DynamicBytes([]byte(s))
}

func (c *CallData) DynamicBytes(b []byte) *CallData {
	payload := make([]byte, WordSize+paddedLen(len(b)))
	length := uint256.NewInt(uint64(len(b))).Bytes32()
	copy(payload, length[:])
	copy(payload[WordSize:], b)
	c.args = append(c.args, argument{dynamic: payload, isDyn: true})
	return c
}

// HeadSize is the size of the static block following the selector.
func (c *CallData) HeadSize() int {
	return len(c.args) * WordSize
}

func (c *CallData) Bytes() []byte {
	size := len(c.selector) + c.HeadSize()
	for _, arg := range c.args {
		size += len(arg.dynamic)
	}
	res := make([]byte, 0, size)
	res = append(res, c.selector[:]...)

	offset := uint64(c.HeadSize())
	for _, arg := range c.args {
		if !arg.isDyn {
			res = append(res, arg.word[:]...)
			continue
		}
		word := uint256.NewInt(offset).Bytes32()
		res = append(res, word[:]...)
		offset += uint64(len(arg.dynamic))
	}
	for _, arg := range c.args {
		res = append(res, arg.dynamic...)
	}
	return res
}

func paddedLen(n int) int {
	return (n + WordSize - 1) / WordSize * WordSize
}
