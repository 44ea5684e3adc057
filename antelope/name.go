package antelope

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidName = errors.New("invalid account name")

const (
	nameCharset     = ".12345abcdefghijklmnopqrstuvwxyz"
	nameLastCharset = ".12345abcdefghij"
	maxNameLength   = 13
)

// Name is a validated home-chain account name.
type Name string

func NewName(s string) (Name, error) {
	if len(s) == 0 || len(s) > maxNameLength {
		return "", fmt.Errorf("%w %q: length must be between 1 and %d", ErrInvalidName, s, maxNameLength)
	}
	for i, c := range s {
		charset := nameCharset
		if i == maxNameLength-1 {
			charset = nameLastCharset
		}
		if !strings.ContainsRune(charset, c) {
			return "", fmt.Errorf("%w %q: unexpected character %q", ErrInvalidName, s, c)
		}
	}
	if strings.HasSuffix(s, ".") {
		return "", fmt.Errorf("%w %q: trailing dot", ErrInvalidName, s)
	}
	return Name(s), nil
}

func MustName(s string) Name {
	n, err := NewName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	return string(n)
}

func (n Name) IsEmpty() bool {
	return n == ""
}

func (n *Name) UnmarshalText(text []byte) error {
	parsed, err := NewName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func (n Name) MarshalText() ([]byte, error) {
	return []byte(n), nil
}
