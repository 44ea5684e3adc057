package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// UnsignedTx is a legacy transaction serialized as its EIP-155 signing
// payload: v carries the chain id, r and s are zero. The relaying system
// contract signs it with the custodial key of the sending account.
type UnsignedTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
}

type rlpUnsignedTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

func (tx *UnsignedTx) Encode() ([]byte, error) {
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("unsigned transaction requires a positive chain id")
	}
	res, err := rlp.EncodeToBytes(&rlpUnsignedTx{
		Nonce:    tx.Nonce,
		GasPrice: bigOrZero(tx.GasPrice),
		GasLimit: tx.GasLimit,
		To:       tx.To,
		Value:    bigOrZero(tx.Value),
		Data:     tx.Data,
		V:        tx.ChainID,
		R:        new(big.Int),
		S:        new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("can't rlp encode transaction: %w", err)
	}
	return res, nil
}

// SigningHash is the hash the relayer signs.
func (tx *UnsignedTx) SigningHash() (common.Hash, error) {
	raw, err := tx.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

func DecodeUnsignedTx(raw []byte) (*UnsignedTx, error) {
	var dec rlpUnsignedTx
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, fmt.Errorf("can't rlp decode transaction: %w", err)
	}
	if dec.R.Sign() != 0 || dec.S.Sign() != 0 {
		return nil, fmt.Errorf("transaction is already signed")
	}
	return &UnsignedTx{
		Nonce:    dec.Nonce,
		GasPrice: dec.GasPrice,
		GasLimit: dec.GasLimit,
		To:       dec.To,
		Value:    dec.Value,
		Data:     dec.Data,
		ChainID:  dec.V,
	}, nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
