package antelope

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAccountNotFound = errors.New("account does not exist")
	ErrTokenNotFound   = errors.New("token not found")
	ErrTransferFailed  = errors.New("token transfer failed")
)

// TokenStat mirrors a row of a token contract's stat table.
type TokenStat struct {
	Supply    Asset
	MaxSupply Asset
	Issuer    Name
}

type Accounts interface {
	IsAccount(ctx context.Context, name Name) (bool, error)
}

type TokenReader interface {
	Stat(ctx context.Context, contract Name, code SymbolCode) (*TokenStat, error)
}

// Action is one inline action emitted by an entry point.
type Action interface {
	actionName() string
}

type TransferAction struct {
	Contract Name
	From     Name
	To       Name
	Quantity Asset
	Memo     string
}

func (TransferAction) actionName() string { return "transfer" }

// RawAction asks the EVM system contract to execute an unsigned transaction
// on behalf of the custodial EVM account of Sender.
type RawAction struct {
	Sender        Name
	Tx            []byte
	EstimateGas   bool
	SenderAddress common.Address
}

func (RawAction) actionName() string { return "raw" }

func ActionName(a Action) string {
	return a.actionName()
}

// ActionSender submits a batch of inline actions. Either every action of the
// batch is applied or none is.
type ActionSender interface {
	SendActions(ctx context.Context, actions []Action) error
}

// TransferNotification is delivered to a contract when it is the recipient
// of a token transfer. Contract is the token contract that executed the
// transfer.
type TransferNotification struct {
	Contract Name
	From     Name
	To       Name
	Quantity Asset
	Memo     string
}

type TransferHandler func(ctx context.Context, n *TransferNotification) error
