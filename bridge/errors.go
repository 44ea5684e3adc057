package bridge

import (
	"errors"
	"fmt"

	"github.com/omni/tokenbridge-antelope/antelope"
)

// Messages match the ones reported by the deployed home chain contract.
//
//nolint:revive,stylecheck
var (
	ErrAlreadyInitialized  = errors.New("contract already initialized")
	ErrNotInitialized      = errors.New("contract is not initialized")
	ErrMissingAuthority    = errors.New("missing authority")
	ErrInitialAdminMissing = errors.New("initial admin account doesn't exist")
	ErrAdminNotFound       = errors.New("New admin account does not exist, please verify the account name provided")
	ErrEVMContractNotFound = errors.New("EVM bridge contract not found in eosio.evm accounts")
	ErrEVMAccountNotFound  = errors.New("EVM account not found for token.brdg")
	ErrWrongRecipient      = errors.New("Recipient is not this contract")
	ErrInvalidMemo         = errors.New("Memo needs to contain the 42 character EVM recipient address")
	ErrMinimumAmount       = errors.New("Minimum amount is not reached")
	ErrPairInactive        = errors.New("This token's pair is paused")
	ErrPairNotRegistered   = errors.New("This token has no pair registered on this bridge")
	ErrAlreadyRegistered   = errors.New("The token is already registered")
	ErrAwaitingApproval    = errors.New("The token is already awaiting approval")
	ErrTokenNotFound       = errors.New("Token not found. Make sure the symbol is correct.")
	ErrPrecisionMismatch   = errors.New("symbol precision mismatch")
	ErrInvalidEVMAddress   = errors.New("invalid EVM address")
	ErrAmountTooSmall      = errors.New("amount too small to settle")
	ErrAmountOverflow      = errors.New("amount overflows the target precision")
)

func requireAuth(actor, account antelope.Name) error {
	if actor != account {
		return fmt.Errorf("%w of %s", ErrMissingAuthority, account)
	}
	return nil
}
