package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract/abi"
)

type RegisterParams struct {
	// EVMAddress is the ERC20 counterpart proposed by the issuer.
	EVMAddress common.Address
	Account    antelope.Name
	Symbol     antelope.Symbol
	RequestID  uint64
}

// RegisterPair asks the EVM register contract to approve a new pair for a
// home chain token. Only the token issuer may call it, and a symbol can't be
// registered or awaiting approval twice.
func (b *Bridge) RegisterPair(ctx context.Context, actor antelope.Name, params RegisterParams) error {
	err := b.execute(ctx, func(ctx context.Context, c *call) error {
		cfg, err := b.loadConfig(ctx, c.repo)
		if err != nil {
			return err
		}
		code := params.Symbol.Code
		stat, err := b.chain.Stat(ctx, params.Account, code)
		if err != nil {
			if errors.Is(err, antelope.ErrTokenNotFound) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("can't get token stat: %w", err)
		}
		if err = requireAuth(actor, stat.Issuer); err != nil {
			return err
		}
		if stat.Supply.Symbol.Precision != params.Symbol.Precision {
			return fmt.Errorf("%w: %s != %s", ErrPrecisionMismatch, params.Symbol, stat.Supply.Symbol)
		}
		if params.EVMAddress == (common.Address{}) {
			return ErrInvalidEVMAddress
		}

		registry := b.registry(cfg)
		registered, err := registry.IsRegistered(ctx, code)
		if err != nil {
			return fmt.Errorf("can't read pairs: %w", err)
		}
		if registered {
			return ErrAlreadyRegistered
		}
		awaiting, err := registry.IsAwaitingApproval(ctx, code)
		if err != nil {
			return fmt.Errorf("can't read register requests: %w", err)
		}
		if awaiting {
			return ErrAwaitingApproval
		}

		data := abi.NewCallData(b.cfg.Bridge.Selectors.SignRegistration).
			Uint64(params.RequestID).
			Uint64(uint64(params.Symbol.Precision)).
			Text(params.Account.String()).
			Text(stat.Issuer.String()).
			Text(code.String()).
			Bytes()
		return b.emitTx(ctx, c, "sign_registration_request", cfg.RegisterAddress, data)
	})
	observeResult(RegistrationResults, err)
	if err != nil {
		return err
	}
	b.logger.WithFields(logrus.Fields{
		"token":       params.Account,
		"symbol":      params.Symbol.String(),
		"evm_address": params.EVMAddress,
		"request_id":  params.RequestID,
	}).Info("requested pair registration")
	return nil
}
