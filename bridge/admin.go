package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/evm"
)

type InitParams struct {
	BridgeAddress   common.Address
	RegisterAddress common.Address
	Version         string
	Admin           antelope.Name
}

// Initialize creates the configuration of the contract. It must be called by
// the contract account itself and only once.
func (b *Bridge) Initialize(ctx context.Context, actor antelope.Name, params InitParams) error {
	err := b.execute(ctx, func(ctx context.Context, c *call) error {
		if err := requireAuth(actor, b.self); err != nil {
			return err
		}
		_, err := b.loadConfig(ctx, c.repo)
		switch {
		case err == nil:
			return ErrAlreadyInitialized
		case !errors.Is(err, ErrNotInitialized):
			return err
		}
		if err := b.requireAccount(ctx, params.Admin, ErrInitialAdminMissing); err != nil {
			return err
		}
		cfg := &entity.BridgeConfig{
			Contract: b.self,
			Admin:    params.Admin,
			Version:  params.Version,
		}
		if err := b.resolveScopes(ctx, cfg, params.BridgeAddress, params.RegisterAddress); err != nil {
			return err
		}
		if err := c.repo.Configs.Insert(ctx, cfg); err != nil {
			if errors.Is(err, entity.ErrAlreadyExists) {
				return ErrAlreadyInitialized
			}
			return fmt.Errorf("can't store bridge config: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.WithFields(logrus.Fields{
		"admin":            params.Admin,
		"bridge_address":   params.BridgeAddress,
		"register_address": params.RegisterAddress,
		"version":          params.Version,
	}).Info("initialized bridge contract")
	return nil
}

func (b *Bridge) SetVersion(ctx context.Context, actor antelope.Name, version string) error {
	return b.updateConfig(ctx, actor, func(ctx context.Context, cfg *entity.BridgeConfig) error {
		cfg.Version = version
		return nil
	})
}

// SetContractAddresses points the contract to new EVM bridge and register
// contracts. Both addresses must be known to the EVM system contract.
func (b *Bridge) SetContractAddresses(ctx context.Context, actor antelope.Name, bridgeAddress, registerAddress common.Address) error {
	return b.updateConfig(ctx, actor, func(ctx context.Context, cfg *entity.BridgeConfig) error {
		return b.resolveScopes(ctx, cfg, bridgeAddress, registerAddress)
	})
}

func (b *Bridge) SetAdmin(ctx context.Context, actor, admin antelope.Name) error {
	return b.updateConfig(ctx, actor, func(ctx context.Context, cfg *entity.BridgeConfig) error {
		if err := b.requireAccount(ctx, admin, ErrAdminNotFound); err != nil {
			return err
		}
		cfg.Admin = admin
		return nil
	})
}

func (b *Bridge) updateConfig(ctx context.Context, actor antelope.Name, update func(ctx context.Context, cfg *entity.BridgeConfig) error) error {
	return b.execute(ctx, func(ctx context.Context, c *call) error {
		cfg, err := b.loadConfig(ctx, c.repo)
		if err != nil {
			return err
		}
		if err = requireAuth(actor, cfg.Admin); err != nil {
			return err
		}
		if err = update(ctx, cfg); err != nil {
			return err
		}
		if err = c.repo.Configs.Update(ctx, cfg); err != nil {
			return fmt.Errorf("can't update bridge config: %w", err)
		}
		return nil
	})
}

func (b *Bridge) requireAccount(ctx context.Context, name antelope.Name, missing error) error {
	ok, err := b.chain.IsAccount(ctx, name)
	if err != nil {
		return fmt.Errorf("can't check account %s: %w", name, err)
	}
	if !ok {
		return missing
	}
	return nil
}

func (b *Bridge) resolveScopes(ctx context.Context, cfg *entity.BridgeConfig, bridgeAddress, registerAddress common.Address) error {
	bridgeAcc, err := b.lookupContract(ctx, bridgeAddress)
	if err != nil {
		return err
	}
	registerAcc, err := b.lookupContract(ctx, registerAddress)
	if err != nil {
		return err
	}
	cfg.BridgeAddress, cfg.BridgeScope = bridgeAddress, bridgeAcc.Index
	cfg.RegisterAddress, cfg.RegisterScope = registerAddress, registerAcc.Index
	return nil
}

func (b *Bridge) lookupContract(ctx context.Context, address common.Address) (*evm.Account, error) {
	acc, err := b.state.AccountByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, evm.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEVMContractNotFound, address)
		}
		return nil, fmt.Errorf("can't lookup evm account %s: %w", address, err)
	}
	return acc, nil
}
