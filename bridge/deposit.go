package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/contract/abi"
)

const memoAddressLength = 2 + 2*common.AddressLength

// OnTransfer handles a token transfer notification: tokens sent to the
// contract with an EVM address as memo are locked and minted on the EVM side
// by the bridge contract. A returned error makes the home chain revert the
// transfer.
func (b *Bridge) OnTransfer(ctx context.Context, n *antelope.TransferNotification) error {
	if n.From == b.self {
		return nil
	}
	err := b.deposit(ctx, n)
	observeResult(DepositResults, err)
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"token":    n.Contract,
			"from":     n.From,
			"quantity": n.Quantity.String(),
		}).Warn("rejected deposit")
	}
	return err
}

func (b *Bridge) deposit(ctx context.Context, n *antelope.TransferNotification) error {
	if n.To != b.self {
		return ErrWrongRecipient
	}
	receiver, err := parseMemoAddress(n.Memo)
	if err != nil {
		return err
	}
	if n.Quantity.Amount < 1 {
		return ErrMinimumAmount
	}

	c := &call{repo: b.store.Repo()}
	cfg, err := b.loadConfig(ctx, c.repo)
	if err != nil {
		return err
	}
	pair, err := b.registry(cfg).FindPair(ctx, n.Contract, n.Quantity.Symbol.Code)
	if err != nil {
		if errors.Is(err, contract.ErrPairNotFound) {
			return ErrPairNotRegistered
		}
		return fmt.Errorf("can't lookup pair: %w", err)
	}
	if !pair.Active {
		return ErrPairInactive
	}
	amount, err := ToEVMAmount(n.Quantity.Amount, n.Quantity.Symbol.Precision, pair.EVMDecimals)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrMinimumAmount
	}

	data := abi.NewCallData(b.cfg.Bridge.Selectors.BridgeTo).
		Address(pair.EVMAddress).
		Address(receiver).
		Uint256(amount).
		Text(n.From.String()).
		Bytes()
	if err = b.emitTx(ctx, c, "bridge_to", cfg.BridgeAddress, data); err != nil {
		return err
	}
	if err = b.flush(ctx, c); err != nil {
		return err
	}

	b.logger.WithFields(logrus.Fields{
		"token":    n.Contract,
		"from":     n.From,
		"receiver": receiver,
		"quantity": n.Quantity.String(),
		"amount":   amount.Dec(),
	}).Info("bridged deposit to evm")
	return nil
}

// parseMemoAddress accepts only the 0x prefixed hex form of an address.
func parseMemoAddress(memo string) (common.Address, error) {
	if len(memo) != memoAddressLength || !common.IsHexAddress(memo) {
		return common.Address{}, ErrInvalidMemo
	}
	return common.HexToAddress(memo), nil
}
