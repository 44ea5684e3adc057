package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/contract/abi"
	"github.com/omni/tokenbridge-antelope/entity"
)

const (
	requestMemoPrefix = "Sent from tEVM by 0x"
	refundMemo        = "Bridge refund"
)

// ReconcileResult summarizes one reconciliation call. Empty is set when the
// EVM side has never written the pending array.
type ReconcileResult struct {
	Kind      entity.LedgerKind `json:"kind"`
	Pruned    uint64            `json:"pruned"`
	Pending   uint64            `json:"pending"`
	Processed uint64            `json:"processed"`
	Skipped   uint64            `json:"skipped"`
	Empty     bool              `json:"empty"`
}

// ReconcileRequests pays out pending EVM to home chain bridge requests.
func (b *Bridge) ReconcileRequests(ctx context.Context) (*ReconcileResult, error) {
	return b.Reconcile(ctx, entity.LedgerRequests)
}

// ReconcileRefunds pays back deposits the EVM side refused.
func (b *Bridge) ReconcileRefunds(ctx context.Context) (*ReconcileResult, error) {
	return b.Reconcile(ctx, entity.LedgerRefunds)
}

// Reconcile prunes the ledger of kind, then settles at most the configured
// number of pending entries from the head of the EVM side array. Every
// settled entry is recorded in the ledger, paid out with a token transfer and
// acknowledged to the EVM bridge contract, all in one atomic call.
func (b *Bridge) Reconcile(ctx context.Context, kind entity.LedgerKind) (*ReconcileResult, error) {
	logger := b.logger.WithField("kind", kind)
	var res *ReconcileResult
	err := b.execute(ctx, func(ctx context.Context, c *call) error {
		res = &ReconcileResult{Kind: kind}
		cfg, err := b.loadConfig(ctx, c.repo)
		if err != nil {
			return err
		}
		repo, err := c.repo.Ledger(kind)
		if err != nil {
			return err
		}
		ledger := NewLedger(repo, b.cfg.Bridge.PruneWindow)
		now := b.now()

		if res.Pruned, err = ledger.Prune(ctx, now, b.cfg.Bridge.PruneBatch); err != nil {
			return err
		}

		q := b.queue(cfg, kind)
		length, found, err := q.Len(ctx)
		if err != nil {
			return fmt.Errorf("can't read pending %s: %w", kind, err)
		}
		if !found {
			res.Empty = true
			return nil
		}
		res.Pending = length

		limit := b.maxPerCall(kind)
		for i := uint64(0); i < length && i < limit; i++ {
			s, err := q.Get(ctx, i)
			if err != nil {
				return fmt.Errorf("can't read pending %s %d: %w", kind, i, err)
			}
			if s.CallID == (common.Hash{}) {
				logger.WithField("index", i).Warn("pending settlement without call id, skipping")
				res.Skipped++
				continue
			}
			settled, err := b.settle(ctx, c, cfg, ledger, kind, s, now)
			if err != nil {
				return fmt.Errorf("can't settle %s %s: %w", kind, s.CallID, err)
			}
			if settled {
				res.Processed++
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		SettlementResults.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}

	PrunedEntries.WithLabelValues(string(kind)).Add(float64(res.Pruned))
	PendingSettlements.WithLabelValues(string(kind)).Set(float64(res.Pending))
	SettlementResults.WithLabelValues(string(kind), "processed").Add(float64(res.Processed))
	SettlementResults.WithLabelValues(string(kind), "skipped").Add(float64(res.Skipped))
	logger.WithFields(logrus.Fields{
		"pruned":    res.Pruned,
		"pending":   res.Pending,
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"empty":     res.Empty,
	}).Info("reconciled pending settlements")
	return res, nil
}

func (b *Bridge) maxPerCall(kind entity.LedgerKind) uint64 {
	if kind == entity.LedgerRefunds {
		return b.cfg.Bridge.MaxRefundsPerCall
	}
	return b.cfg.Bridge.MaxRequestsPerCall
}

// settle returns false when the call id was already processed.
func (b *Bridge) settle(ctx context.Context, c *call, cfg *entity.BridgeConfig, ledger *Ledger, kind entity.LedgerKind, s *contract.Settlement, now time.Time) (bool, error) {
	seen, err := ledger.Seen(ctx, s.CallID)
	if err != nil || seen {
		return false, err
	}

	// precision comes from the token itself, its issuer may have changed it
	// since the pair was registered
	stat, err := b.chain.Stat(ctx, s.TokenAccount, s.Symbol)
	if err != nil {
		if errors.Is(err, antelope.ErrTokenNotFound) {
			return false, fmt.Errorf("%w: %s@%s", ErrTokenNotFound, s.Symbol, s.TokenAccount)
		}
		return false, err
	}
	symbol := stat.Supply.Symbol
	amount, err := ToHomeAmount(s.Amount, s.EVMDecimals, symbol.Precision)
	if err != nil {
		return false, err
	}
	if amount == 0 {
		return false, fmt.Errorf("%w: %s with %d decimals", ErrAmountTooSmall, s.Amount, s.EVMDecimals)
	}

	result, err := ledger.Record(ctx, s.CallID, now)
	if err != nil || result == AlreadyExists {
		return false, err
	}
	c.recorded = append(c.recorded, &unconfirmed{kind: kind, callID: s.CallID, timestamp: now})

	memo, selector, method := refundMemo, b.cfg.Bridge.Selectors.RefundSuccess, "refund_success"
	if kind == entity.LedgerRequests {
		memo, selector, method = requestMemoPrefix+hex.EncodeToString(s.Sender[:]), b.cfg.Bridge.Selectors.RequestSuccess, "request_success"
	}
	quantity := antelope.NewAsset(amount, symbol)
	b.transfer(c, &antelope.TransferAction{
		Contract: s.TokenAccount,
		From:     b.self,
		To:       s.Receiver,
		Quantity: quantity,
		Memo:     memo,
	})
	data := abi.NewCallData(selector).Word(s.CallID).Bytes()
	if err = b.emitTx(ctx, c, method, cfg.BridgeAddress, data); err != nil {
		return false, err
	}

	b.logger.WithFields(logrus.Fields{
		"kind":     kind,
		"call_id":  s.CallID,
		"receiver": s.Receiver,
		"quantity": quantity.String(),
		"token":    s.TokenAccount,
	}).Info("settled pending entry")
	return true, nil
}
