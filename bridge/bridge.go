package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/config"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/contract/abi"
	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/evm"
	"github.com/omni/tokenbridge-antelope/logging"
	"github.com/omni/tokenbridge-antelope/repository"
)

// Chain is the part of the home chain the bridge talks to.
type Chain interface {
	antelope.Accounts
	antelope.TokenReader
	antelope.ActionSender
}

type Option func(b *Bridge)

// WithClock replaces the time source used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// Bridge is the home chain side of the token bridge. Entry points other than
// OnTransfer are serialized and each one runs in a single store transaction;
// the inline actions it produces are submitted before that transaction
// commits. Ledger entries of a call paid out but not committed are written
// again by the next call. OnTransfer runs inside the chain transaction that
// delivered it and only reads from the store.
type Bridge struct {
	cfg    *config.Config
	self   antelope.Name
	store  repository.Store
	chain  Chain
	state  evm.State
	logger logging.Logger
	now    func() time.Time

	mu          sync.Mutex
	unconfirmed []*unconfirmed
}

func New(cfg *config.Config, store repository.Store, chain Chain, state evm.State, logger logging.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		self:   cfg.Contract,
		store:  store,
		chain:  chain,
		state:  state,
		logger: logger.WithField("contract", cfg.Contract),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// call collects the effects of one entry point.
type call struct {
	repo     *repository.Repo
	actions  []antelope.Action
	account  *evm.Account
	gasPrice *big.Int
	emitted  uint64
	recorded []*unconfirmed
	flushed  bool
}

// unconfirmed is a ledger entry whose settlement was paid out while the
// transaction recording it failed to commit.
type unconfirmed struct {
	kind      entity.LedgerKind
	callID    common.Hash
	timestamp time.Time
}

func (b *Bridge) execute(ctx context.Context, fn func(ctx context.Context, c *call) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var c *call
	err := b.store.WithinTransaction(ctx, func(ctx context.Context, repo *repository.Repo) error {
		c = &call{repo: repo}
		if err := b.restoreUnconfirmed(ctx, repo); err != nil {
			return err
		}
		if err := fn(ctx, c); err != nil {
			return err
		}
		return b.flush(ctx, c)
	})
	if err != nil {
		if c != nil && c.flushed && len(c.recorded) > 0 {
			b.logger.WithError(err).WithField("entries", len(c.recorded)).Error("settlements were paid but not recorded")
			b.unconfirmed = append(b.unconfirmed, c.recorded...)
		}
		return err
	}
	b.unconfirmed = nil
	return nil
}

// restoreUnconfirmed writes back the entries of settlements paid by an
// earlier call that failed to commit, so they are never paid again.
func (b *Bridge) restoreUnconfirmed(ctx context.Context, repo *repository.Repo) error {
	for _, u := range b.unconfirmed {
		ledger, err := repo.Ledger(u.kind)
		if err != nil {
			return err
		}
		err = ledger.Insert(ctx, &entity.LedgerEntry{CallID: u.callID, Timestamp: u.timestamp})
		if err != nil && !errors.Is(err, entity.ErrAlreadyExists) {
			return fmt.Errorf("can't restore %s call id %s: %w", u.kind, u.callID, err)
		}
	}
	return nil
}

func (b *Bridge) flush(ctx context.Context, c *call) error {
	if len(c.actions) == 0 {
		return nil
	}
	if err := b.chain.SendActions(ctx, c.actions); err != nil {
		return fmt.Errorf("can't send inline actions: %w", err)
	}
	c.flushed = true
	return nil
}

func (b *Bridge) loadConfig(ctx context.Context, repo *repository.Repo) (*entity.BridgeConfig, error) {
	cfg, err := repo.Configs.Get(ctx, b.self)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("can't load bridge config: %w", err)
	}
	return cfg, nil
}

func (b *Bridge) transfer(c *call, action *antelope.TransferAction) {
	c.actions = append(c.actions, action)
}

// emitTx queues a raw action relaying a call to the EVM side, signed by the
// custodial account of the contract. Nonces follow each other within a call.
func (b *Bridge) emitTx(ctx context.Context, c *call, method string, to common.Address, data []byte) error {
	if c.account == nil {
		acc, err := b.state.AccountByName(ctx, b.self)
		if err != nil {
			if errors.Is(err, evm.ErrAccountNotFound) {
				return ErrEVMAccountNotFound
			}
			return fmt.Errorf("can't get evm account: %w", err)
		}
		price, err := b.state.GasPrice(ctx)
		if err != nil {
			return fmt.Errorf("can't get gas price: %w", err)
		}
		c.account, c.gasPrice = acc, price
	}
	tx := &abi.UnsignedTx{
		Nonce:    c.account.Nonce + c.emitted,
		GasPrice: c.gasPrice,
		GasLimit: b.cfg.EVM.GasLimit,
		To:       to,
		Value:    new(big.Int),
		Data:     data,
		ChainID:  new(big.Int).SetUint64(b.cfg.EVM.ChainID),
	}
	raw, err := tx.Encode()
	if err != nil {
		return err
	}
	c.actions = append(c.actions, &antelope.RawAction{
		Sender:        b.self,
		Tx:            raw,
		EstimateGas:   false,
		SenderAddress: c.account.Address,
	})
	c.emitted++
	EmittedTransactions.WithLabelValues(method).Inc()
	b.logger.WithFields(logrus.Fields{
		"method": method,
		"to":     to,
		"nonce":  tx.Nonce,
	}).Debug("queued evm transaction")
	return nil
}

func (b *Bridge) registry(cfg *entity.BridgeConfig) *contract.PairRegistry {
	layouts := b.cfg.Bridge.Layouts
	return contract.NewPairRegistry(
		contract.NewContract(b.state, cfg.RegisterAddress, cfg.RegisterScope),
		layouts.Pairs,
		layouts.RegisterRequests,
	)
}

func (b *Bridge) queue(cfg *entity.BridgeConfig, kind entity.LedgerKind) *contract.PendingQueue {
	c := contract.NewContract(b.state, cfg.BridgeAddress, cfg.BridgeScope)
	if kind == entity.LedgerRefunds {
		return contract.NewPendingQueue(c, contract.DefaultBridgeRefundLayout.At(b.cfg.Bridge.Layouts.Refunds))
	}
	return contract.NewPendingQueue(c, contract.DefaultBridgeRequestLayout.At(b.cfg.Bridge.Layouts.Requests))
}

// Config returns the stored configuration of the contract.
func (b *Bridge) Config(ctx context.Context) (*entity.BridgeConfig, error) {
	return b.loadConfig(ctx, b.store.Repo())
}

// Pairs lists the pairs of the EVM register contract.
func (b *Bridge) Pairs(ctx context.Context) ([]*contract.Pair, error) {
	cfg, err := b.Config(ctx)
	if err != nil {
		return nil, err
	}
	return b.registry(cfg).Pairs(ctx)
}

// LedgerEntries lists the most recent processed settlements of kind.
func (b *Bridge) LedgerEntries(ctx context.Context, kind entity.LedgerKind, limit uint64) ([]*entity.LedgerEntry, error) {
	repo, err := b.store.Repo().Ledger(kind)
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx, limit)
}
