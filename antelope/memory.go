package antelope

import (
	"context"
	"fmt"
	"sync"
)

const maxMemoSize = 256

// RawHandler receives the raw actions of a successful batch. It must accept
// all of them or none.
type RawHandler func(ctx context.Context, actions []*RawAction) error

type balanceKey struct {
	contract Name
	owner    Name
	code     SymbolCode
}

type statKey struct {
	contract Name
	code     SymbolCode
}

type memoryState struct {
	accounts map[Name]bool
	stats    map[statKey]TokenStat
	balances map[balanceKey]int64
	executed []Action
}

func (s *memoryState) clone() *memoryState {
	res := &memoryState{
		accounts: make(map[Name]bool, len(s.accounts)),
		stats:    make(map[statKey]TokenStat, len(s.stats)),
		balances: make(map[balanceKey]int64, len(s.balances)),
		executed: append([]Action(nil), s.executed...),
	}
	for k, v := range s.accounts {
		res.accounts[k] = v
	}
	for k, v := range s.stats {
		res.stats[k] = v
	}
	for k, v := range s.balances {
		res.balances[k] = v
	}
	return res
}

// MemoryChain is an in-process home chain: accounts, token contracts,
// transfer notifications and atomic inline action batches.
type MemoryChain struct {
	mu         sync.Mutex
	state      *memoryState
	handlers   map[Name]TransferHandler
	rawHandler RawHandler
	pendingRaw []*RawAction
}

type chainTxKey struct{}

func NewMemoryChain() *MemoryChain {
	return &MemoryChain{
		state: &memoryState{
			accounts: make(map[Name]bool),
			stats:    make(map[statKey]TokenStat),
			balances: make(map[balanceKey]int64),
		},
		handlers: make(map[Name]TransferHandler),
	}
}

// SetRawHandler installs the receiver of raw actions. Raw actions are only
// delivered once the enclosing transaction succeeded, in one call.
func (c *MemoryChain) SetRawHandler(h RawHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rawHandler = h
}

// OnTransfer registers a notification handler for transfers received by
// account.
func (c *MemoryChain) OnTransfer(account Name, h TransferHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[account] = h
}

// lock is a no-op when ctx already runs inside a chain transaction, so that
// notification handlers may read chain state.
func (c *MemoryChain) lock(ctx context.Context) func() {
	if ctx.Value(chainTxKey{}) == c {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *MemoryChain) transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(chainTxKey{}) == c {
		return fn(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state.clone()
	c.pendingRaw = nil
	if err := fn(context.WithValue(ctx, chainTxKey{}, c)); err != nil {
		c.state = snapshot
		c.pendingRaw = nil
		return err
	}
	raws := c.pendingRaw
	c.pendingRaw = nil
	if c.rawHandler == nil || len(raws) == 0 {
		return nil
	}
	if err := c.rawHandler(ctx, raws); err != nil {
		c.state = snapshot
		return fmt.Errorf("raw action rejected: %w", err)
	}
	return nil
}

func (c *MemoryChain) CreateAccount(name Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.accounts[name] = true
}

// CreateToken registers a token contract symbol with its issuer.
func (c *MemoryChain) CreateToken(contract, issuer Name, maxSupply Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.accounts[contract] = true
	c.state.accounts[issuer] = true
	c.state.stats[statKey{contract, maxSupply.Symbol.Code}] = TokenStat{
		Supply:    NewAsset(0, maxSupply.Symbol),
		MaxSupply: maxSupply,
		Issuer:    issuer,
	}
}

func (c *MemoryChain) Issue(contract, to Name, quantity Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := statKey{contract, quantity.Symbol.Code}
	stat, ok := c.state.stats[key]
	if !ok {
		return fmt.Errorf("%w: %s@%s", ErrTokenNotFound, quantity.Symbol.Code, contract)
	}
	if quantity.Symbol != stat.Supply.Symbol {
		return fmt.Errorf("symbol precision mismatch: %s != %s", quantity.Symbol, stat.Supply.Symbol)
	}
	if stat.Supply.Amount+quantity.Amount > stat.MaxSupply.Amount {
		return fmt.Errorf("quantity exceeds available supply")
	}
	stat.Supply.Amount += quantity.Amount
	c.state.stats[key] = stat
	c.state.accounts[to] = true
	c.state.balances[balanceKey{contract, to, quantity.Symbol.Code}] += quantity.Amount
	return nil
}

func (c *MemoryChain) Balance(contract, owner Name, code SymbolCode) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.balances[balanceKey{contract, owner, code}]
}

// Executed returns every action applied so far, in order.
func (c *MemoryChain) Executed() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Action(nil), c.state.executed...)
}

func (c *MemoryChain) IsAccount(ctx context.Context, name Name) (bool, error) {
	defer c.lock(ctx)()
	return c.state.accounts[name], nil
}

func (c *MemoryChain) Stat(ctx context.Context, contract Name, code SymbolCode) (*TokenStat, error) {
	defer c.lock(ctx)()
	stat, ok := c.state.stats[statKey{contract, code}]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrTokenNotFound, code, contract)
	}
	return &stat, nil
}

// Transfer executes a user transfer, notifying the recipient. A failing
// notification rolls the transfer back.
func (c *MemoryChain) Transfer(ctx context.Context, contract, from, to Name, quantity Asset, memo string) error {
	return c.SendActions(ctx, []Action{&TransferAction{
		Contract: contract,
		From:     from,
		To:       to,
		Quantity: quantity,
		Memo:     memo,
	}})
}

func (c *MemoryChain) SendActions(ctx context.Context, actions []Action) error {
	return c.transact(ctx, func(ctx context.Context) error {
		for _, action := range actions {
			if err := c.apply(ctx, action); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *MemoryChain) apply(ctx context.Context, action Action) error {
	switch a := action.(type) {
	case *TransferAction:
		if err := c.transfer(a); err != nil {
			return fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
		c.state.executed = append(c.state.executed, a)
		if h := c.handlers[a.To]; h != nil {
			return h(ctx, &TransferNotification{
				Contract: a.Contract,
				From:     a.From,
				To:       a.To,
				Quantity: a.Quantity,
				Memo:     a.Memo,
			})
		}
		return nil
	case *RawAction:
		if len(a.Tx) == 0 {
			return fmt.Errorf("raw action without transaction")
		}
		c.state.executed = append(c.state.executed, a)
		c.pendingRaw = append(c.pendingRaw, a)
		return nil
	default:
		return fmt.Errorf("unsupported action %T", action)
	}
}

func (c *MemoryChain) transfer(a *TransferAction) error {
	if a.From == a.To {
		return fmt.Errorf("cannot transfer to self")
	}
	if !c.state.accounts[a.To] {
		return fmt.Errorf("to account %s does not exist", a.To)
	}
	stat, ok := c.state.stats[statKey{a.Contract, a.Quantity.Symbol.Code}]
	if !ok {
		return fmt.Errorf("unable to find key %s@%s", a.Quantity.Symbol.Code, a.Contract)
	}
	if !a.Quantity.IsValid() || a.Quantity.Amount <= 0 {
		return fmt.Errorf("must transfer positive quantity")
	}
	if a.Quantity.Symbol != stat.Supply.Symbol {
		return fmt.Errorf("symbol precision mismatch")
	}
	if len(a.Memo) > maxMemoSize {
		return fmt.Errorf("memo has more than %d bytes", maxMemoSize)
	}
	fromKey := balanceKey{a.Contract, a.From, a.Quantity.Symbol.Code}
	if c.state.balances[fromKey] < a.Quantity.Amount {
		return fmt.Errorf("overdrawn balance")
	}
	c.state.balances[fromKey] -= a.Quantity.Amount
	c.state.balances[balanceKey{a.Contract, a.To, a.Quantity.Symbol.Code}] += a.Quantity.Amount
	return nil
}
