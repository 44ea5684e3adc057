package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/config"
	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/ethclient"
	"github.com/omni/tokenbridge-antelope/evm"
	"github.com/omni/tokenbridge-antelope/logging"
	"github.com/omni/tokenbridge-antelope/monitor"
	"github.com/omni/tokenbridge-antelope/presenter"
	"github.com/omni/tokenbridge-antelope/repository"
	"github.com/omni/tokenbridge-antelope/repository/memory"
)

// DevGasPrice is the gas price of the in-process EVM state.
var DevGasPrice = big.NewInt(499809179185)

// App holds the collaborators shared by the binaries.
type App struct {
	Config  *config.Config
	Chain   *antelope.MemoryChain
	State   evm.State
	Store   repository.Store
	Bridge  *bridge.Bridge
	Monitor *monitor.Monitor

	close func() error
}

// New wires the bridge. Storage is postgres when configured and in process
// otherwise; the EVM side is a JSON-RPC node when configured and in process
// otherwise. The home chain side is always the in-process chain.
func New(cfg *config.Config, logger logging.Logger) (*App, error) {
	a := &App{Config: cfg, close: func() error { return nil }}

	if cfg.DBConfig != nil {
		conn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
		if err != nil {
			return nil, fmt.Errorf("can't connect to database and apply migrations: %w", err)
		}
		a.Store = repository.NewPostgresStore(conn)
		a.close = conn.Close
	} else {
		logger.Warn("postgres is not configured, using in-memory storage")
		a.Store = memory.NewStore()
	}

	a.Chain = antelope.NewMemoryChain()
	a.Chain.CreateAccount(cfg.Contract)
	a.Chain.CreateAccount(cfg.EVM.SystemAccount)
	if err := seedHome(a.Chain, cfg.Home); err != nil {
		_ = a.close()
		return nil, err
	}

	if cfg.EVM.RPC != nil {
		client, err := ethclient.NewClient(cfg.EVM.RPC.Host, cfg.EVM.RPC.Timeout, strconv.FormatUint(cfg.EVM.ChainID, 10))
		if err != nil {
			_ = a.close()
			return nil, fmt.Errorf("can't dial evm rpc client: %w", err)
		}
		accounts := make([]evm.Account, len(cfg.EVM.Accounts))
		for i, acc := range cfg.EVM.Accounts {
			accounts[i] = evm.Account{Address: acc.Address, Account: acc.Account}
		}
		a.State = evm.NewRPCState(client, accounts)
		rawLogger := logger.WithField("service", "raw")
		a.Chain.SetRawHandler(func(_ context.Context, actions []*antelope.RawAction) error {
			for _, action := range actions {
				rawLogger.WithField("sender", action.SenderAddress).
					WithField("tx", hex.EncodeToString(action.Tx)).
					Info("relaying evm transaction")
			}
			return nil
		})
	} else {
		logger.Warn("evm rpc is not configured, using in-memory evm state")
		state := evm.NewMemoryState(DevGasPrice)
		for _, acc := range cfg.EVM.Accounts {
			state.CreateAccount(acc.Address, acc.Account)
		}
		a.State = state
		a.Chain.SetRawHandler(state.Relay)
	}

	a.Bridge = bridge.New(cfg, a.Store, a.Chain, a.State, logger.WithField("service", "bridge"))
	a.Chain.OnTransfer(cfg.Contract, a.Bridge.OnTransfer)
	a.Monitor = monitor.NewMonitor(logger.WithField("service", "monitor"), a.Bridge, cfg.Bridge)
	return a, nil
}

// NewPresenter serves the bridge over HTTP. Actions on the home chain are
// exposed only when the presenter config enables them.
func (a *App) NewPresenter(logger logging.Logger) *presenter.Presenter {
	var opts []presenter.Option
	if a.Config.Presenter != nil && a.Config.Presenter.Admin {
		opts = append(opts, presenter.WithAdmin(a.Bridge), presenter.WithTransfers(a.Chain))
	}
	return presenter.NewPresenter(logger, a.Bridge, a.Monitor, opts...)
}

func seedHome(chain *antelope.MemoryChain, cfg *config.HomeConfig) error {
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.Accounts {
		chain.CreateAccount(name)
	}
	for _, t := range cfg.Tokens {
		chain.CreateToken(t.Contract, t.Issuer, t.MaxSupply)
		for owner, balance := range t.Balances {
			if err := chain.Issue(t.Contract, owner, balance); err != nil {
				return fmt.Errorf("can't issue %s to %s: %w", balance, owner, err)
			}
		}
	}
	return nil
}

func (a *App) Close() error {
	return a.close()
}
