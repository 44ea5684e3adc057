package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract"
)

const (
	ChainIDTestnet = 41
	ChainIDMainnet = 40

	DefaultGasLimit          = 250000
	DefaultMaxPerCall        = 2
	DefaultPruneWindow       = 60 * time.Second
	DefaultPruneBatch        = 15
	DefaultReconcileInterval = 30 * time.Second
	DefaultRPCTimeout        = 10 * time.Second
)

var ErrInvalidConfig = errors.New("invalid config")

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

type AccountConfig struct {
	Address common.Address `yaml:"address"`
	Account antelope.Name  `yaml:"account"`
}

type EVMConfig struct {
	ChainID       uint64        `yaml:"chain_id"`
	GasLimit      uint64        `yaml:"gas_limit"`
	SystemAccount antelope.Name `yaml:"system_account"`
	RPC           *RPCConfig    `yaml:"rpc"`
	// Accounts are listed in registry order, the position of an account is
	// its storage scope.
	Accounts []AccountConfig `yaml:"accounts"`
}

// LayoutConfig overrides the storage index or the struct width of one
// contract array. Unset members keep their defaults.
type LayoutConfig struct {
	Index *uint64 `yaml:"index"`
	Width *uint64 `yaml:"width"`
}

type StorageConfig struct {
	Pairs            *LayoutConfig `yaml:"pairs"`
	RegisterRequests *LayoutConfig `yaml:"register_requests"`
	Requests         *LayoutConfig `yaml:"requests"`
	Refunds          *LayoutConfig `yaml:"refunds"`
}

// Layouts are the resolved storage layouts of the contract arrays.
type Layouts struct {
	Pairs            contract.Layout
	RegisterRequests contract.Layout
	Requests         contract.Layout
	Refunds          contract.Layout
}

type BridgeConfig struct {
	MaxRequestsPerCall uint64              `yaml:"max_requests_per_call"`
	MaxRefundsPerCall  uint64              `yaml:"max_refunds_per_call"`
	PruneWindow        time.Duration       `yaml:"prune_window"`
	PruneBatch         uint64              `yaml:"prune_batch"`
	ReconcileInterval  time.Duration       `yaml:"reconcile_interval"`
	Storage            *StorageConfig      `yaml:"storage"`
	Layouts            Layouts             `yaml:"-"`
	Selectors          *contract.Selectors `yaml:"selectors"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
	// Admin enables the endpoints executing actions on the home chain.
	Admin bool `yaml:"admin"`
}

type TokenConfig struct {
	Contract  antelope.Name                    `yaml:"contract"`
	Issuer    antelope.Name                    `yaml:"issuer"`
	MaxSupply antelope.Asset                   `yaml:"max_supply"`
	Balances  map[antelope.Name]antelope.Asset `yaml:"balances"`
}

// HomeConfig seeds the in-process home chain.
type HomeConfig struct {
	Accounts []antelope.Name `yaml:"accounts"`
	Tokens   []TokenConfig   `yaml:"tokens"`
}

type Config struct {
	Contract  antelope.Name    `yaml:"contract"`
	EVM       *EVMConfig       `yaml:"evm"`
	Bridge    *BridgeConfig    `yaml:"bridge"`
	DBConfig  *DBConfig        `yaml:"postgres"`
	LogLevel  logrus.Level     `yaml:"log_level"`
	Presenter *PresenterConfig `yaml:"presenter"`
	Home      *HomeConfig      `yaml:"home"`
}

// envOverrides are the settings that can be replaced with BRIDGE_* variables.
type envOverrides struct {
	LogLevel         string `envconfig:"LOG_LEVEL"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PresenterHost    string `envconfig:"PRESENTER_HOST"`
	RPCHost          string `envconfig:"RPC_HOST"`
}

// readYamlConfig rejects unknown keys. An empty document yields an empty
// config, so that defaults and validation still apply.
func readYamlConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	dec := yaml.NewDecoder(bytes.NewReader(blob))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse yaml: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("bridge", &env); err != nil {
		return fmt.Errorf("can't process environment: %w", err)
	}
	if env.LogLevel != "" {
		lvl, err := logrus.ParseLevel(env.LogLevel)
		if err != nil {
			return fmt.Errorf("%w: log level: %s", ErrInvalidConfig, err)
		}
		cfg.LogLevel = lvl
	}
	if env.PostgresPassword != "" && cfg.DBConfig != nil {
		cfg.DBConfig.Password = env.PostgresPassword
	}
	if env.PresenterHost != "" {
		if cfg.Presenter == nil {
			cfg.Presenter = new(PresenterConfig)
		}
		cfg.Presenter.Host = env.PresenterHost
	}
	if env.RPCHost != "" && cfg.EVM != nil {
		if cfg.EVM.RPC == nil {
			cfg.EVM.RPC = new(RPCConfig)
		}
		cfg.EVM.RPC.Host = env.RPCHost
	}
	return nil
}

func processConfig(cfg *Config) error {
	if cfg.Contract.IsEmpty() {
		return fmt.Errorf("%w: contract account is required", ErrInvalidConfig)
	}
	if cfg.LogLevel == logrus.PanicLevel {
		cfg.LogLevel = logrus.InfoLevel
	}
	if cfg.EVM == nil {
		cfg.EVM = new(EVMConfig)
	}
	if cfg.EVM.ChainID == 0 {
		return fmt.Errorf("%w: evm chain id is required", ErrInvalidConfig)
	}
	if cfg.EVM.GasLimit == 0 {
		cfg.EVM.GasLimit = DefaultGasLimit
	}
	if cfg.EVM.SystemAccount.IsEmpty() {
		cfg.EVM.SystemAccount = "eosio.evm"
	}
	if cfg.EVM.RPC != nil && cfg.EVM.RPC.Timeout == 0 {
		cfg.EVM.RPC.Timeout = DefaultRPCTimeout
	}

	if cfg.Bridge == nil {
		cfg.Bridge = new(BridgeConfig)
	}
	b := cfg.Bridge
	if b.MaxRequestsPerCall == 0 {
		b.MaxRequestsPerCall = DefaultMaxPerCall
	}
	if b.MaxRefundsPerCall == 0 {
		b.MaxRefundsPerCall = DefaultMaxPerCall
	}
	if b.PruneWindow == 0 {
		b.PruneWindow = DefaultPruneWindow
	}
	if b.PruneWindow < 0 {
		return fmt.Errorf("%w: negative prune window", ErrInvalidConfig)
	}
	if b.PruneBatch == 0 {
		b.PruneBatch = DefaultPruneBatch
	}
	if b.ReconcileInterval == 0 {
		b.ReconcileInterval = DefaultReconcileInterval
	}
	if b.Storage == nil {
		b.Storage = new(StorageConfig)
	}
	var err error
	if b.Layouts.Pairs, err = resolveLayout("pairs", b.Storage.Pairs, contract.DefaultPairLayout); err != nil {
		return err
	}
	if b.Layouts.RegisterRequests, err = resolveLayout("register_requests", b.Storage.RegisterRequests, contract.DefaultRegisterRequestLayout); err != nil {
		return err
	}
	if b.Layouts.Requests, err = resolveLayout("requests", b.Storage.Requests, contract.DefaultBridgeRequestLayout.Layout); err != nil {
		return err
	}
	if b.Layouts.Refunds, err = resolveLayout("refunds", b.Storage.Refunds, contract.DefaultBridgeRefundLayout.Layout); err != nil {
		return err
	}
	if b.Selectors == nil {
		selectors := contract.DefaultSelectors
		b.Selectors = &selectors
	}

	if cfg.Home == nil {
		cfg.Home = new(HomeConfig)
	}
	return processHomeConfig(cfg.Home)
}

func processHomeConfig(cfg *HomeConfig) error {
	for i, t := range cfg.Tokens {
		if t.Contract.IsEmpty() || t.Issuer.IsEmpty() {
			return fmt.Errorf("%w: home.tokens[%d] needs a contract and an issuer", ErrInvalidConfig, i)
		}
		if !t.MaxSupply.IsValid() || t.MaxSupply.Amount <= 0 {
			return fmt.Errorf("%w: home.tokens[%d] max supply %s is invalid", ErrInvalidConfig, i, t.MaxSupply)
		}
		var total int64
		for owner, balance := range t.Balances {
			if balance.Symbol != t.MaxSupply.Symbol || balance.Amount < 0 {
				return fmt.Errorf("%w: home.tokens[%d] balance of %s is not in %s", ErrInvalidConfig, i, owner, t.MaxSupply.Symbol)
			}
			total += balance.Amount
		}
		if total > t.MaxSupply.Amount {
			return fmt.Errorf("%w: home.tokens[%d] balances exceed the max supply", ErrInvalidConfig, i)
		}
	}
	return nil
}

// resolveLayout keeps the member offsets of def, so a struct can only grow.
func resolveLayout(name string, override *LayoutConfig, def contract.Layout) (contract.Layout, error) {
	res := def
	if override == nil {
		return res, nil
	}
	if override.Index != nil {
		res.Index = *override.Index
	}
	if override.Width != nil {
		if *override.Width < def.Width {
			return res, fmt.Errorf("%w: storage.%s width %d is less than %d members", ErrInvalidConfig, name, *override.Width, def.Width)
		}
		res.Width = *override.Width
	}
	return res, nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg, err := readYamlConfig(blob)
	if err != nil {
		return nil, err
	}
	if err = applyEnv(cfg); err != nil {
		return nil, err
	}
	if err = processConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfigWithEnv expands ${VAR} references before parsing.
func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}
