// Package config defines the top-level configuration for pairprobe and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PAIRPROBE_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Exchange ExchangeConfig `toml:"exchange"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Advisory AdvisoryConfig `toml:"advisory"`
	Probe    ProbeConfig    `toml:"probe"`
	Security SecurityConfig `toml:"security"`
	Worker   WorkerConfig   `toml:"worker"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	DataDir  string         `toml:"data_dir"`
	LogDir   string         `toml:"log_dir"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the trading wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds RPC endpoint and chain-level token addresses.
type ChainConfig struct {
	RPCURL string `toml:"rpc_url"`
	// ChainID is used for transaction signing; 8453 is Base mainnet.
	ChainID int64 `toml:"chain_id"`
	// WETHAddress is the wrapped native asset every pair is quoted against.
	WETHAddress string `toml:"weth_address"`
	// USDCAddress is the reference stable used to express liquidity in USD.
	USDCAddress string `toml:"usdc_address"`
}

// ExchangeConfig holds the Uniswap V2 deployment addresses.
type ExchangeConfig struct {
	RouterAddress  string `toml:"router_address"`
	FactoryAddress string `toml:"factory_address"`
}

// RedisConfig holds Redis connection parameters and the discovery queue key.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// QueueKey is the list the pair scanner pushes discovery events onto.
	QueueKey string `toml:"queue_key"`
	// StatusChannel is the pub/sub channel for live dashboard updates.
	StatusChannel string `toml:"status_channel"`
}

// PostgresConfig holds the optional run-history database parameters.
// Leave DSN and Host empty to disable the history store.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for the record
// archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// RetentionDays is how long finalized records stay on local disk
	// after being archived.
	RetentionDays int `toml:"retention_days"`
	// ArchiveInterval is how often the archiver scans for records to upload.
	ArchiveInterval duration `toml:"archive_interval"`
}

// AdvisoryConfig holds the LLM decision service parameters.
type AdvisoryConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// ProbeConfig holds the trade-probe parameters. SlippageTiersPct is
// ordered tightest first; the executor only moves to a looser tier after
// the tighter one fails.
type ProbeConfig struct {
	SlippageTiersPct []int    `toml:"slippage_tiers_pct"`
	BuyAmountEth     string   `toml:"buy_amount_eth"`
	WaitMin          duration `toml:"wait_min"`
	WaitMax          duration `toml:"wait_max"`
	MinLiquidityUSD  string   `toml:"min_liquidity_usd"`
	GasSpeed         string   `toml:"gas_speed"`
}

// SecurityConfig is the rule-set policy for the safety screen. Which
// functions and bytecode fragments are dangerous is operator-owned data,
// not code.
type SecurityConfig struct {
	WarningFunctions []string   `toml:"warning_functions"`
	BadFunctions     []string   `toml:"bad_functions"`
	FunctionCombos   [][]string `toml:"function_combos"`
	WarningLines     []string   `toml:"warning_lines"`
	BadLines         []string   `toml:"bad_lines"`
}

// WorkerConfig holds worker-loop parameters.
type WorkerConfig struct {
	// Concurrency is the maximum number of probe runs in flight at once.
	Concurrency int `toml:"concurrency"`
	// DrainOnStart clears the discovery queue before the first pop.
	DrainOnStart bool `toml:"drain_on_start"`
	// StageTimeout bounds every external call a run makes.
	StageTimeout duration `toml:"stage_timeout"`
	// MaxCPUPercent refuses new runs while system CPU is above this; 0
	// disables the gate.
	MaxCPUPercent float64 `toml:"max_cpu_percent"`
}

// ServerConfig holds dashboard HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables request authentication when non-empty.
	APIKey string `toml:"api_key"`
	// RateLimitPerSec caps requests per client IP; 0 disables limiting.
	RateLimitPerSec int `toml:"rate_limit_per_sec"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// Chain addresses default to Base mainnet.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:      "https://mainnet.base.org",
			ChainID:     8453,
			WETHAddress: "0x4200000000000000000000000000000000000006",
			USDCAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		Exchange: ExchangeConfig{
			RouterAddress:  "0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24",
			FactoryAddress: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			DB:            2,
			PoolSize:      20,
			MaxRetries:    3,
			QueueKey:      "NewToken",
			StatusChannel: "probe_status",
		},
		Postgres: PostgresConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "pairprobe",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "pairprobe-records",
			UseSSL:          false,
			ForcePathStyle:  true,
			RetentionDays:   30,
			ArchiveInterval: duration{1 * time.Hour},
		},
		Advisory: AdvisoryConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: duration{60 * time.Second},
		},
		Probe: ProbeConfig{
			SlippageTiersPct: []int{3, 5},
			BuyAmountEth:     "0.0002",
			WaitMin:          duration{5 * time.Minute},
			WaitMax:          duration{9 * time.Minute},
			MinLiquidityUSD:  "1",
			GasSpeed:         "medium",
		},
		Security: SecurityConfig{
			WarningFunctions: []string{"setTaxes", "setFee"},
			BadFunctions:     []string{"blacklist", "setMaxTxAmount", "pauseTrading"},
			FunctionCombos:   [][]string{{"setBots", "delBots"}},
			WarningLines:     nil,
			BadLines:         nil,
		},
		Worker: WorkerConfig{
			Concurrency:   4,
			DrainOnStart:  false,
			StageTimeout:  duration{90 * time.Second},
			MaxCPUPercent: 85,
		},
		Server: ServerConfig{
			Enabled:         false,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitPerSec: 20,
		},
		Notify: NotifyConfig{
			Events: []string{"honeypot_detected", "successful_sell", "error"},
		},
		DataDir:  "data",
		LogDir:   "logs",
		Mode:     "worker",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"worker":    true,
	"dashboard": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validGasSpeeds enumerates the accepted values for Probe.GasSpeed.
var validGasSpeeds = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: worker, dashboard, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet settings are required whenever probes can execute.
	needsWallet := c.Mode == "worker" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if !isHexAddress(c.Chain.WETHAddress) {
		errs = append(errs, fmt.Sprintf("chain: weth_address %q is not a valid address", c.Chain.WETHAddress))
	}
	if !isHexAddress(c.Chain.USDCAddress) {
		errs = append(errs, fmt.Sprintf("chain: usdc_address %q is not a valid address", c.Chain.USDCAddress))
	}

	// Exchange
	if !isHexAddress(c.Exchange.RouterAddress) {
		errs = append(errs, fmt.Sprintf("exchange: router_address %q is not a valid address", c.Exchange.RouterAddress))
	}
	if !isHexAddress(c.Exchange.FactoryAddress) {
		errs = append(errs, fmt.Sprintf("exchange: factory_address %q is not a valid address", c.Exchange.FactoryAddress))
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.QueueKey == "" {
		errs = append(errs, "redis: queue_key must not be empty")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" && c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetentionDays < 0 {
			errs = append(errs, "s3: retention_days must be >= 0")
		}
	}

	// Advisory
	if c.Advisory.BaseURL == "" {
		errs = append(errs, "advisory: base_url must not be empty")
	}
	if needsWallet && c.Advisory.APIKey == "" {
		errs = append(errs, "advisory: api_key is required for mode "+c.Mode)
	}

	// Probe
	if len(c.Probe.SlippageTiersPct) == 0 {
		errs = append(errs, "probe: slippage_tiers_pct must list at least one tier")
	}
	for i, pct := range c.Probe.SlippageTiersPct {
		if pct <= 0 || pct >= 100 {
			errs = append(errs, fmt.Sprintf("probe: slippage tier %d must be in (0, 100), got %d", i, pct))
		}
		if i > 0 && pct <= c.Probe.SlippageTiersPct[i-1] {
			errs = append(errs, "probe: slippage_tiers_pct must be strictly increasing (tightest first)")
		}
	}
	if c.Probe.WaitMin.Duration <= 0 || c.Probe.WaitMax.Duration < c.Probe.WaitMin.Duration {
		errs = append(errs, "probe: wait_min must be positive and wait_max >= wait_min")
	}
	if !validGasSpeeds[c.Probe.GasSpeed] {
		errs = append(errs, fmt.Sprintf("probe: gas_speed must be low, medium, or high, got %q", c.Probe.GasSpeed))
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		errs = append(errs, "worker: concurrency must be >= 1")
	}
	if c.Worker.MaxCPUPercent < 0 || c.Worker.MaxCPUPercent > 100 {
		errs = append(errs, "worker: max_cpu_percent must be in [0, 100]")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isHexAddress reports whether s looks like a 0x-prefixed 20-byte hex
// address. Checksum casing is not enforced here.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
