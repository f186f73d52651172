package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PAIRPROBE_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PAIRPROBE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PAIRPROBE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PAIRPROBE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PAIRPROBE_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "PAIRPROBE_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "PAIRPROBE_CHAIN_ID")
	setStr(&cfg.Chain.WETHAddress, "PAIRPROBE_CHAIN_WETH_ADDRESS")
	setStr(&cfg.Chain.USDCAddress, "PAIRPROBE_CHAIN_USDC_ADDRESS")

	// ── Exchange ──
	setStr(&cfg.Exchange.RouterAddress, "PAIRPROBE_EXCHANGE_ROUTER_ADDRESS")
	setStr(&cfg.Exchange.FactoryAddress, "PAIRPROBE_EXCHANGE_FACTORY_ADDRESS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PAIRPROBE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PAIRPROBE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PAIRPROBE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PAIRPROBE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PAIRPROBE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PAIRPROBE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.QueueKey, "PAIRPROBE_REDIS_QUEUE_KEY")
	setStr(&cfg.Redis.StatusChannel, "PAIRPROBE_REDIS_STATUS_CHANNEL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PAIRPROBE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PAIRPROBE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PAIRPROBE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PAIRPROBE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PAIRPROBE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PAIRPROBE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PAIRPROBE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PAIRPROBE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PAIRPROBE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PAIRPROBE_POSTGRES_POOL_MIN_CONNS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PAIRPROBE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PAIRPROBE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PAIRPROBE_S3_REGION")
	setStr(&cfg.S3.Bucket, "PAIRPROBE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PAIRPROBE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PAIRPROBE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PAIRPROBE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PAIRPROBE_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "PAIRPROBE_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.ArchiveInterval, "PAIRPROBE_S3_ARCHIVE_INTERVAL")

	// ── Advisory ──
	setStr(&cfg.Advisory.BaseURL, "PAIRPROBE_ADVISORY_BASE_URL")
	setStr(&cfg.Advisory.APIKey, "PAIRPROBE_ADVISORY_API_KEY")
	setStr(&cfg.Advisory.Model, "PAIRPROBE_ADVISORY_MODEL")
	setDuration(&cfg.Advisory.Timeout, "PAIRPROBE_ADVISORY_TIMEOUT")

	// ── Probe ──
	setStr(&cfg.Probe.BuyAmountEth, "PAIRPROBE_PROBE_BUY_AMOUNT_ETH")
	setStr(&cfg.Probe.MinLiquidityUSD, "PAIRPROBE_PROBE_MIN_LIQUIDITY_USD")
	setDuration(&cfg.Probe.WaitMin, "PAIRPROBE_PROBE_WAIT_MIN")
	setDuration(&cfg.Probe.WaitMax, "PAIRPROBE_PROBE_WAIT_MAX")
	setStr(&cfg.Probe.GasSpeed, "PAIRPROBE_PROBE_GAS_SPEED")

	// ── Worker ──
	setInt(&cfg.Worker.Concurrency, "PAIRPROBE_WORKER_CONCURRENCY")
	setBool(&cfg.Worker.DrainOnStart, "PAIRPROBE_WORKER_DRAIN_ON_START")
	setDuration(&cfg.Worker.StageTimeout, "PAIRPROBE_WORKER_STAGE_TIMEOUT")
	setFloat64(&cfg.Worker.MaxCPUPercent, "PAIRPROBE_WORKER_MAX_CPU_PERCENT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PAIRPROBE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PAIRPROBE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PAIRPROBE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PAIRPROBE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerSec, "PAIRPROBE_SERVER_RATE_LIMIT_PER_SEC")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PAIRPROBE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PAIRPROBE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PAIRPROBE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PAIRPROBE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.DataDir, "PAIRPROBE_DATA_DIR")
	setStr(&cfg.LogDir, "PAIRPROBE_LOG_DIR")
	setStr(&cfg.Mode, "PAIRPROBE_MODE")
	setStr(&cfg.LogLevel, "PAIRPROBE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
