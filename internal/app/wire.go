package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/advisory"
	s3blob "github.com/alanyoungcy/pairprobe/internal/blob/s3"
	"github.com/alanyoungcy/pairprobe/internal/chain"
	"github.com/alanyoungcy/pairprobe/internal/config"
	"github.com/alanyoungcy/pairprobe/internal/cpugate"
	"github.com/alanyoungcy/pairprobe/internal/crypto"
	"github.com/alanyoungcy/pairprobe/internal/domain"
	"github.com/alanyoungcy/pairprobe/internal/exchange"
	"github.com/alanyoungcy/pairprobe/internal/executor"
	"github.com/alanyoungcy/pairprobe/internal/liquidity"
	"github.com/alanyoungcy/pairprobe/internal/logbook"
	"github.com/alanyoungcy/pairprobe/internal/notify"
	"github.com/alanyoungcy/pairprobe/internal/pipeline"
	qredis "github.com/alanyoungcy/pairprobe/internal/queue/redis"
	"github.com/alanyoungcy/pairprobe/internal/safety"
	"github.com/alanyoungcy/pairprobe/internal/store/filestore"
	"github.com/alanyoungcy/pairprobe/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Book    *logbook.Book
	Records *filestore.Store
	History domain.RunHistoryStore

	Queue       domain.DiscoveryQueue
	Status      *qredis.StatusPublisher
	RateLimiter *qredis.RateLimiter

	Notifier *notify.Notifier
	Worker   *pipeline.Worker
	Archiver *s3blob.Archiver
}

// needsProbe reports whether the mode executes trades.
func needsProbe(mode string) bool {
	return mode == "worker" || mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration, returning them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	mode := strings.ToLower(cfg.Mode)
	deps := &Dependencies{}

	// --- Per-token log registry ---
	book, err := logbook.Open(cfg.LogDir, logLevel(cfg.LogLevel))
	if err != nil {
		return fail(fmt.Errorf("wire: logbook: %w", err))
	}
	closers = append(closers, func() { _ = book.Shutdown() })
	deps.Book = book

	// --- Record store ---
	records, err := filestore.Open(cfg.DataDir)
	if err != nil {
		return fail(fmt.Errorf("wire: filestore: %w", err))
	}
	deps.Records = records

	// --- Redis: discovery queue, status feed, rate limiter ---
	redisClient, err := qredis.New(ctx, qredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: redis: %w", err))
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	queue := qredis.NewDiscoveryQueue(redisClient, cfg.Redis.QueueKey)
	deps.Queue = queue
	deps.Status = qredis.NewStatusPublisher(redisClient, cfg.Redis.StatusChannel)
	deps.RateLimiter = qredis.NewRateLimiter(redisClient)

	if cfg.Worker.DrainOnStart {
		if err := queue.Drain(ctx); err != nil {
			return fail(fmt.Errorf("wire: drain queue: %w", err))
		}
	}

	// --- Run history (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("wire: postgres schema: %w", err))
		}
		deps.History = postgres.NewRunStore(pgClient.Pool())
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- S3 record archiver (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Archiver = s3blob.NewArchiver(
			s3Client,
			records.Dir(),
			cfg.S3.ArchiveInterval.Duration,
			cfg.S3.RetentionDays,
			logger,
		)
	}

	// --- Probe pipeline (worker and full modes only) ---
	if needsProbe(mode) {
		worker, err := wireProbe(ctx, cfg, deps, logger)
		if err != nil {
			return fail(err)
		}
		deps.Worker = worker
	}

	return deps, cleanup, nil
}

// wireProbe builds the trading side: chain client, wallet, exchange,
// gates, executor, flow, and worker.
func wireProbe(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*pipeline.Worker, error) {
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("wire: chain: %w", err)
	}

	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: wallet key: %w", err)
	}
	wallet, err := crypto.NewWallet(keyHex, big.NewInt(cfg.Chain.ChainID))
	if err != nil {
		return nil, fmt.Errorf("wire: wallet: %w", err)
	}

	weth := common.HexToAddress(cfg.Chain.WETHAddress)
	usdc := common.HexToAddress(cfg.Chain.USDCAddress)

	ex, err := exchange.New(chainClient, wallet, exchange.Config{
		Router:  common.HexToAddress(cfg.Exchange.RouterAddress),
		Factory: common.HexToAddress(cfg.Exchange.FactoryAddress),
		WETH:    weth,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: exchange: %w", err)
	}

	// The WETH/USDC reference pair anchors every USD liquidity estimate.
	basePair, err := ex.PairFor(ctx, weth, usdc)
	if err != nil {
		return nil, fmt.Errorf("wire: base pair: %w", err)
	}
	if !basePair.Valid {
		return nil, fmt.Errorf("wire: no %s/%s reference pair on factory", weth.Hex(), usdc.Hex())
	}
	liq := liquidity.NewCalculator(ex, weth, usdc, basePair)

	screen := safety.NewScreen(
		&safety.FunctionPresenceCheck{
			WarningFunctions: cfg.Security.WarningFunctions,
			BadFunctions:     cfg.Security.BadFunctions,
			Combos:           cfg.Security.FunctionCombos,
		},
		&safety.BadLinesCheck{
			WarningLines: cfg.Security.WarningLines,
			BadLines:     cfg.Security.BadLines,
		},
	)

	advisor := advisory.NewClient(
		cfg.Advisory.BaseURL,
		cfg.Advisory.APIKey,
		cfg.Advisory.Model,
		cfg.Advisory.Timeout.Duration,
	)

	buyAmount, err := decimal.NewFromString(cfg.Probe.BuyAmountEth)
	if err != nil {
		return nil, fmt.Errorf("wire: buy_amount_eth %q: %w", cfg.Probe.BuyAmountEth, err)
	}
	minLiquidity, err := decimal.NewFromString(cfg.Probe.MinLiquidityUSD)
	if err != nil {
		return nil, fmt.Errorf("wire: min_liquidity_usd %q: %w", cfg.Probe.MinLiquidityUSD, err)
	}
	gasSpeed := domain.GasSpeed(cfg.Probe.GasSpeed)

	exec := executor.New(ex, chainClient, liq, wallet.Address(), weth, minLiquidity)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	drawParams := func() executor.Params {
		return executor.DrawParams(
			cfg.Probe.SlippageTiersPct,
			buyAmount,
			cfg.Probe.WaitMin.Duration,
			cfg.Probe.WaitMax.Duration,
			gasSpeed,
			rng,
		)
	}

	flow := pipeline.NewFlow(
		chainClient,
		ex,
		liq,
		screen,
		advisor,
		exec,
		deps.Records,
		deps.Book,
		weth,
		minLiquidity,
		cfg.Worker.StageTimeout.Duration,
		drawParams,
		logger,
		pipeline.Options{
			History:  deps.History,
			Notifier: deps.Notifier,
			Status:   deps.Status,
		},
	)

	gate := cpugate.New(cfg.Worker.MaxCPUPercent, logger)
	return pipeline.NewWorker(deps.Queue, flow, gate, cfg.Worker.Concurrency, logger), nil
}

// logLevel maps the configured name to a slog level.
func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
