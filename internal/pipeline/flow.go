// Package pipeline orchestrates one probe run per discovery event: gate
// the token on liquidity, safety, and advisory checks, execute the timed
// buy→wait→sell probe, and persist an auditable record. Every stage
// failure is converted into a logged, classified outcome; a run never
// panics or returns an error to its worker.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
	"github.com/alanyoungcy/pairprobe/internal/executor"
	"github.com/alanyoungcy/pairprobe/internal/liquidity"
	"github.com/alanyoungcy/pairprobe/internal/logbook"
	"github.com/alanyoungcy/pairprobe/internal/safety"
)

// logPolicy says what happens to the per-token log when a stage aborts
// the run.
type logPolicy int

const (
	// keepLog closes the handle but leaves the file for operator review.
	keepLog logPolicy = iota
	// discardLog deletes the file; there is nothing left to investigate.
	discardLog
)

// stepResult is the tagged outcome of one pipeline stage.
type stepResult struct {
	abort  bool
	reason string
	policy logPolicy
}

var goOn = stepResult{}

func abortKeep(reason string) stepResult {
	return stepResult{abort: true, reason: reason, policy: keepLog}
}

func abortDiscard(reason string) stepResult {
	return stepResult{abort: true, reason: reason, policy: discardLog}
}

// Notifier is told about completed probes. Implementations must be fast
// or internally asynchronous; notification failures never affect a run.
type Notifier interface {
	ProbeCompleted(ctx context.Context, rec *domain.ProbeRecord)
}

// Flow is the per-event pipeline. One Flow serves many runs; all per-run
// state lives on the stack of Run and in the ProbeRecord.
type Flow struct {
	chain    domain.ChainClient
	exchange domain.Exchange
	liq      *liquidity.Calculator
	screen   *safety.Screen
	advisor  domain.Advisor
	exec     *executor.Executor
	records  domain.RecordStore
	book     *logbook.Book

	// Optional collaborators; nil disables them.
	history  domain.RunHistoryStore
	notifier Notifier
	status   domain.StatusPublisher

	base         common.Address
	minLiquidity decimal.Decimal
	stageTimeout time.Duration
	drawParams   func() executor.Params
	logger       *slog.Logger
}

// Options carries the optional Flow collaborators.
type Options struct {
	History  domain.RunHistoryStore
	Notifier Notifier
	Status   domain.StatusPublisher
}

// NewFlow wires a Flow. drawParams is invoked once at the start of every
// run so the per-run randomness (wait duration) is drawn by the caller's
// policy, not inside the executor.
func NewFlow(
	chain domain.ChainClient,
	exchange domain.Exchange,
	liq *liquidity.Calculator,
	screen *safety.Screen,
	advisor domain.Advisor,
	exec *executor.Executor,
	records domain.RecordStore,
	book *logbook.Book,
	base common.Address,
	minLiquidity decimal.Decimal,
	stageTimeout time.Duration,
	drawParams func() executor.Params,
	logger *slog.Logger,
	opts Options,
) *Flow {
	return &Flow{
		chain:        chain,
		exchange:     exchange,
		liq:          liq,
		screen:       screen,
		advisor:      advisor,
		exec:         exec,
		records:      records,
		book:         book,
		history:      opts.History,
		notifier:     opts.Notifier,
		status:       opts.Status,
		base:         base,
		minLiquidity: minLiquidity,
		stageTimeout: stageTimeout,
		drawParams:   drawParams,
		logger:       logger.With(slog.String("component", "pipeline")),
	}
}

// Run processes one discovery event end to end. It never returns an
// error: every failure is logged and classified, and the per-token log is
// kept or discarded according to the stage that ended the run.
func (f *Flow) Run(ctx context.Context, event domain.DiscoveryEvent) {
	// Stage 1: identify the target token. Events without the base asset
	// get no token-scoped log; the shared error log is the only trace.
	token, ok := event.TargetToken(f.base)
	if !ok {
		f.book.Shared().Error("base asset not found in pair",
			slog.String("token0", event.Token0.Hex()),
			slog.String("token1", event.Token1.Hex()),
		)
		return
	}

	// Stage 2: open the per-token log. Reuses an already open handle.
	log, err := f.book.Token(token)
	if err != nil {
		f.book.Shared().Error("opening token log failed",
			slog.String("token", token.Hex()),
			slog.String("error", err.Error()),
		)
		return
	}

	rec := &domain.ProbeRecord{
		RunID:        uuid.New().String(),
		TokenAddress: token,
	}
	f.publish(ctx, rec, "started")

	res := f.runStages(ctx, rec, token, log)
	if res.abort {
		log.Warn("run aborted", slog.String("reason", res.reason))
		f.finishLog(token, res.policy)
		f.publish(ctx, rec, "aborted: "+res.reason)
		return
	}

	// Stage 8: persist. A successful sell is the terminal "nothing more
	// to watch" state, so its log is pruned; failures stay for review.
	if rec.Outcome == domain.OutcomeSuccessfulSell {
		f.finishLog(token, discardLog)
	} else {
		f.finishLog(token, keepLog)
	}

	if err := f.records.Save(ctx, rec); err != nil {
		f.book.Shared().Error("persisting probe record failed",
			slog.String("token", token.Hex()),
			slog.String("error", err.Error()),
		)
	}
	if f.history != nil {
		if err := f.history.Insert(ctx, rec); err != nil {
			f.book.Shared().Error("recording run history failed",
				slog.String("token", token.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}
	if f.notifier != nil {
		f.notifier.ProbeCompleted(ctx, rec)
	}
	f.publish(ctx, rec, "completed")
}

// runStages executes stages 3–7 and reports how the run ended. rec is
// mutated along the way; on abort the caller applies the log policy.
func (f *Flow) runStages(ctx context.Context, rec *domain.ProbeRecord, token common.Address, log *slog.Logger) stepResult {
	// Stage 3: token facts and pair construction.
	log.Info("fetching token facts")
	facts, err := timed(f, ctx, func(ctx context.Context) (domain.TokenFacts, error) {
		return f.chain.TokenFacts(ctx, token)
	})
	if err != nil {
		log.Error("fetching token facts failed", slog.String("error", err.Error()))
		return abortKeep("token facts unavailable")
	}

	log.Info("constructing pair")
	pair, err := timed(f, ctx, func(ctx context.Context) (domain.Pair, error) {
		return f.exchange.PairFor(ctx, token, f.base)
	})
	if err != nil {
		log.Error("constructing pair failed", slog.String("error", err.Error()))
		return abortKeep("pair construction failed")
	}
	rec.PairAddress = pair.Address
	rec.PairValid = pair.Valid
	if !pair.Valid {
		log.Warn("pair is invalid, skipping")
		return abortKeep("pair invalid")
	}

	// Stage 4: liquidity gate.
	log.Info("checking pair liquidity")
	snap, err := timed(f, ctx, func(ctx context.Context) (domain.LiquiditySnapshot, error) {
		return f.liq.Snapshot(ctx, token, pair)
	})
	switch {
	case errors.Is(err, domain.ErrLiquidityUnknown):
		log.Warn("liquidity unknown, skipping")
		return abortDiscard("liquidity unknown")
	case err != nil:
		log.Error("liquidity check failed", slog.String("error", err.Error()))
		return abortKeep("liquidity check errored")
	case snap.TotalUSD.LessThan(f.minLiquidity):
		log.Warn("liquidity below threshold, skipping",
			slog.String("total_usd", snap.TotalUSD.String()),
			slog.String("threshold_usd", f.minLiquidity.String()),
		)
		return abortDiscard("liquidity too low")
	}
	rec.InitialLiquidity = &snap
	log.Info("liquidity check passed", slog.String("total_usd", snap.TotalUSD.String()))

	// Stage 5: safety gate.
	log.Info("running security checks")
	verdict := f.screen.Run(facts, log)
	rec.Safety = verdict
	if verdict.Flagged {
		log.Warn("security checks flagged the token, skipping")
		return abortDiscard("security flagged")
	}

	// Stage 6: advisory gate. A service failure is an infrastructure
	// problem, not a token-quality signal, so the log stays for the
	// operator.
	log.Info("requesting advisory decision")
	accept, err := timed(f, ctx, func(ctx context.Context) (bool, error) {
		return f.advisor.Decide(ctx, domain.EventSummary{
			TokenAddress:    token,
			TokenSymbol:     facts.Symbol,
			PairAddress:     pair.Address,
			LiquidityUSD:    snap.TotalUSD,
			WarningSignals:  verdict.MatchedSignals,
			DeclaredFnCount: len(facts.Functions),
		})
	})
	if err != nil {
		log.Error("advisory decision failed", slog.String("error", err.Error()))
		return abortKeep("advisory unavailable")
	}
	rec.AdvisoryAccepted = accept
	log.Info("advisory decision received", slog.Bool("accept", accept))
	if !accept {
		return abortDiscard("advisory rejected")
	}

	// Stage 7: execute the probe. Params are drawn here, once per run.
	params := f.drawParams()
	log.Info("executing probe",
		slog.String("buy_amount_eth", params.BuyAmount.String()),
		slog.Duration("wait", params.Wait),
	)
	err = f.exec.Execute(ctx, rec, token, pair, params, log)
	f.exec.ObserveAccount(ctx, rec, log)
	if errors.Is(err, domain.ErrBuyExhausted) {
		log.Warn("buy transaction failed")
		return abortDiscard("buy failed")
	}

	log.Info("probe complete", slog.String("outcome", string(rec.Outcome)))
	return goOn
}

// finishLog applies the log lifecycle policy at run end.
func (f *Flow) finishLog(token common.Address, policy logPolicy) {
	var err error
	switch policy {
	case discardLog:
		err = f.book.Discard(token)
	default:
		err = f.book.Close(token)
	}
	if err != nil {
		f.book.Shared().Error("log cleanup failed",
			slog.String("token", token.Hex()),
			slog.String("error", err.Error()),
		)
	}
}

// publish emits a best-effort status update for the dashboard.
func (f *Flow) publish(ctx context.Context, rec *domain.ProbeRecord, stage string) {
	if f.status == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"run_id":  rec.RunID,
		"token":   rec.TokenAddress.Hex(),
		"stage":   stage,
		"outcome": rec.Outcome,
		"ts":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := f.status.PublishStatus(ctx, payload); err != nil {
		f.logger.Debug("status publish failed", slog.String("error", err.Error()))
	}
}

// timed runs fn under the configured stage timeout. Generic so every
// stage can share the deadline discipline without repeating plumbing.
func timed[T any](f *Flow, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if f.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.stageTimeout)
		defer cancel()
	}
	return fn(ctx)
}
