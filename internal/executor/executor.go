// Package executor performs the timed buy→wait→sell probe that measures
// whether a token can actually be sold. Each leg retries across a fixed
// ladder of slippage tiers; the measured sell outcome, not the quoted
// price, is the honeypot verdict.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
	"github.com/alanyoungcy/pairprobe/internal/liquidity"
)

// Executor runs one probe round trip per call. It is stateless across
// runs; all per-run state lives on the ProbeRecord being filled.
type Executor struct {
	exchange     domain.Exchange
	chain        domain.ChainClient
	liq          *liquidity.Calculator
	wallet       common.Address
	base         common.Address
	minLiquidity decimal.Decimal

	// sleep is swapped out in tests; the wait phase is deliberately not
	// cancellable, because abandoning a run mid-wait strands the bought
	// position.
	sleep func(time.Duration)
}

// New creates an Executor. base is the wrapped native asset the probe
// buys with and sells back into; minLiquidity is the USD threshold used
// when investigating a failed sell.
func New(exchange domain.Exchange, chain domain.ChainClient, liq *liquidity.Calculator, wallet, base common.Address, minLiquidity decimal.Decimal) *Executor {
	return &Executor{
		exchange:     exchange,
		chain:        chain,
		liq:          liq,
		wallet:       wallet,
		base:         base,
		minLiquidity: minLiquidity,
		sleep:        time.Sleep,
	}
}

// Execute runs the full probe against token over pair, mutating rec as it
// goes. It returns domain.ErrBuyExhausted when every buy tier failed (no
// wait or sell is attempted); any other outcome, a failed sell included,
// completes normally with rec.Outcome classified.
func (e *Executor) Execute(ctx context.Context, rec *domain.ProbeRecord, token common.Address, pair domain.Pair, params Params, log *slog.Logger) error {
	// Account observation before committing capital.
	if value, err := e.accountValue(ctx); err != nil {
		log.Error("pre-trade account observation failed", slog.String("error", err.Error()))
	} else {
		rec.AccountValuePre = value
		rec.PreObservedAt = time.Now().Unix()
		log.Info("account value observed",
			slog.String("value_eth", value.String()),
			slog.Int64("at", rec.PreObservedAt),
		)
	}

	// Buy phase.
	log.Info("initiating buy procedure")
	buyGas := decimal.Zero
	bought := false
	for tier, slip := range params.SlippageTiers {
		log.Info("trying buy", slog.Int("tier", tier+1), slog.String("slippage", slip.String()))

		result, err := e.exchange.Swap(ctx, domain.SwapRequest{
			From:     e.base,
			To:       token,
			Amount:   params.BuyAmount,
			Slippage: slip,
			GasSpeed: params.GasSpeed,
		})
		if err != nil {
			log.Error("buy attempt errored", slog.Int("tier", tier+1), slog.String("error", err.Error()))
			continue
		}

		buyGas = buyGas.Add(result.TotalGasEth())
		rec.AmountIn = params.BuyAmount
		attempt := domain.TradeAttempt{
			Tier:       tier + 1,
			Side:       domain.SideBuy,
			TxHash:     result.TxHash,
			GasCostEth: result.TotalGasEth(),
			Amount:     params.BuyAmount,
			Slippage:   slip,
		}

		if result.Success {
			attempt.Status = domain.AttemptSuccess
			rec.Attempts = append(rec.Attempts, attempt)
			rec.SuccessfulBuyHashes = append(rec.SuccessfulBuyHashes, result.TxHash)
			rec.BuySlippage = slip
			log.Info("buy successful", slog.String("tx", result.TxHash))
			bought = true
			break
		}

		attempt.Status = domain.AttemptFailed
		rec.Attempts = append(rec.Attempts, attempt)
		rec.FailedBuyHashes = append(rec.FailedBuyHashes, result.TxHash)
		log.Error("buy failed", slog.String("tx", result.TxHash))
	}
	rec.BuyGasEth = buyGas

	if !bought {
		log.Error("failed to buy at every slippage tier")
		rec.Outcome = domain.OutcomePendingSell
		return domain.ErrBuyExhausted
	}

	// Wait phase: one fixed window, drawn before the run started.
	log.Info("waiting before sell", slog.Duration("wait", params.Wait))
	rec.Outcome = domain.OutcomePendingSell
	e.sleep(params.Wait)

	// Sell phase: entire held balance, resolved by the exchange.
	log.Info("initiating sell procedure")
	sellGas := decimal.Zero
	rec.AmountOut = decimal.Zero
	for tier, slip := range params.SlippageTiers {
		log.Info("trying sell", slog.Int("tier", tier+1), slog.String("slippage", slip.String()))

		result, err := e.exchange.Swap(ctx, domain.SwapRequest{
			From:     token,
			To:       e.base,
			SellAll:  true,
			Slippage: slip,
			GasSpeed: params.GasSpeed,
		})
		if err != nil {
			log.Error("sell attempt errored", slog.Int("tier", tier+1), slog.String("error", err.Error()))
			continue
		}

		sellGas = sellGas.Add(result.TotalGasEth())
		attempt := domain.TradeAttempt{
			Tier:       tier + 1,
			Side:       domain.SideSell,
			TxHash:     result.TxHash,
			GasCostEth: result.TotalGasEth(),
			Slippage:   slip,
		}

		if result.Success {
			attempt.Status = domain.AttemptSuccess
			attempt.Amount = result.AmountOut
			rec.Attempts = append(rec.Attempts, attempt)
			rec.SuccessfulSellHashes = append(rec.SuccessfulSellHashes, result.TxHash)
			rec.SellSlippage = slip
			rec.AmountOut = result.AmountOut
			log.Info("sell successful", slog.String("tx", result.TxHash))
			break
		}

		attempt.Status = domain.AttemptFailed
		rec.Attempts = append(rec.Attempts, attempt)
		if result.TxHash == "" {
			// Zero balance or failed approval: no swap was ever sent.
			log.Error("sell failed before a swap was sent", slog.Int("tier", tier+1))
			continue
		}
		rec.FailedSellHashes = append(rec.FailedSellHashes, result.TxHash)
		log.Error("sell failed", slog.String("tx", result.TxHash))
	}
	rec.SellGasEth = sellGas

	e.settle(ctx, rec, token, pair, log)
	return nil
}

// settle computes profit and yield from the accumulated amounts and
// classifies the short-term outcome.
func (e *Executor) settle(ctx context.Context, rec *domain.ProbeRecord, token common.Address, pair domain.Pair, log *slog.Logger) {
	totalGas := rec.BuyGasEth.Add(rec.SellGasEth)
	rec.Profit = rec.AmountOut.Sub(rec.AmountIn).Sub(totalGas)
	log.Info("profit computed", slog.String("profit_eth", rec.Profit.String()))

	if !rec.AmountIn.IsZero() {
		rec.YieldPercent = rec.Profit.Div(rec.AmountIn).Mul(decimal.NewFromInt(100))
	} else {
		rec.YieldPercent = decimal.Zero
	}
	log.Info("yield computed", slog.String("yield_percent", rec.YieldPercent.String()))

	if rec.AmountOut.IsZero() {
		rec.Outcome = domain.OutcomeFailedSell
		rec.CanSell = false
		rec.FailReason = e.investigate(ctx, token, pair, log)
		log.Warn("short-term outcome: failed sell", slog.String("reason", string(rec.FailReason)))
		return
	}

	rec.Outcome = domain.OutcomeSuccessfulSell
	rec.CanSell = true
	rec.FailReason = domain.FailNone
	log.Info("short-term outcome: successful sell")
}

// investigate sub-classifies a failed sell: did the buy deliver no tokens,
// did the pool drain, or is the cause unknown.
func (e *Executor) investigate(ctx context.Context, token common.Address, pair domain.Pair, log *slog.Logger) domain.FailReason {
	balance, err := e.chain.TokenBalance(ctx, token, e.wallet)
	if err != nil {
		log.Error("failure investigation: token balance", slog.String("error", err.Error()))
		return domain.FailUnknown
	}
	if balance.IsZero() {
		return domain.FailNoTokensReceived
	}

	snap, err := e.liq.Snapshot(ctx, token, pair)
	if err != nil {
		log.Error("failure investigation: liquidity", slog.String("error", err.Error()))
		return domain.FailUnknown
	}
	if snap.TotalUSD.LessThan(e.minLiquidity) {
		return domain.FailNoLiquidity
	}
	return domain.FailUnknown
}

// accountValue returns the wallet's native balance plus its
// wrapped-native balance, in whole coin units.
func (e *Executor) accountValue(ctx context.Context) (decimal.Decimal, error) {
	native, err := e.chain.NativeBalance(ctx, e.wallet)
	if err != nil {
		return decimal.Zero, err
	}
	wrapped, err := e.chain.TokenBalance(ctx, e.base, e.wallet)
	if err != nil {
		return decimal.Zero, err
	}
	return native.Add(wrapped), nil
}

// ObserveAccount records the post-trade account observation on rec. The
// pipeline calls this after Execute returns, success or not.
func (e *Executor) ObserveAccount(ctx context.Context, rec *domain.ProbeRecord, log *slog.Logger) {
	value, err := e.accountValue(ctx)
	if err != nil {
		log.Error("post-trade account observation failed", slog.String("error", err.Error()))
		return
	}
	rec.AccountValuePost = value
	rec.PostObservedAt = time.Now().Unix()
	log.Info("account value observed",
		slog.String("value_eth", value.String()),
		slog.Int64("at", rec.PostObservedAt),
	)
}

// SetSleep overrides the wait-phase sleep function. Tests use this to
// avoid real multi-minute waits.
func (e *Executor) SetSleep(fn func(time.Duration)) {
	e.sleep = fn
}
