package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// RunStore implements domain.RunHistoryStore using PostgreSQL. Unlike the
// file store it keeps every run, reruns of the same token included, so
// the dashboard can report across runs.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Insert appends one row for a completed run.
func (s *RunStore) Insert(ctx context.Context, rec *domain.ProbeRecord) error {
	const query = `
		INSERT INTO probe_runs (
			run_id, token_address, pair_address, pair_valid,
			liquidity_usd, safety_flagged, advisory_accepted,
			amount_in, amount_out, total_gas_eth, profit, yield_percent,
			outcome, fail_reason, can_sell, pre_observed_at, post_observed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)`

	var liquidity *string
	if rec.InitialLiquidity != nil {
		v := rec.InitialLiquidity.TotalUSD.String()
		liquidity = &v
	}
	totalGas := rec.BuyGasEth.Add(rec.SellGasEth)

	_, err := s.pool.Exec(ctx, query,
		rec.RunID, rec.TokenAddress.Hex(), rec.PairAddress.Hex(), rec.PairValid,
		liquidity, rec.Safety.Flagged, rec.AdvisoryAccepted,
		rec.AmountIn.String(), rec.AmountOut.String(), totalGas.String(),
		rec.Profit.String(), rec.YieldPercent.String(),
		string(rec.Outcome), string(rec.FailReason), rec.CanSell,
		rec.PreObservedAt, rec.PostObservedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert probe run %s: %w", rec.RunID, err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]domain.ProbeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT run_id, token_address, pair_address, pair_valid,
			safety_flagged, advisory_accepted,
			amount_in::text, amount_out::text, profit::text, yield_percent::text,
			outcome, fail_reason, can_sell, pre_observed_at, post_observed_at
		FROM probe_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	defer rows.Close()

	var recs []domain.ProbeRecord
	for rows.Next() {
		var rec domain.ProbeRecord
		var tokenHex, pairHex string
		var amountIn, amountOut, profit, yieldPct string
		var outcome, failReason string
		if err := rows.Scan(
			&rec.RunID, &tokenHex, &pairHex, &rec.PairValid,
			&rec.Safety.Flagged, &rec.AdvisoryAccepted,
			&amountIn, &amountOut, &profit, &yieldPct,
			&outcome, &failReason, &rec.CanSell,
			&rec.PreObservedAt, &rec.PostObservedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan probe run: %w", err)
		}
		rec.TokenAddress = common.HexToAddress(tokenHex)
		rec.PairAddress = common.HexToAddress(pairHex)
		rec.Outcome = domain.ShortTermOutcome(outcome)
		rec.FailReason = domain.FailReason(failReason)
		if rec.AmountIn, err = decimal.NewFromString(amountIn); err != nil {
			return nil, fmt.Errorf("postgres: parse amount_in: %w", err)
		}
		if rec.AmountOut, err = decimal.NewFromString(amountOut); err != nil {
			return nil, fmt.Errorf("postgres: parse amount_out: %w", err)
		}
		if rec.Profit, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("postgres: parse profit: %w", err)
		}
		if rec.YieldPercent, err = decimal.NewFromString(yieldPct); err != nil {
			return nil, fmt.Errorf("postgres: parse yield_percent: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountByOutcome aggregates run counts per short-term outcome since the
// given time.
func (s *RunStore) CountByOutcome(ctx context.Context, since time.Time) (map[domain.ShortTermOutcome]int64, error) {
	const query = `
		SELECT outcome, COUNT(*)
		FROM probe_runs
		WHERE created_at >= $1
		GROUP BY outcome`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count runs by outcome: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ShortTermOutcome]int64)
	for rows.Next() {
		var (
			outcome string
			count   int64
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan outcome count: %w", err)
		}
		counts[domain.ShortTermOutcome(outcome)] = count
	}
	return counts, rows.Err()
}

// Compile-time interface check.
var _ domain.RunHistoryStore = (*RunStore)(nil)
