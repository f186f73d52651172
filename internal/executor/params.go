package executor

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// Params are the immutable per-run trade parameters. The random draws
// (wait duration) happen once, in DrawParams, before the run starts;
// the executor never re-rolls them on retry.
type Params struct {
	// SlippageTiers are fractional tolerances ordered tightest first.
	// The executor only moves to a looser tier after the tighter one
	// fails, and stops iterating on the first success.
	SlippageTiers []decimal.Decimal
	// BuyAmount is the fixed buy size in base-asset units.
	BuyAmount decimal.Decimal
	// Wait is the delay between the buy and the sell. It gives the
	// market a fixed window to reveal honeypot behavior.
	Wait time.Duration
	// GasSpeed selects the gas price profile for every attempt.
	GasSpeed domain.GasSpeed
}

// DrawParams builds Params from configuration, drawing the wait duration
// uniformly from [waitMin, waitMax]. Injecting rng keeps the draw
// deterministic under test.
func DrawParams(tiersPct []int, buyAmount decimal.Decimal, waitMin, waitMax time.Duration, gasSpeed domain.GasSpeed, rng *rand.Rand) Params {
	tiers := make([]decimal.Decimal, 0, len(tiersPct))
	for _, pct := range tiersPct {
		tiers = append(tiers, decimal.New(int64(pct), -2))
	}

	wait := waitMin
	if span := waitMax - waitMin; span > 0 {
		wait += time.Duration(rng.Int63n(int64(span) + 1))
	}

	return Params{
		SlippageTiers: tiers,
		BuyAmount:     buyAmount,
		Wait:          wait,
		GasSpeed:      gasSpeed,
	}
}
