// Package liquidity computes the USD-denominated liquidity of a pair from
// raw reserves and chained price quotes.
package liquidity

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// Calculator derives LiquiditySnapshots. It needs the base asset (WETH),
// the reference stable (USDC), and the base/stable pair to chain the two
// price quotes through.
type Calculator struct {
	exchange domain.Exchange
	base     common.Address
	stable   common.Address
	basePair domain.Pair
}

// NewCalculator creates a Calculator. basePair must be the already
// constructed base/stable pair.
func NewCalculator(exchange domain.Exchange, base, stable common.Address, basePair domain.Pair) *Calculator {
	return &Calculator{
		exchange: exchange,
		base:     base,
		stable:   stable,
		basePair: basePair,
	}
}

// Snapshot computes the pair's liquidity in USD. The token side is priced
// by chaining token→base and base→stable quotes; if either quote is
// unavailable the snapshot is unknown and ErrLiquidityUnknown is
// returned, never a zero-valued snapshot.
func (c *Calculator) Snapshot(ctx context.Context, token common.Address, pair domain.Pair) (domain.LiquiditySnapshot, error) {
	reserves, err := c.exchange.Liquidity(ctx, pair)
	if err != nil {
		return domain.LiquiditySnapshot{}, fmt.Errorf("liquidity: reserves: %w", err)
	}

	var baseReserves, tokenReserves decimal.Decimal
	for addr, amount := range reserves {
		if addr == c.base {
			baseReserves = amount
		} else {
			tokenReserves = amount
		}
	}

	tokenPriceBase, ok, err := c.exchange.Price(ctx, token, c.base, pair)
	if err != nil {
		return domain.LiquiditySnapshot{}, fmt.Errorf("liquidity: token price: %w", err)
	}
	if !ok {
		return domain.LiquiditySnapshot{}, domain.ErrLiquidityUnknown
	}

	basePriceStable, ok, err := c.exchange.Price(ctx, c.base, c.stable, c.basePair)
	if err != nil {
		return domain.LiquiditySnapshot{}, fmt.Errorf("liquidity: base price: %w", err)
	}
	if !ok {
		return domain.LiquiditySnapshot{}, domain.ErrLiquidityUnknown
	}

	tokenPriceStable := tokenPriceBase.Mul(basePriceStable)

	snap := domain.LiquiditySnapshot{
		BaseReservesUSD:  baseReserves.Mul(basePriceStable),
		TokenReservesUSD: tokenReserves.Mul(tokenPriceStable),
	}
	snap.TotalUSD = snap.BaseReservesUSD.Add(snap.TokenReservesUSD)
	return snap, nil
}
