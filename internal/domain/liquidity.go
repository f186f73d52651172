package domain

import "github.com/shopspring/decimal"

// LiquiditySnapshot is the USD-denominated liquidity of a pair at a point
// in time. A snapshot is only produced when both required price quotes
// were available; an unavailable quote yields no snapshot at all
// (ErrLiquidityUnknown), never a zero-valued one.
type LiquiditySnapshot struct {
	BaseReservesUSD  decimal.Decimal `json:"base_reserves_usd"`
	TokenReservesUSD decimal.Decimal `json:"token_reserves_usd"`
	TotalUSD         decimal.Decimal `json:"total_usd"`
}
