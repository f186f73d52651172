package domain

import "github.com/shopspring/decimal"

// TradeSide distinguishes the two legs of a probe round trip.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// AttemptStatus is the result of a single swap attempt.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// TradeAttempt is one swap attempt at one slippage tier. Attempts are
// appended to the run's attempt log and never mutated afterwards.
type TradeAttempt struct {
	Tier       int             `json:"tier"`
	Side       TradeSide       `json:"side"`
	Status     AttemptStatus   `json:"status"`
	TxHash     string          `json:"tx_hash"`
	GasCostEth decimal.Decimal `json:"gas_cost_eth"`
	Amount     decimal.Decimal `json:"amount"`
	Slippage   decimal.Decimal `json:"slippage"`
}

// SwapResult is what the exchange reports back for one swap attempt.
// AmountOut is only meaningful when Success is true.
type SwapResult struct {
	Success        bool
	TxHash         string
	AmountOut      decimal.Decimal
	SwapGasEth     decimal.Decimal
	ApprovalGasEth decimal.Decimal
}

// TotalGasEth is the full gas spend of the attempt, approval included.
func (r SwapResult) TotalGasEth() decimal.Decimal {
	return r.SwapGasEth.Add(r.ApprovalGasEth)
}

// GasSpeed selects the gas price profile for a swap.
type GasSpeed string

const (
	GasLow    GasSpeed = "low"
	GasMedium GasSpeed = "medium"
	GasHigh   GasSpeed = "high"
)
