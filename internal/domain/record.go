package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ShortTermOutcome classifies a completed probe. The sell outcome, not the
// profit sign, is the authoritative honeypot signal: a token whose sell
// never lands is a honeypot regardless of quoted prices.
type ShortTermOutcome string

const (
	OutcomePendingSell    ShortTermOutcome = "pending_sell"
	OutcomeSuccessfulSell ShortTermOutcome = "successful_sell"
	OutcomeFailedSell     ShortTermOutcome = "failed_sell"
)

// FailReason sub-classifies a FailedSell outcome.
type FailReason string

const (
	FailNone             FailReason = ""
	FailNoTokensReceived FailReason = "no_tokens_received"
	FailNoLiquidity      FailReason = "no_liquidity"
	FailUnknown          FailReason = "unknown"
)

// ProbeRecord is the aggregate root of one pipeline run. It is created
// when the run starts, mutated only by that run, and persisted exactly
// once at run end. A later run for the same token overwrites the stored
// record wholesale; there are no merge semantics.
type ProbeRecord struct {
	RunID        string         `json:"run_id"`
	TokenAddress common.Address `json:"token_address"`
	PairAddress  common.Address `json:"pair_address"`
	PairValid    bool           `json:"pair_valid"`

	InitialLiquidity *LiquiditySnapshot `json:"initial_liquidity,omitempty"`
	Safety           SafetyVerdict      `json:"safety"`
	AdvisoryAccepted bool               `json:"advisory_accepted"`

	Attempts             []TradeAttempt `json:"attempts,omitempty"`
	SuccessfulBuyHashes  []string       `json:"successful_buy_hashes,omitempty"`
	FailedBuyHashes      []string       `json:"failed_buy_hashes,omitempty"`
	SuccessfulSellHashes []string       `json:"successful_sell_hashes,omitempty"`
	FailedSellHashes     []string       `json:"failed_sell_hashes,omitempty"`

	AmountIn     decimal.Decimal `json:"amount_in"`
	AmountOut    decimal.Decimal `json:"amount_out"`
	BuyGasEth    decimal.Decimal `json:"buy_gas_eth"`
	SellGasEth   decimal.Decimal `json:"sell_gas_eth"`
	BuySlippage  decimal.Decimal `json:"buy_slippage"`
	SellSlippage decimal.Decimal `json:"sell_slippage"`
	Profit       decimal.Decimal `json:"profit"`
	YieldPercent decimal.Decimal `json:"yield_percent"`

	AccountValuePre  decimal.Decimal `json:"account_value_pre"`
	AccountValuePost decimal.Decimal `json:"account_value_post"`
	PreObservedAt    int64           `json:"pre_observed_at"`
	PostObservedAt   int64           `json:"post_observed_at"`

	Outcome    ShortTermOutcome `json:"short_term_outcome"`
	FailReason FailReason       `json:"fail_reason,omitempty"`
	CanSell    bool             `json:"can_sell"`
}

// IsHoneypot reports whether the probe's measured outcome marks the token
// as unsellable.
func (r *ProbeRecord) IsHoneypot() bool {
	return r.Outcome == OutcomeFailedSell
}
