package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pair is a constructed exchange pair. Valid is false when the factory
// reports no deployed pair contract for the two tokens.
type Pair struct {
	Address common.Address `json:"address"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	Valid   bool           `json:"valid"`
}

// SwapRequest describes one swap attempt. When SellAll is true, Amount is
// ignored and the exchange resolves the wallet's entire held balance of
// From at execution time.
type SwapRequest struct {
	From     common.Address
	To       common.Address
	Amount   decimal.Decimal
	SellAll  bool
	Slippage decimal.Decimal
	GasSpeed GasSpeed
}

// Exchange is the AMM collaborator the pipeline trades through. Pricing
// math, routing, and transaction assembly live behind this contract.
type Exchange interface {
	// PairFor constructs the pair for two tokens and reports validity.
	PairFor(ctx context.Context, a, b common.Address) (Pair, error)

	// Liquidity returns raw reserves keyed by token address.
	Liquidity(ctx context.Context, pair Pair) (map[common.Address]decimal.Decimal, error)

	// Price quotes from in terms of to over the given pair. ok is false
	// when no quote is obtainable; callers must treat that as unknown,
	// never as zero.
	Price(ctx context.Context, from, to common.Address, pair Pair) (price decimal.Decimal, ok bool, err error)

	// Swap executes one swap attempt and reports the result. A reverted
	// transaction is a non-error result with Success false; err is
	// reserved for submission-level failures.
	Swap(ctx context.Context, req SwapRequest) (SwapResult, error)
}

// ChainClient is the read-only RPC collaborator.
type ChainClient interface {
	// NativeBalance returns the address's native-asset balance in whole
	// coin units.
	NativeBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error)

	// TokenBalance returns owner's balance of token in whole token units.
	TokenBalance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error)

	// TokenFacts fetches the token's bytecode and declared functions.
	TokenFacts(ctx context.Context, addr common.Address) (TokenFacts, error)
}

// EventSummary is the structured view of a run handed to the advisory
// decision service.
type EventSummary struct {
	TokenAddress    common.Address  `json:"token_address"`
	TokenSymbol     string          `json:"token_symbol,omitempty"`
	PairAddress     common.Address  `json:"pair_address"`
	LiquidityUSD    decimal.Decimal `json:"liquidity_usd"`
	WarningSignals  []string        `json:"warning_signals,omitempty"`
	DeclaredFnCount int             `json:"declared_fn_count"`
}

// Advisor is the external accept/reject decision service.
type Advisor interface {
	Decide(ctx context.Context, summary EventSummary) (accept bool, err error)
}
