package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
	"github.com/alanyoungcy/pairprobe/internal/liquidity"
)

var (
	baseAddr   = common.HexToAddress("0x4200000000000000000000000000000000000006")
	stableAddr = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	tokenAddr  = common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa")
	walletAddr = common.HexToAddress("0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb")
)

// fakeExchange replays scripted swap results in call order and serves
// fixed reserves and prices for the investigation path.
type fakeExchange struct {
	results  []domain.SwapResult
	errs     []error
	calls    []domain.SwapRequest
	reserves map[common.Address]decimal.Decimal
	price    decimal.Decimal
	priceOK  bool
}

func (f *fakeExchange) PairFor(context.Context, common.Address, common.Address) (domain.Pair, error) {
	return domain.Pair{Valid: true}, nil
}

func (f *fakeExchange) Liquidity(context.Context, domain.Pair) (map[common.Address]decimal.Decimal, error) {
	return f.reserves, nil
}

func (f *fakeExchange) Price(context.Context, common.Address, common.Address, domain.Pair) (decimal.Decimal, bool, error) {
	return f.price, f.priceOK, nil
}

func (f *fakeExchange) Swap(_ context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i >= len(f.results) {
		return domain.SwapResult{}, fmt.Errorf("unexpected swap call %d", i)
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.results[i], err
}

type fakeChain struct {
	native   decimal.Decimal
	balances map[common.Address]decimal.Decimal
}

func (f *fakeChain) NativeBalance(context.Context, common.Address) (decimal.Decimal, error) {
	return f.native, nil
}

func (f *fakeChain) TokenBalance(_ context.Context, token, _ common.Address) (decimal.Decimal, error) {
	return f.balances[token], nil
}

func (f *fakeChain) TokenFacts(context.Context, common.Address) (domain.TokenFacts, error) {
	return domain.TokenFacts{}, nil
}

func newTestExecutor(ex *fakeExchange, ch *fakeChain, minLiquidity decimal.Decimal) *Executor {
	liq := liquidity.NewCalculator(ex, baseAddr, stableAddr, domain.Pair{Valid: true})
	e := New(ex, ch, liq, walletAddr, baseAddr, minLiquidity)
	e.SetSleep(func(time.Duration) {})
	return e
}

func testParams() Params {
	return Params{
		SlippageTiers: []decimal.Decimal{
			decimal.RequireFromString("0.03"),
			decimal.RequireFromString("0.05"),
		},
		BuyAmount: decimal.RequireFromString("0.0002"),
		Wait:      time.Millisecond,
		GasSpeed:  domain.GasMedium,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteRoundTripProfit(t *testing.T) {
	ex := &fakeExchange{
		results: []domain.SwapResult{
			{Success: true, TxHash: "0xbuy", AmountOut: decimal.RequireFromString("1000"), SwapGasEth: decimal.RequireFromString("0.00001")},
			{Success: true, TxHash: "0xsell", AmountOut: decimal.RequireFromString("0.0003"), SwapGasEth: decimal.RequireFromString("0.00002")},
		},
	}
	ch := &fakeChain{balances: map[common.Address]decimal.Decimal{}}
	e := newTestExecutor(ex, ch, decimal.New(1, 0))

	rec := &domain.ProbeRecord{}
	if err := e.Execute(context.Background(), rec, tokenAddr, domain.Pair{Valid: true}, testParams(), discard()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(ex.calls) != 2 {
		t.Fatalf("swap calls = %d, want 2 (tier 1 success stops the ladder)", len(ex.calls))
	}
	if !ex.calls[1].SellAll {
		t.Error("sell request must set SellAll")
	}
	if rec.Outcome != domain.OutcomeSuccessfulSell || !rec.CanSell {
		t.Fatalf("outcome = %s canSell = %v", rec.Outcome, rec.CanSell)
	}
	if rec.FailReason != domain.FailNone {
		t.Errorf("fail reason = %q, want none", rec.FailReason)
	}
	if !rec.BuySlippage.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("buy slippage = %s, want 0.03", rec.BuySlippage)
	}

	// profit = 0.0003 - 0.0002 - (0.00001 + 0.00002)
	wantProfit := decimal.RequireFromString("0.00007")
	if !rec.Profit.Equal(wantProfit) {
		t.Errorf("profit = %s, want %s", rec.Profit, wantProfit)
	}
	wantYield := decimal.RequireFromString("35")
	if !rec.YieldPercent.Equal(wantYield) {
		t.Errorf("yield = %s, want %s", rec.YieldPercent, wantYield)
	}
}

func TestExecuteBuyRetriesLooserTier(t *testing.T) {
	ex := &fakeExchange{
		results: []domain.SwapResult{
			{Success: false, TxHash: "0xbuy1", SwapGasEth: decimal.RequireFromString("0.00001")},
			{Success: true, TxHash: "0xbuy2", SwapGasEth: decimal.RequireFromString("0.00001")},
			{Success: true, TxHash: "0xsell", AmountOut: decimal.RequireFromString("0.0001"), SwapGasEth: decimal.RequireFromString("0.00001")},
		},
	}
	ch := &fakeChain{balances: map[common.Address]decimal.Decimal{}}
	e := newTestExecutor(ex, ch, decimal.New(1, 0))

	rec := &domain.ProbeRecord{}
	if err := e.Execute(context.Background(), rec, tokenAddr, domain.Pair{Valid: true}, testParams(), discard()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(rec.FailedBuyHashes) != 1 || len(rec.SuccessfulBuyHashes) != 1 {
		t.Fatalf("buy hashes: failed=%v successful=%v", rec.FailedBuyHashes, rec.SuccessfulBuyHashes)
	}
	if !rec.BuySlippage.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("buy slippage = %s, want 0.05", rec.BuySlippage)
	}
	// Gas from the failed attempt is still paid.
	if !rec.BuyGasEth.Equal(decimal.RequireFromString("0.00002")) {
		t.Errorf("buy gas = %s, want 0.00002", rec.BuyGasEth)
	}
}

func TestExecuteBuyExhausted(t *testing.T) {
	ex := &fakeExchange{
		results: []domain.SwapResult{
			{Success: false, TxHash: "0xbuy1"},
			{Success: false, TxHash: "0xbuy2"},
		},
	}
	ch := &fakeChain{balances: map[common.Address]decimal.Decimal{}}
	e := newTestExecutor(ex, ch, decimal.New(1, 0))

	rec := &domain.ProbeRecord{}
	err := e.Execute(context.Background(), rec, tokenAddr, domain.Pair{Valid: true}, testParams(), discard())
	if err != domain.ErrBuyExhausted {
		t.Fatalf("err = %v, want ErrBuyExhausted", err)
	}
	if len(ex.calls) != 2 {
		t.Errorf("swap calls = %d, want 2 (no sell after exhausted buy)", len(ex.calls))
	}
	if rec.Outcome != domain.OutcomePendingSell {
		t.Errorf("outcome = %s, want pending_sell", rec.Outcome)
	}
}

func TestExecuteSellWithoutSwapRecordsNoHash(t *testing.T) {
	// A zero-balance or failed-approval sell returns no TxHash; the
	// attempt is still recorded but the hash lists stay clean.
	ex := &fakeExchange{
		results: []domain.SwapResult{
			{Success: true, TxHash: "0xbuy"},
			{Success: false},
			{Success: false, TxHash: "0xsell2"},
		},
		reserves: map[common.Address]decimal.Decimal{},
		price:    decimal.New(1, 0),
		priceOK:  true,
	}
	ch := &fakeChain{balances: map[common.Address]decimal.Decimal{}}
	e := newTestExecutor(ex, ch, decimal.New(1, 0))

	rec := &domain.ProbeRecord{}
	if err := e.Execute(context.Background(), rec, tokenAddr, domain.Pair{Valid: true}, testParams(), discard()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(rec.FailedSellHashes) != 1 || rec.FailedSellHashes[0] != "0xsell2" {
		t.Fatalf("failed sell hashes = %v, want [0xsell2]", rec.FailedSellHashes)
	}
	sells := 0
	for _, a := range rec.Attempts {
		if a.Side == domain.SideSell {
			sells++
		}
	}
	if sells != 2 {
		t.Errorf("sell attempts recorded = %d, want 2", sells)
	}
}

func TestExecuteFailedSellClassification(t *testing.T) {
	tests := []struct {
		name     string
		balance  decimal.Decimal
		reserves map[common.Address]decimal.Decimal
		want     domain.FailReason
	}{
		{
			name:     "no tokens received",
			balance:  decimal.Zero,
			reserves: map[common.Address]decimal.Decimal{},
			want:     domain.FailNoTokensReceived,
		},
		{
			name:    "pool drained",
			balance: decimal.New(1000, 0),
			reserves: map[common.Address]decimal.Decimal{
				baseAddr:  decimal.Zero,
				tokenAddr: decimal.Zero,
			},
			want: domain.FailNoLiquidity,
		},
		{
			name:    "cause unknown",
			balance: decimal.New(1000, 0),
			reserves: map[common.Address]decimal.Decimal{
				baseAddr:  decimal.New(100, 0),
				tokenAddr: decimal.New(100, 0),
			},
			want: domain.FailUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchange{
				results: []domain.SwapResult{
					{Success: true, TxHash: "0xbuy"},
					{Success: false, TxHash: "0xsell1"},
					{Success: false, TxHash: "0xsell2"},
				},
				reserves: tt.reserves,
				price:    decimal.New(1, 0),
				priceOK:  true,
			}
			ch := &fakeChain{balances: map[common.Address]decimal.Decimal{tokenAddr: tt.balance}}
			e := newTestExecutor(ex, ch, decimal.New(1, 0))

			rec := &domain.ProbeRecord{}
			if err := e.Execute(context.Background(), rec, tokenAddr, domain.Pair{Valid: true}, testParams(), discard()); err != nil {
				t.Fatalf("Execute: %v", err)
			}

			if rec.Outcome != domain.OutcomeFailedSell || rec.CanSell {
				t.Fatalf("outcome = %s canSell = %v", rec.Outcome, rec.CanSell)
			}
			if !rec.IsHoneypot() {
				t.Error("failed sell must classify as honeypot")
			}
			if rec.FailReason != tt.want {
				t.Errorf("fail reason = %q, want %q", rec.FailReason, tt.want)
			}
		})
	}
}
