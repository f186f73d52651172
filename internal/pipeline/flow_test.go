package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
	"github.com/alanyoungcy/pairprobe/internal/executor"
	"github.com/alanyoungcy/pairprobe/internal/liquidity"
	"github.com/alanyoungcy/pairprobe/internal/logbook"
	"github.com/alanyoungcy/pairprobe/internal/safety"
	"github.com/alanyoungcy/pairprobe/internal/store/filestore"
)

var (
	baseAddr   = common.HexToAddress("0x4200000000000000000000000000000000000006")
	stableAddr = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	tokenAddr  = common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa")
	walletAddr = common.HexToAddress("0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb")
)

type fakeExchange struct {
	pair     domain.Pair
	pairErr  error
	reserves map[common.Address]decimal.Decimal
	price    decimal.Decimal
	priceOK  bool
	results  []domain.SwapResult
	calls    int

	// swapCtxErrs records ctx.Err() as seen by each swap, in call order.
	swapCtxErrs []error
}

func (f *fakeExchange) PairFor(context.Context, common.Address, common.Address) (domain.Pair, error) {
	return f.pair, f.pairErr
}

func (f *fakeExchange) Liquidity(context.Context, domain.Pair) (map[common.Address]decimal.Decimal, error) {
	return f.reserves, nil
}

func (f *fakeExchange) Price(context.Context, common.Address, common.Address, domain.Pair) (decimal.Decimal, bool, error) {
	return f.price, f.priceOK, nil
}

func (f *fakeExchange) Swap(ctx context.Context, _ domain.SwapRequest) (domain.SwapResult, error) {
	f.swapCtxErrs = append(f.swapCtxErrs, ctx.Err())
	if f.calls >= len(f.results) {
		return domain.SwapResult{}, fmt.Errorf("unexpected swap call %d", f.calls)
	}
	res := f.results[f.calls]
	f.calls++
	return res, nil
}

type fakeChain struct {
	facts    domain.TokenFacts
	factsErr error
}

func (f *fakeChain) NativeBalance(context.Context, common.Address) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeChain) TokenBalance(context.Context, common.Address, common.Address) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeChain) TokenFacts(context.Context, common.Address) (domain.TokenFacts, error) {
	return f.facts, f.factsErr
}

type fakeAdvisor struct {
	accept bool
	err    error
}

func (f *fakeAdvisor) Decide(context.Context, domain.EventSummary) (bool, error) {
	return f.accept, f.err
}

type fixture struct {
	flow    *Flow
	exec    *executor.Executor
	records *filestore.Store
	logRoot string
}

func (fx *fixture) tokenLogPath() string {
	return filepath.Join(fx.logRoot, "honeypot_timer_flow", tokenAddr.Hex()+".log")
}

func (fx *fixture) tokenLogExists(t *testing.T) bool {
	t.Helper()
	_, err := os.Stat(fx.tokenLogPath())
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat token log: %v", err)
	return false
}

func newFixture(t *testing.T, ex *fakeExchange, ch *fakeChain, adv *fakeAdvisor) *fixture {
	t.Helper()

	logRoot := t.TempDir()
	book, err := logbook.Open(logRoot, slog.LevelDebug)
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	t.Cleanup(func() { _ = book.Shutdown() })

	records, err := filestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}

	liq := liquidity.NewCalculator(ex, baseAddr, stableAddr, domain.Pair{Valid: true})
	screen := safety.NewScreen(&safety.FunctionPresenceCheck{
		BadFunctions: []string{"blacklist"},
	})
	exec := executor.New(ex, ch, liq, walletAddr, baseAddr, decimal.New(1, 0))
	exec.SetSleep(func(time.Duration) {})

	drawParams := func() executor.Params {
		return executor.Params{
			SlippageTiers: []decimal.Decimal{decimal.RequireFromString("0.03")},
			BuyAmount:     decimal.RequireFromString("0.0002"),
			Wait:          time.Millisecond,
			GasSpeed:      domain.GasMedium,
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flow := NewFlow(ch, ex, liq, screen, adv, exec, records, book,
		baseAddr, decimal.New(1, 0), time.Second, drawParams, logger, Options{})

	return &fixture{flow: flow, exec: exec, records: records, logRoot: logRoot}
}

// healthyExchange returns an exchange whose gates all pass; swap results
// still come from the caller.
func healthyExchange(results ...domain.SwapResult) *fakeExchange {
	return &fakeExchange{
		pair: domain.Pair{
			Address: common.HexToAddress("0xCCCCccccCCCCccccCCCCccccCCCCccccCCCCcccc"),
			Valid:   true,
		},
		reserves: map[common.Address]decimal.Decimal{
			baseAddr:  decimal.New(10, 0),
			tokenAddr: decimal.New(1000, 0),
		},
		price:   decimal.New(1, 0),
		priceOK: true,
		results: results,
	}
}

func event() domain.DiscoveryEvent {
	return domain.DiscoveryEvent{Token0: baseAddr, Token1: tokenAddr}
}

func TestRunIgnoresEventWithoutBaseAsset(t *testing.T) {
	fx := newFixture(t, healthyExchange(), &fakeChain{}, &fakeAdvisor{})

	other := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fx.flow.Run(context.Background(), domain.DiscoveryEvent{Token0: other, Token1: other})

	if fx.tokenLogExists(t) {
		t.Error("no token log should be created for an unidentifiable event")
	}
}

func TestRunKeepsLogOnInvalidPair(t *testing.T) {
	ex := healthyExchange()
	ex.pair = domain.Pair{Valid: false}
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{})

	fx.flow.Run(context.Background(), event())

	if !fx.tokenLogExists(t) {
		t.Error("invalid pair should keep the token log for review")
	}
}

func TestRunDiscardsLogOnUnknownLiquidity(t *testing.T) {
	ex := healthyExchange()
	ex.priceOK = false
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("unknown liquidity is a fast reject, log should be discarded")
	}
}

func TestRunDiscardsLogOnLowLiquidity(t *testing.T) {
	ex := healthyExchange()
	ex.reserves = map[common.Address]decimal.Decimal{
		baseAddr:  decimal.Zero,
		tokenAddr: decimal.Zero,
	}
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("low liquidity is a fast reject, log should be discarded")
	}
}

func TestRunDiscardsLogWhenSecurityFlagged(t *testing.T) {
	ch := &fakeChain{facts: domain.TokenFacts{
		Address:   tokenAddr,
		Functions: map[string]struct{}{"blacklist": {}},
	}}
	fx := newFixture(t, healthyExchange(), ch, &fakeAdvisor{})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("security-flagged token is a fast reject, log should be discarded")
	}
}

func TestRunKeepsLogOnAdvisoryFailure(t *testing.T) {
	fx := newFixture(t, healthyExchange(), &fakeChain{}, &fakeAdvisor{err: errors.New("service down")})

	fx.flow.Run(context.Background(), event())

	if !fx.tokenLogExists(t) {
		t.Error("advisory infrastructure failure should keep the log")
	}
}

func TestRunDiscardsLogOnAdvisoryReject(t *testing.T) {
	fx := newFixture(t, healthyExchange(), &fakeChain{}, &fakeAdvisor{accept: false})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("advisory rejection is a fast reject, log should be discarded")
	}
}

func TestRunDiscardsLogOnExhaustedBuy(t *testing.T) {
	ex := healthyExchange(domain.SwapResult{Success: false, TxHash: "0xbuy"})
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{accept: true})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("exhausted buy should discard the log")
	}
	if _, err := fx.records.Load(context.Background(), tokenAddr); err != domain.ErrNotFound {
		t.Errorf("no record should be persisted for an aborted run, got %v", err)
	}
}

func TestRunSuccessfulSellDiscardsLogAndPersists(t *testing.T) {
	ex := healthyExchange(
		domain.SwapResult{Success: true, TxHash: "0xbuy"},
		domain.SwapResult{Success: true, TxHash: "0xsell", AmountOut: decimal.RequireFromString("0.0003")},
	)
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{accept: true})

	fx.flow.Run(context.Background(), event())

	if fx.tokenLogExists(t) {
		t.Error("clean success leaves nothing to investigate, log should be discarded")
	}
	rec, err := fx.records.Load(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("record must be persisted: %v", err)
	}
	if rec.Outcome != domain.OutcomeSuccessfulSell || !rec.CanSell {
		t.Errorf("outcome = %s canSell = %v", rec.Outcome, rec.CanSell)
	}
	if rec.RunID == "" {
		t.Error("record must carry a run id")
	}
}

func TestRunFailedSellKeepsLogAndPersists(t *testing.T) {
	ex := healthyExchange(
		domain.SwapResult{Success: true, TxHash: "0xbuy"},
		domain.SwapResult{Success: false, TxHash: "0xsell"},
	)
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{accept: true})

	fx.flow.Run(context.Background(), event())

	if !fx.tokenLogExists(t) {
		t.Error("failed sell must keep the log for review")
	}
	rec, err := fx.records.Load(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("record must be persisted: %v", err)
	}
	if rec.Outcome != domain.OutcomeFailedSell || rec.CanSell {
		t.Errorf("outcome = %s canSell = %v", rec.Outcome, rec.CanSell)
	}
	if !rec.IsHoneypot() {
		t.Error("failed sell must classify as honeypot")
	}
}
