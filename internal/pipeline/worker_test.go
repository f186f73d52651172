package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// scriptedQueue hands out its events in order, then blocks until the
// context is done, like a live BRPOP.
type scriptedQueue struct {
	events []domain.DiscoveryEvent
	next   int
}

func (q *scriptedQueue) Pop(ctx context.Context) (domain.DiscoveryEvent, error) {
	if q.next < len(q.events) {
		e := q.events[q.next]
		q.next++
		return e, nil
	}
	<-ctx.Done()
	return domain.DiscoveryEvent{}, ctx.Err()
}

func (q *scriptedQueue) Drain(context.Context) error { return nil }

func TestWorkerDrainsInFlightRunOnShutdown(t *testing.T) {
	ex := healthyExchange(
		domain.SwapResult{Success: true, TxHash: "0xbuy"},
		domain.SwapResult{Success: true, TxHash: "0xsell", AmountOut: decimal.RequireFromString("0.0003")},
	)
	fx := newFixture(t, ex, &fakeChain{}, &fakeAdvisor{accept: true})

	// Shutdown arrives while the run sits in its wait phase. The run
	// must still complete its sell leg against a live context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.exec.SetSleep(func(time.Duration) { cancel() })

	queue := &scriptedQueue{events: []domain.DiscoveryEvent{event()}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(queue, fx.flow, nil, 2, logger)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ex.swapCtxErrs) != 2 {
		t.Fatalf("swap calls = %d, want buy and sell", len(ex.swapCtxErrs))
	}
	if ex.swapCtxErrs[1] != nil {
		t.Errorf("sell leg saw a dead context: %v", ex.swapCtxErrs[1])
	}

	rec, err := fx.records.Load(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("record must be persisted: %v", err)
	}
	if rec.Outcome != domain.OutcomeSuccessfulSell || !rec.CanSell {
		t.Errorf("outcome = %s canSell = %v, want a completed sell", rec.Outcome, rec.CanSell)
	}
}
