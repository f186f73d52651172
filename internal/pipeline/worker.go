package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// AdmissionGate decides whether a new run may start. Acquire blocks until
// admission is granted or ctx is done.
type AdmissionGate interface {
	Acquire(ctx context.Context) error
}

// Worker pops discovery events off the queue and hands each to the Flow
// as an isolated run. Runs for different tokens execute concurrently up
// to the configured limit; within a run all stages are sequential.
type Worker struct {
	queue       domain.DiscoveryQueue
	flow        *Flow
	gate        AdmissionGate
	concurrency int
	logger      *slog.Logger
}

// NewWorker creates a Worker. gate may be nil to admit unconditionally.
func NewWorker(queue domain.DiscoveryQueue, flow *Flow, gate AdmissionGate, concurrency int, logger *slog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:       queue,
		flow:        flow,
		gate:        gate,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "worker")),
	}
}

// Run blocks popping events until the context is cancelled. A run that
// is in its wait phase does not block other runs; only the pop loop
// pauses when all slots are busy.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", slog.Int("concurrency", w.concurrency))
	defer w.logger.Info("worker stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for {
		if err := ctx.Err(); err != nil {
			break
		}

		if w.gate != nil {
			if err := w.gate.Acquire(ctx); err != nil {
				break
			}
		}

		event, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			w.logger.Error("queue pop failed", slog.String("error", err.Error()))
			continue
		}

		w.logger.Info("discovery event received",
			slog.String("token0", event.Token0.Hex()),
			slog.String("token1", event.Token1.Hex()),
		)

		// An admitted run must finish even if the pop loop is shutting
		// down: cancelling mid-probe would skip the sell leg and strand
		// the bought position. Stage timeouts still bound each step.
		runCtx := context.WithoutCancel(ctx)
		g.Go(func() error {
			w.flow.Run(runCtx, event)
			return nil
		})
	}

	// Let in-flight runs finish; abandoning one mid-probe strands capital.
	return g.Wait()
}
