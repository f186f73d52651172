// Package cpugate implements a CPU-load admission gate for the worker.
// New probe runs are held back while system CPU utilization is above a
// configured threshold.
package cpugate

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gate blocks run admission while CPU utilization exceeds MaxPercent.
type Gate struct {
	maxPercent float64
	interval   time.Duration
	logger     *slog.Logger

	// sample is swapped out in tests.
	sample func() (busy, total uint64, err error)
}

// New creates a Gate. maxPercent <= 0 disables gating entirely.
func New(maxPercent float64, logger *slog.Logger) *Gate {
	return &Gate{
		maxPercent: maxPercent,
		interval:   2 * time.Second,
		logger:     logger.With(slog.String("component", "cpugate")),
		sample:     readProcStat,
	}
}

// Acquire blocks until CPU utilization drops below the threshold or ctx
// is done. Utilization is measured over consecutive interval-spaced
// samples of /proc/stat.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.maxPercent <= 0 {
		return nil
	}

	prevBusy, prevTotal, err := g.sample()
	if err != nil {
		// Can't measure; admit rather than stall the queue.
		g.logger.Warn("cpu sampling unavailable, admitting", slog.String("error", err.Error()))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.interval):
		}

		busy, total, err := g.sample()
		if err != nil {
			g.logger.Warn("cpu sampling unavailable, admitting", slog.String("error", err.Error()))
			return nil
		}

		dTotal := total - prevTotal
		if dTotal == 0 {
			continue
		}
		percent := 100 * float64(busy-prevBusy) / float64(dTotal)
		prevBusy, prevTotal = busy, total

		if percent <= g.maxPercent {
			return nil
		}
		g.logger.Info("cpu above threshold, holding new runs",
			slog.Float64("cpu_percent", percent),
			slog.Float64("threshold", g.maxPercent),
		)
	}
}

// readProcStat returns aggregate busy and total jiffies from /proc/stat.
func readProcStat() (busy, total uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("cpugate: open /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		values := make([]uint64, 0, len(fields))
		for _, fld := range fields {
			v, perr := strconv.ParseUint(fld, 10, 64)
			if perr != nil {
				return 0, 0, fmt.Errorf("cpugate: parse /proc/stat: %w", perr)
			}
			values = append(values, v)
		}
		if len(values) < 5 {
			return 0, 0, fmt.Errorf("cpugate: short /proc/stat cpu line")
		}
		for _, v := range values {
			total += v
		}
		// Fields 4 (idle) and 5 (iowait) are the non-busy time.
		busy = total - values[3] - values[4]
		return busy, total, nil
	}
	return 0, 0, fmt.Errorf("cpugate: no cpu line in /proc/stat")
}
