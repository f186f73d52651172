// Package notify pushes probe outcomes to operator channels (Telegram,
// Discord). Events can be filtered so operators only hear about the
// outcomes they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// Event types emitted per completed probe.
const (
	EventHoneypotDetected = "honeypot_detected"
	EventSuccessfulSell   = "successful_sell"
)

// sendTimeout bounds delivery of one notification across all senders.
const sendTimeout = 15 * time.Second

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns the sender identifier (e.g. "telegram").
	Name() string
}

// Notifier dispatches probe outcomes to the registered senders. Delivery
// runs on its own goroutine with its own deadline; a slow webhook never
// stalls the pipeline.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// event types in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// ProbeCompleted formats and dispatches the outcome of one finished run.
func (n *Notifier) ProbeCompleted(_ context.Context, rec *domain.ProbeRecord) {
	if len(n.senders) == 0 {
		return
	}

	event, title, message := describe(rec)
	if len(n.events) > 0 && !n.events[event] {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		n.dispatch(ctx, title, message)
	}()
}

// describe maps a record to an event type and a human-readable summary.
func describe(rec *domain.ProbeRecord) (event, title, message string) {
	token := rec.TokenAddress.Hex()

	if rec.Outcome == domain.OutcomeSuccessfulSell {
		return EventSuccessfulSell,
			"Probe round trip completed",
			fmt.Sprintf("token %s\nprofit %s ETH (yield %s%%)", token, rec.Profit.String(), rec.YieldPercent.StringFixed(2))
	}
	return EventHoneypotDetected,
		"Honeypot suspected",
		fmt.Sprintf("token %s\nsell failed: %s\nspent %s ETH", token, rec.FailReason, rec.AmountIn.String())
}

// dispatch sends to every sender; one failure never blocks the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
