package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RecordStore persists finalized probe records, one per token address.
// Save overwrites any earlier record for the same token (last writer
// wins across racing runs).
type RecordStore interface {
	Save(ctx context.Context, rec *ProbeRecord) error
	Load(ctx context.Context, token common.Address) (*ProbeRecord, error)
	List(ctx context.Context) ([]common.Address, error)
}

// RunHistoryStore appends one row per completed run for cross-run
// reporting. Unlike RecordStore it keeps every run, including reruns of
// the same token.
type RunHistoryStore interface {
	Insert(ctx context.Context, rec *ProbeRecord) error
	ListRecent(ctx context.Context, limit int) ([]ProbeRecord, error)
	CountByOutcome(ctx context.Context, since time.Time) (map[ShortTermOutcome]int64, error)
}

// DiscoveryQueue delivers pair-discovery events. Pop blocks the calling
// run until an event is available or the context is done. There is no
// deduplication; two events for the same token race independently.
type DiscoveryQueue interface {
	Pop(ctx context.Context) (DiscoveryEvent, error)
	Drain(ctx context.Context) error
}

// StatusPublisher broadcasts live run-status updates for the dashboard.
// Publishing is best effort; failures must not affect the run.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, payload []byte) error
}
