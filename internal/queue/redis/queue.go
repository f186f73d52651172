package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// popTimeout bounds each BRPOP so the loop can notice context
// cancellation between blocks.
const popTimeout = 5 * time.Second

// DiscoveryQueue implements domain.DiscoveryQueue over a Redis list. The
// pair scanner LPUSHes one JSON event per new pair; workers BRPOP from
// the other end.
type DiscoveryQueue struct {
	rdb *redis.Client
	key string
}

// NewDiscoveryQueue creates a DiscoveryQueue reading from the given list
// key.
func NewDiscoveryQueue(c *Client, key string) *DiscoveryQueue {
	return &DiscoveryQueue{rdb: c.Underlying(), key: key}
}

// Pop blocks until one discovery event is available or ctx is done.
// Malformed payloads are reported as errors so the worker can log and
// move on without dropping the loop.
func (q *DiscoveryQueue) Pop(ctx context.Context) (domain.DiscoveryEvent, error) {
	for {
		values, err := q.rdb.BRPop(ctx, popTimeout, q.key).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return domain.DiscoveryEvent{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return domain.DiscoveryEvent{}, fmt.Errorf("redis: brpop %s: %w", q.key, err)
		}
		// BRPOP returns [key, value].
		if len(values) != 2 {
			return domain.DiscoveryEvent{}, fmt.Errorf("redis: brpop %s: unexpected reply length %d", q.key, len(values))
		}

		var event domain.DiscoveryEvent
		if err := json.Unmarshal([]byte(values[1]), &event); err != nil {
			return domain.DiscoveryEvent{}, fmt.Errorf("redis: decode discovery event: %w", err)
		}
		return event, nil
	}
}

// Drain deletes the backlog. Used on startup when stale discoveries are
// not worth probing.
func (q *DiscoveryQueue) Drain(ctx context.Context) error {
	if err := q.rdb.Del(ctx, q.key).Err(); err != nil {
		return fmt.Errorf("redis: drain %s: %w", q.key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.DiscoveryQueue = (*DiscoveryQueue)(nil)
