package reftrack

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// OpportunityDedupe is an optional distributed de-dup set for repeating
// signals (cross-market triangle opportunities, Kalshi spread alerts)
// backed by Redis SETNX, grounded on the Set/Get cache usage in the pack's
// stockbit-haka-haki and bankai example handlers. A single process's
// in-memory rearm-window check (internal/detect's own cooldown state)
// remains the source of truth; this only prevents re-alerting/re-persisting
// the same opportunity from more than one composition-root process sharing
// a Redis instance. Nil-safe: a *OpportunityDedupe obtained from
// NewNoopDedupe always reports "not seen" so the feature is opt-in.
type OpportunityDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOpportunityDedupe dials addr lazily (go-redis connects on first
// command) and de-dupes keys for ttl.
func NewOpportunityDedupe(addr string, ttl time.Duration) *OpportunityDedupe {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OpportunityDedupe{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// NewNoopDedupe returns a dedupe with no backing client — Seen always
// reports false, used when no redis_addr is configured.
func NewNoopDedupe() *OpportunityDedupe {
	return &OpportunityDedupe{}
}

// Seen atomically records key if absent (SETNX) and reports whether it was
// already present within ttl. A Redis error, or a nil client, is treated as
// "not seen" so an outage degrades to re-alerting rather than suppressing a
// real opportunity.
func (d *OpportunityDedupe) Seen(ctx context.Context, key string) bool {
	if d == nil || d.client == nil {
		return false
	}
	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false
	}
	return !set
}

// Close releases the underlying connection pool, if any.
func (d *OpportunityDedupe) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
