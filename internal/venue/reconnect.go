package venue

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrMaxReconnects is returned by a session's Run once consecutive
// reconnect attempts exhaust ReconnectPolicy.MaxAttempts without a
// connection surviving long enough to be considered established — one of
// the three error kinds spec.md §7 allows to propagate all the way to
// process exit.
var ErrMaxReconnects = errors.New("venue: max reconnect attempts exceeded")

// ReconnectPolicy is the exponential-backoff reconnect schedule shared by
// every venue session, grounded on 0xtitan6-polymarket-mm's
// internal/exchange/ws.go (1s, 2s, 4s, ... doubling up to a 30s cap),
// extended with a MaxAttempts cap so a session surfaces ErrMaxReconnects
// instead of retrying forever against a host that is permanently gone.
type ReconnectPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxAttempts bounds consecutive failed reconnects since the last
	// established connection; 0 means unlimited (the teacher's behavior).
	MaxAttempts int
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  0,
	}
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// runReconnectLoop calls connect repeatedly until ctx is cancelled or
// policy.MaxAttempts consecutive failures are exhausted. connect is handed
// an onConnected callback to invoke as soon as the underlying dial
// succeeds (before blocking on reads) — a connection that reaches that
// point resets the backoff delay and the consecutive-failure count,
// matching "consecutive hard errors" in spec.md §4.1 rather than counting
// a single long-lived session's eventual disconnect against a host that
// is otherwise healthy.
func runReconnectLoop(ctx context.Context, policy ReconnectPolicy, logger *slog.Logger, name string, connect func(ctx context.Context, onConnected func()) error) error {
	policy = policy.withDefaults()
	delay := policy.InitialDelay
	attempt := 0

	for {
		err := connect(ctx, func() {
			attempt = 0
			delay = policy.InitialDelay
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			logger.Error(name+" exhausted reconnect attempts", "attempts", attempt, "err", err)
			return ErrMaxReconnects
		}

		logger.Warn(name+" disconnected, reconnecting", "err", err, "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}
