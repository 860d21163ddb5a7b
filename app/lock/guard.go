// Package lock provides the in-flight guard that keeps a redelivered
// event from being processed twice at the same time. The bus is
// at-least-once; the guard makes acknowledgment idempotent within the
// lock TTL.
package lock

import (
	"context"
	"time"
)

// Guard marks events as in flight for the duration of a dispatch cycle.
type Guard interface {
	// TryAcquire marks the event in flight. It returns false when another
	// consumer already holds the event.
	TryAcquire(ctx context.Context, channel string, eventID string, ttl time.Duration) (bool, error)
	// Release clears the in-flight mark if this process owns it.
	Release(ctx context.Context, channel string, eventID string) error
}
