// Package dispatch contains the per-channel workers that turn queued
// notification events into delivered messages: provider resolution,
// content materialization, attachment/link resolution, provider send and
// bus acknowledgment.
package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cloudcore-labs/notification-hub/app/message"
	"github.com/cloudcore-labs/notification-hub/app/queue"
)

// Bus is the worker-side view of the event bus.
type Bus interface {
	Subscribe(ctx context.Context, stream string, concurrency int, handler queue.Handler) error
	Complete(ctx context.Context, stream string, d queue.Delivery) error
	Error(ctx context.Context, stream string, d queue.Delivery, reason string) error
}

// AttachmentResolver resolves an attachment id to embeddable content.
type AttachmentResolver interface {
	ResolveAttachment(ctx context.Context, attachmentID string) (message.Attachment, error)
}

// LinkResolver resolves an attachment id to a shortened public link.
type LinkResolver interface {
	ResolveLink(ctx context.Context, attachmentID string) (message.ResourceLink, error)
}

// History records per-event dispatch outcomes. Recording failures are
// logged, never escalated; history observes dispatch, it does not gate it.
type History interface {
	Record(ctx context.Context, eventID string, channel string, provider string, recipients int, status string, detail string) error
}

// Options carries the per-channel worker knobs.
type Options struct {
	// DefaultProvider substitutes an absent provider name before
	// resolution.
	DefaultProvider string
	// Concurrency bounds in-flight handlers per subscription.
	Concurrency int
	// LockTTL bounds the in-flight guard held per event.
	LockTTL time.Duration
}

// Counters are the per-channel dispatch statistics. All access is atomic;
// the monitor listener reads and resets them each tick.
type Counters struct {
	Processed   atomic.Int64
	Failed      atomic.Int64
	Attachments atomic.Int64
	Links       atomic.Int64
}
