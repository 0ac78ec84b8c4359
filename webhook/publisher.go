package webhook

import (
	"context"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 */

/* Publisher writes envelopes to the internal event bus
 * Publish returns only once the bus client accepted the message
 * Implementations are shared by all in-flight requests and must be safe for concurrent use
 */
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// OutboxReader provides read operations for parked messages
type OutboxReader interface {
	FindPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	CountPending(ctx context.Context) (int64, error)
}

// OutboxWriter provides write operations for parked messages
type OutboxWriter interface {
	/* Park stores an envelope whose dispatch failed
	 * The relay publishes it later, outside of any request
	 */
	Park(ctx context.Context, entry OutboxEntry) error
	MarkPublished(ctx context.Context, id string) error
	RecordAttempt(ctx context.Context, id string, reason string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Outbox composes the outbox operations
type Outbox interface {
	OutboxReader
	OutboxWriter
	Close(ctx context.Context) error
}

/* Recorder makes operational outcomes observable
 * Every inbound delivery is recorded once through Received
 */
type Recorder interface {
	Received(ctx context.Context, eventType string, d Disposition)
	OperationalError(ctx context.Context, stage string, reason string)
	ObserveDispatch(ctx context.Context, subject string, elapsed time.Duration, err error)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) Received(context.Context, string, Disposition)                 {}
func (NopRecorder) OperationalError(context.Context, string, string)              {}
func (NopRecorder) ObserveDispatch(context.Context, string, time.Duration, error) {}
