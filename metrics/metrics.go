package metrics

import (
	"context"
	"time"
)

// Metrics represents the backlog of the payment webhook service
type Metrics struct {
	// StreamLengths maps bus subject to the number of entries in its stream
	StreamLengths map[string]int64 `json:"stream_lengths"`

	// OutboxPending is the number of parked envelopes awaiting the relay
	OutboxPending int64 `json:"outbox_pending"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting backlog metrics
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetStreamLengths returns the number of entries per subject stream
	GetStreamLengths(ctx context.Context) (map[string]int64, error)

	// GetOutboxPending returns the number of parked envelopes
	GetOutboxPending(ctx context.Context) (int64, error)
}
