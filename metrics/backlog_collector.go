package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook"
)

// StreamLengther reports how many entries a subject stream holds
type StreamLengther interface {
	StreamLength(ctx context.Context, subject string) (int64, error)
}

// BacklogCollector implements the Collector interface over the bus streams and the outbox
// Either source may be nil, its metrics are then reported empty
type BacklogCollector struct {
	streams  StreamLengther
	subjects []string
	outbox   webhook.OutboxReader
}

// NewBacklogCollector creates a new backlog collector
func NewBacklogCollector(streams StreamLengther, subjects []string, outbox webhook.OutboxReader) *BacklogCollector {
	return &BacklogCollector{
		streams:  streams,
		subjects: subjects,
		outbox:   outbox,
	}
}

// Collect gathers all backlog metrics
func (c *BacklogCollector) Collect(ctx context.Context) (Metrics, error) {
	streamLengths, err := c.GetStreamLengths(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting stream lengths: %w", err)
	}

	pending, err := c.GetOutboxPending(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting outbox backlog: %w", err)
	}

	return Metrics{
		StreamLengths: streamLengths,
		OutboxPending: pending,
		Timestamp:     time.Now(),
	}, nil
}

// GetStreamLengths returns the length of each subject stream
func (c *BacklogCollector) GetStreamLengths(ctx context.Context) (map[string]int64, error) {
	lengths := make(map[string]int64)
	if c.streams == nil {
		return lengths, nil
	}

	for _, subject := range c.subjects {
		length, err := c.streams.StreamLength(ctx, subject)
		if err != nil {
			// Continue even if one stream fails
			continue
		}
		lengths[subject] = length
	}

	return lengths, nil
}

// GetOutboxPending returns the outbox backlog
func (c *BacklogCollector) GetOutboxPending(ctx context.Context) (int64, error) {
	if c.outbox == nil {
		return 0, nil
	}
	return c.outbox.CountPending(ctx)
}
