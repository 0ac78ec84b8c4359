package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

/* OutboxEntry is an envelope that could not be published during its request
 * Uses value semantics as it represents data, not behavior
 */
type OutboxEntry struct {
	ID        string
	Subject   string
	Key       string
	Payload   []byte
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOutboxEntry parks env with the error of its first failed attempt
func NewOutboxEntry(env Envelope, lastError string) OutboxEntry {
	now := time.Now().UTC()
	return OutboxEntry{
		ID:        env.ID,
		Subject:   env.Subject,
		Key:       env.Key,
		Payload:   env.Payload,
		Status:    Pending,
		Attempts:  1,
		LastError: lastError,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Envelope rebuilds the original envelope, keeping its id
func (e OutboxEntry) Envelope() Envelope {
	return Envelope{
		ID:      e.ID,
		Subject: e.Subject,
		Key:     e.Key,
		Payload: e.Payload,
	}
}

const (
	DefaultRelayPollInterval = 5 * time.Second
	DefaultRelayBatchSize    = 50
	DefaultRelayMaxAttempts  = 10
	maxRelayBackoff          = 5 * time.Minute
)

/* Relay republishes parked entries in the background
 * After a failed publish the rest of that subject is skipped for the batch,
 * other subjects still go out. Any failure delays the next poll with
 * exponential backoff. An entry reaching MaxAttempts is marked failed and
 * no longer read.
 */
type Relay struct {
	Outbox       Outbox
	Dispatcher   *Dispatcher
	Recorder     Recorder
	Logger       zerolog.Logger
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// NewRelay creates a relay with default polling settings
func NewRelay(outbox Outbox, dispatcher *Dispatcher, logger zerolog.Logger) *Relay {
	return &Relay{
		Outbox:       outbox,
		Dispatcher:   dispatcher,
		Recorder:     NopRecorder{},
		Logger:       logger,
		PollInterval: DefaultRelayPollInterval,
		BatchSize:    DefaultRelayBatchSize,
		MaxAttempts:  DefaultRelayMaxAttempts,
	}
}

// Run polls the outbox until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultRelayPollInterval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = maxRelayBackoff
	b.MaxElapsedTime = 0

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		next := interval
		published, err := r.DispatchOnce(ctx)
		if err != nil {
			next = b.NextBackOff()
			r.Logger.Warn().Err(err).Dur("retry_in", next).Msg("outbox relay cycle failed")
		} else {
			b.Reset()
			if published > 0 {
				r.Logger.Info().Int("published", published).Msg("outbox relay cycle")
			}
		}
		timer.Reset(next)
	}
}

// DispatchOnce publishes one batch of pending entries and returns how many were published
func (r *Relay) DispatchOnce(ctx context.Context) (int, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = DefaultRelayBatchSize
	}

	entries, err := r.Outbox.FindPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("finding pending entries: %w", err)
	}

	var (
		published int
		errs      []error
		blocked   = make(map[string]bool)
	)
	for _, entry := range entries {
		if blocked[entry.Subject] {
			continue
		}

		if err := r.Dispatcher.Publish(ctx, entry.Envelope()); err != nil {
			blocked[entry.Subject] = true
			r.recorder().OperationalError(ctx, "relay", dispatchReason(err))
			r.recordFailure(ctx, entry, err)
			errs = append(errs, fmt.Errorf("publishing %s: %w", entry.ID, err))
			continue
		}

		if err := r.Outbox.MarkPublished(ctx, entry.ID); err != nil {
			// published but still pending: it will be sent again, consumers dedupe on the envelope id
			errs = append(errs, fmt.Errorf("marking %s published: %w", entry.ID, err))
			continue
		}
		published++
	}

	return published, errors.Join(errs...)
}

// recordFailure counts the attempt, or gives up on the entry once MaxAttempts is reached
func (r *Relay) recordFailure(ctx context.Context, entry OutboxEntry, cause error) {
	attempts := entry.Attempts + 1
	if r.MaxAttempts > 0 && attempts >= r.MaxAttempts {
		if err := r.Outbox.MarkFailed(ctx, entry.ID, cause.Error()); err != nil {
			r.Logger.Error().Err(err).Str("envelope_id", entry.ID).Msg("marking outbox entry failed")
			return
		}
		r.recorder().OperationalError(ctx, "relay", "abandoned")
		r.Logger.Error().Err(cause).
			Str("envelope_id", entry.ID).
			Str("subject", entry.Subject).
			Int("attempts", attempts).
			Msg("outbox entry abandoned")
		return
	}

	if err := r.Outbox.RecordAttempt(ctx, entry.ID, cause.Error()); err != nil {
		r.Logger.Error().Err(err).Str("envelope_id", entry.ID).Msg("recording outbox attempt failed")
	}
}

func (r *Relay) recorder() Recorder {
	if r.Recorder == nil {
		return NopRecorder{}
	}
	return r.Recorder
}
