package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDispatchTimeout bounds a single publish
const DefaultDispatchTimeout = 3 * time.Second

var (
	ErrDispatchUnavailable = errors.New("event bus unavailable")
	ErrDispatchTimeout     = errors.New("event bus publish timed out")
)

/* Dispatcher publishes normalized messages to the bus
 * One call is one publish attempt, there is no retry here
 */
type Dispatcher struct {
	Publisher Publisher
	Timeout   time.Duration
	Recorder  Recorder
	NewID     func() string
}

// NewDispatcher creates a dispatcher with the given publish timeout
func NewDispatcher(publisher Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		Publisher: publisher,
		Timeout:   timeout,
		Recorder:  NopRecorder{},
		NewID:     func() string { return uuid.New().String() },
	}
}

// Envelope wraps msg for subject with a fresh publication id
func (d *Dispatcher) Envelope(subject string, msg Message) (Envelope, error) {
	return NewEnvelope(d.NewID(), subject, msg)
}

// Dispatch publishes msg under subject
func (d *Dispatcher) Dispatch(ctx context.Context, subject string, msg Message) error {
	env, err := d.Envelope(subject, msg)
	if err != nil {
		return fmt.Errorf("building envelope: %w", err)
	}
	return d.Publish(ctx, env)
}

/* Publish hands env to the bus client and waits for it to accept the message
 * Cancellation of ctx is not propagated: once started the publish runs until it
 * completes or the dispatch timeout expires
 */
func (d *Dispatcher) Publish(ctx context.Context, env Envelope) error {
	if d.Publisher == nil {
		return fmt.Errorf("%w: no publisher configured", ErrDispatchUnavailable)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	err := d.Publisher.Publish(pctx, env)
	if d.Recorder != nil {
		d.Recorder.ObserveDispatch(ctx, env.Subject, time.Since(start), err)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w", ErrDispatchTimeout, timeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrDispatchUnavailable, err)
	}
}
