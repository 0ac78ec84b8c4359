package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook/payload"
	"github.com/rs/zerolog"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the inbound webhook operation
type UseCase interface {
	Receive(ctx context.Context, req RawRequest) Result
}

// Verifier authenticates a raw body against its signature header
type Verifier interface {
	Verify(payload []byte, header string, receivedAt time.Time) error
}

/* Result is the terminal state of one delivery
 * StatusCode is what the processor gets back; Err carries the internal detail
 * and must not be written to the response
 */
type Result struct {
	StatusCode  int
	Disposition Disposition
	EventType   string
	EventID     string
	Err         error
}

// Acknowledged reports whether the processor receives a success response
func (r Result) Acknowledged() bool {
	return r.StatusCode == http.StatusOK
}

// DefaultOutboxTimeout bounds parking a message after a failed dispatch
const DefaultOutboxTimeout = 3 * time.Second

type Service struct {
	Verifier      Verifier
	Router        *Router
	Dispatcher    *Dispatcher
	Outbox        OutboxWriter
	OutboxTimeout time.Duration
	Recorder      Recorder
	Logger        zerolog.Logger
}

// Option configures optional collaborators of the Service
type Option func(*Service)

// WithOutbox parks messages whose dispatch failed
func WithOutbox(outbox OutboxWriter) Option {
	return func(s *Service) { s.Outbox = outbox }
}

// WithOutboxTimeout bounds each Park call
func WithOutboxTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.OutboxTimeout = timeout }
}

// WithRecorder sets the operational recorder
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) { s.Recorder = recorder }
}

// WithLogger sets the structured logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.Logger = logger }
}

// NewService creates a new webhook service with dependency injection
func NewService(verifier Verifier, router *Router, dispatcher *Dispatcher, opts ...Option) *Service {
	s := &Service{
		Verifier:      verifier,
		Router:        router,
		Dispatcher:    dispatcher,
		OutboxTimeout: DefaultOutboxTimeout,
		Recorder:      NopRecorder{},
		Logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

/* Receive runs verify -> decode -> route -> normalize -> dispatch
 * Each stage either narrows the request to a more trusted value or ends it
 */
func (s *Service) Receive(ctx context.Context, req RawRequest) Result {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}

	if err := s.Verifier.Verify(req.Body, req.Signature, req.ReceivedAt); err != nil {
		return s.finish(ctx, Result{StatusCode: http.StatusBadRequest, Disposition: RejectedSignature, Err: err})
	}

	event, err := payload.Decode(req.Body)
	if err != nil {
		return s.finish(ctx, Result{StatusCode: http.StatusBadRequest, Disposition: RejectedPayload, Err: err})
	}

	res := Result{StatusCode: http.StatusOK, EventType: event.Type, EventID: event.ID}

	handler, outcome := s.Router.Route(event)
	if outcome == Ignored {
		res.Disposition = IgnoredEvent
		return s.finish(ctx, res)
	}

	msg, err := handler.Normalize(event.Object)
	if err != nil {
		res.Disposition = NormalizeFailed
		res.Err = err
		s.Recorder.OperationalError(ctx, "normalize", normalizeReason(err))
		return s.finish(ctx, res)
	}

	env, err := s.Dispatcher.Envelope(handler.Subject(), msg)
	if err != nil {
		res.Disposition = NormalizeFailed
		res.Err = err
		s.Recorder.OperationalError(ctx, "normalize", "envelope")
		return s.finish(ctx, res)
	}

	if err := s.Dispatcher.Publish(ctx, env); err != nil {
		res.Disposition = DispatchFailed
		res.Err = err
		s.Recorder.OperationalError(ctx, "dispatch", dispatchReason(err))
		s.park(ctx, env, err)
		return s.finish(ctx, res)
	}

	res.Disposition = Dispatched
	return s.finish(ctx, res)
}

// park stores env in the outbox when one is configured
func (s *Service) park(ctx context.Context, env Envelope, cause error) {
	if s.Outbox == nil {
		return
	}

	timeout := s.OutboxTimeout
	if timeout <= 0 {
		timeout = DefaultOutboxTimeout
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	entry := NewOutboxEntry(env, cause.Error())
	if err := s.Outbox.Park(pctx, entry); err != nil {
		s.Recorder.OperationalError(ctx, "outbox", "park")
		s.Logger.Error().Err(err).
			Str("envelope_id", env.ID).
			Str("subject", env.Subject).
			Msg("parking undelivered message failed, message lost")
		return
	}

	s.Logger.Warn().
		Str("envelope_id", env.ID).
		Str("subject", env.Subject).
		Msg("message parked in outbox")
}

// finish records and logs the result exactly once
func (s *Service) finish(ctx context.Context, res Result) Result {
	s.Recorder.Received(ctx, res.EventType, res.Disposition)

	var ev *zerolog.Event
	switch {
	case res.Disposition.IsOperationalError():
		ev = s.Logger.Error()
	case res.Disposition.IsRejected():
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Info()
	}

	ev.Str("event_type", res.EventType).
		Str("event_id", res.EventID).
		Str("outcome", string(res.Disposition)).
		Int("status", res.StatusCode).
		Err(res.Err).
		Msg("webhook processed")

	return res
}

func normalizeReason(err error) string {
	var missing *payload.MissingFieldError
	switch {
	case errors.As(err, &missing):
		return "missing_field:" + missing.Field
	case errors.Is(err, payload.ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}

func dispatchReason(err error) string {
	if errors.Is(err, ErrDispatchTimeout) {
		return "timeout"
	}
	return "unavailable"
}
