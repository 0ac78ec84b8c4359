package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelRecorder implements webhook.Recorder with OpenTelemetry instruments exported in Prometheus format
type OTelRecorder struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prom.Registry
	collector     Collector

	// OTel meters and instruments
	meter             metric.Meter
	received          metric.Int64Counter
	operationalErrors metric.Int64Counter
	dispatchDuration  metric.Float64Histogram
	streamLengthGauge metric.Int64ObservableGauge
	outboxGauge       metric.Int64ObservableGauge
}

var _ webhook.Recorder = (*OTelRecorder)(nil)

// NewOTelRecorder creates the recorder; collector may be nil when there is no backlog to observe
func NewOTelRecorder(collector Collector) (*OTelRecorder, error) {
	registry := prom.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"payment-webhooks",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	r := &OTelRecorder{
		meterProvider: meterProvider,
		registry:      registry,
		collector:     collector,
		meter:         meter,
	}

	if err := r.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return r, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (r *OTelRecorder) registerInstruments() error {
	var err error

	r.received, err = r.meter.Int64Counter(
		"webhook.received",
		metric.WithDescription("Inbound deliveries by outcome and event type"),
		metric.WithUnit("{deliveries}"),
	)
	if err != nil {
		return fmt.Errorf("creating received counter: %w", err)
	}

	r.operationalErrors, err = r.meter.Int64Counter(
		"webhook.operational_errors",
		metric.WithDescription("Acknowledged deliveries whose message was not published"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return fmt.Errorf("creating operational errors counter: %w", err)
	}

	r.dispatchDuration, err = r.meter.Float64Histogram(
		"webhook.dispatch.duration",
		metric.WithDescription("Time spent publishing to the event bus"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch histogram: %w", err)
	}

	if r.collector == nil {
		return nil
	}

	r.streamLengthGauge, err = r.meter.Int64ObservableGauge(
		"webhook.bus.stream.length",
		metric.WithDescription("Number of entries in the stream of each subject"),
		metric.WithUnit("{messages}"),
		metric.WithInt64Callback(r.observeStreamLengths),
	)
	if err != nil {
		return fmt.Errorf("creating stream length gauge: %w", err)
	}

	r.outboxGauge, err = r.meter.Int64ObservableGauge(
		"webhook.outbox.pending",
		metric.WithDescription("Parked envelopes awaiting the relay"),
		metric.WithUnit("{entries}"),
		metric.WithInt64Callback(r.observeOutboxPending),
	)
	if err != nil {
		return fmt.Errorf("creating outbox gauge: %w", err)
	}

	return nil
}

// Received counts one inbound delivery
func (r *OTelRecorder) Received(ctx context.Context, eventType string, d webhook.Disposition) {
	r.received.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(d)),
		attribute.String("event.type", eventType),
	))
}

// OperationalError counts one acknowledged but lost message
func (r *OTelRecorder) OperationalError(ctx context.Context, stage string, reason string) {
	r.operationalErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", reason),
	))
}

// ObserveDispatch records the latency of one publish
func (r *OTelRecorder) ObserveDispatch(ctx context.Context, subject string, elapsed time.Duration, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}

	r.dispatchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("subject", subject),
		attribute.String("result", result),
	))
}

// observeStreamLengths is a callback that reports stream lengths
func (r *OTelRecorder) observeStreamLengths(ctx context.Context, observer metric.Int64Observer) error {
	lengths, err := r.collector.GetStreamLengths(ctx)
	if err != nil {
		return err
	}

	for subject, length := range lengths {
		observer.Observe(length, metric.WithAttributes(
			attribute.String("subject", subject),
		))
	}

	return nil
}

// observeOutboxPending is a callback that reports the outbox backlog
func (r *OTelRecorder) observeOutboxPending(ctx context.Context, observer metric.Int64Observer) error {
	pending, err := r.collector.GetOutboxPending(ctx)
	if err != nil {
		return err
	}

	observer.Observe(pending)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (r *OTelRecorder) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (r *OTelRecorder) Shutdown(ctx context.Context) error {
	if r.meterProvider != nil {
		return r.meterProvider.Shutdown(ctx)
	}
	return nil
}
