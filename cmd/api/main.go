package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/payment-webhooks/bindings"
	"github.com/marcelsud/payment-webhooks/config"
	"github.com/marcelsud/payment-webhooks/internal/bus"
	"github.com/marcelsud/payment-webhooks/internal/http/chi"
	"github.com/marcelsud/payment-webhooks/metrics"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/postgres"
	"github.com/marcelsud/payment-webhooks/webhook/signature"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

/* The entry and exit door of the application
 * main.go wires every package: it loads configuration, opens the bus and the
 * optional outbox, and hands them to the business layer
 * Imports only go downwards: the app imports the business layer, which imports storage
 */

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := chi.NewLogger("payment-webhooks")
	if !cfg.HasSecret() {
		logger.Warn().Msg("STRIPE_ENDPOINT_SECRET is empty, every webhook will be rejected")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	loader, err := bindings.LoadOrDefault(cfg.BindingsFile)
	if err != nil {
		return fmt.Errorf("loading bindings: %w", err)
	}
	router, err := bindings.NewRouter(loader.List())
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	publisher, streams, err := bus.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening %s bus: %w", cfg.GetBusDriver(), err)
	}
	defer publisher.Close()

	var outbox *postgres.Outbox
	if cfg.OutboxEnabled {
		outbox, err = postgres.NewOutbox(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("opening outbox: %w", err)
		}
		defer outbox.Close(ctx)
		if err := outbox.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	var backlog webhook.OutboxReader
	if outbox != nil {
		backlog = outbox
	}
	recorder, err := metrics.NewOTelRecorder(metrics.NewBacklogCollector(streams, loader.Subjects(), backlog))
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	defer recorder.Shutdown(context.Background())

	verifier := signature.NewVerifier(signature.NewSecret(cfg.StripeEndpointSecret), cfg.GetTolerance())
	dispatcher := webhook.NewDispatcher(publisher, cfg.GetDispatchTimeout())
	dispatcher.Recorder = recorder

	opts := []webhook.Option{webhook.WithRecorder(recorder), webhook.WithLogger(logger)}
	if outbox != nil {
		opts = append(opts, webhook.WithOutbox(outbox), webhook.WithOutboxTimeout(cfg.GetOutboxTimeout()))
	}
	service := webhook.NewService(verifier, router, dispatcher, opts...)

	r := chi.WebhookHandlers(ctx, service, chi.Options{
		Logger:       logger,
		WebhookPath:  cfg.GetWebhookPath(),
		MaxBodyBytes: cfg.GetMaxBodyBytes(),
		Bindings:     loader,
		Metrics:      recorder.ServeHTTP(),
	})
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.GetPort(),
		Handler:      r,
	}

	var wg conc.WaitGroup
	errShutdown := make(chan error, 1)
	wg.Go(func() { shutdown(ctx, srv, cfg.GetShutdownTimeout(), logger, errShutdown) })

	if outbox != nil {
		relay := webhook.NewRelay(outbox, dispatcher, logger)
		relay.Recorder = recorder
		relay.PollInterval = cfg.GetOutboxPollInterval()
		relay.BatchSize = cfg.GetOutboxBatchSize()
		relay.MaxAttempts = cfg.GetOutboxMaxAttempts()
		wg.Go(func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("outbox relay stopped")
			}
		})
	}

	logger.Info().
		Str("port", cfg.GetPort()).
		Str("path", cfg.GetWebhookPath()).
		Str("bus", cfg.GetBusDriver()).
		Strs("event_types", router.EventTypes()).
		Bool("outbox", outbox != nil).
		Msg("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return err
	}

	wg.Wait()
	return <-errShutdown
}

func shutdown(ctxShutdown context.Context, server *http.Server, timeout time.Duration, logger zerolog.Logger, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		logger.Info().Msg("shutting down server")
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("forcing closing the server: %w", err)
	}
}
