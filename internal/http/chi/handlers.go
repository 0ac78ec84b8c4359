package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/payment-webhooks/bindings"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/rs/zerolog"
)

const (
	defaultWebhookPath  = "/webhook"
	defaultMaxBodyBytes = 64 << 10
)

// Options configures the HTTP surface
type Options struct {
	Logger       zerolog.Logger
	WebhookPath  string
	MaxBodyBytes int64
	Bindings     *bindings.Loader // optional, served on /v1/bindings
	Metrics      http.Handler     // optional, served on /metrics
}

// NewLogger creates the JSON request logger shared by the HTTP layer and the service
func NewLogger(service string) zerolog.Logger {
	return httplog.NewLogger(service, httplog.Options{
		JSON:    true,
		Concise: true,
	})
}

// WebhookHandlers sets up the webhook API routes
func WebhookHandlers(ctx context.Context, webhookService webhook.UseCase, opts Options) *chi.Mux {
	path := opts.WebhookPath
	if path == "" {
		path = defaultWebhookPath
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Method(http.MethodGet, "/", getRoot())

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Method(http.MethodPost, path, postWebhook(webhookService, maxBody))

	if opts.Bindings != nil {
		r.Method(http.MethodGet, "/v1/bindings", getBindings(opts.Bindings))
	}

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}
