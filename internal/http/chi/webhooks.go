package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/payment-webhooks/bindings"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/signature"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

// ackResponse is returned for every acknowledged delivery
type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// errorResponse never carries internal error detail
type errorResponse struct {
	Error string `json:"error"`
}

// bindingResponse represents an event binding in the API
type bindingResponse struct {
	EventType  string `json:"event_type"`
	Subject    string `json:"subject"`
	Normalizer string `json:"normalizer"`
}

const invalidWebhook = "invalid webhook"

// postWebhook handles POST <webhook path>
// The body is read raw: the signature is computed over the exact bytes received
func postWebhook(webhookService webhook.UseCase, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAt := time.Now()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		defer r.Body.Close()
		if err != nil {
			reason := "unreadable_body"
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				reason = "body_too_large"
			}
			httplog.LogEntrySetField(r.Context(), "webhook_outcome", reason)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalidWebhook})
			return
		}

		res := webhookService.Receive(r.Context(), webhook.RawRequest{
			Body:       body,
			Signature:  r.Header.Get(signature.HeaderName),
			ReceivedAt: receivedAt,
		})

		httplog.LogEntrySetField(r.Context(), "webhook_outcome", string(res.Disposition))
		if res.EventType != "" {
			httplog.LogEntrySetField(r.Context(), "event_type", res.EventType)
		}

		if !res.Acknowledged() {
			writeJSON(w, res.StatusCode, errorResponse{Error: invalidWebhook})
			return
		}

		writeJSON(w, http.StatusOK, ackResponse{Acknowledged: true})
	})
}

// getBindings handles GET /v1/bindings
func getBindings(loader *bindings.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all := loader.List()

		responses := make([]bindingResponse, 0, len(all))
		for _, b := range all {
			responses = append(responses, bindingResponse{
				EventType:  b.EventType,
				Subject:    b.Subject,
				Normalizer: b.Normalizer,
			})
		}

		writeJSON(w, http.StatusOK, responses)
	})
}

// getRoot handles GET /
func getRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payment webhooks service is running"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
