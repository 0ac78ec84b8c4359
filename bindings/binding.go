package bindings

import (
	"fmt"
	"slices"

	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/payload"
)

/* Binding maps a processor event type to a normalizer and a bus subject
 * Handled event types are exactly the bound ones; everything else is ignored
 */
type Binding struct {
	EventType  string
	Subject    string
	Normalizer string
}

// Validate checks if the binding configuration is valid
func (b *Binding) Validate() error {
	if err := payload.ValidateEventType(b.EventType); err != nil {
		return fmt.Errorf("invalid event_type '%s': %w", b.EventType, err)
	}
	if b.Subject == "" {
		return fmt.Errorf("subject cannot be empty for event type %s", b.EventType)
	}
	if !slices.Contains(webhook.Normalizers(), b.Normalizer) {
		return fmt.Errorf("unknown normalizer '%s' for event type %s (known: %v)", b.Normalizer, b.EventType, webhook.Normalizers())
	}
	return nil
}

// Handler builds the webhook handler for this binding
func (b *Binding) Handler() (webhook.Handler, error) {
	return webhook.NewHandler(b.Normalizer, b.Subject)
}

// Defaults returns the built-in charge binding used when no file is configured
func Defaults() []*Binding {
	return []*Binding{
		{
			EventType:  payload.ChargeSucceeded,
			Subject:    webhook.PaymentSucceededSubject,
			Normalizer: webhook.ChargeNormalizer,
		},
	}
}

// Register adds every binding to the router
func Register(router *webhook.Router, bindings []*Binding) error {
	for _, b := range bindings {
		h, err := b.Handler()
		if err != nil {
			return fmt.Errorf("building handler for %s: %w", b.EventType, err)
		}
		if err := router.Register(b.EventType, h); err != nil {
			return err
		}
	}
	return nil
}

// NewRouter builds a router from bindings
func NewRouter(bindings []*Binding) (*webhook.Router, error) {
	router := webhook.NewRouter()
	if err := Register(router, bindings); err != nil {
		return nil, err
	}
	return router, nil
}
