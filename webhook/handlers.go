package webhook

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/marcelsud/payment-webhooks/webhook/payload"
)

const (
	// PaymentSucceededSubject is the default subject for captured charges
	PaymentSucceededSubject = "payment.succeeded"

	// ChargeNormalizer names the charge object normalizer in binding files
	ChargeNormalizer = "charge"
)

// normalizers maps binding normalizer names to handler constructors
var normalizers = map[string]func(subject string) Handler{
	ChargeNormalizer: func(subject string) Handler { return NewChargeHandler(subject) },
}

// NewHandler builds the handler for a normalizer name
func NewHandler(normalizer, subject string) (Handler, error) {
	build, ok := normalizers[normalizer]
	if !ok {
		return nil, fmt.Errorf("unknown normalizer: %s", normalizer)
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required for normalizer %s", normalizer)
	}
	return build(subject), nil
}

// Normalizers lists the normalizer names NewHandler accepts
func Normalizers() []string {
	names := make([]string, 0, len(normalizers))
	for name := range normalizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChargeHandler normalizes charge objects
type ChargeHandler struct {
	subject string
}

// NewChargeHandler creates a charge handler publishing to subject
func NewChargeHandler(subject string) *ChargeHandler {
	return &ChargeHandler{subject: subject}
}

// Subject returns the bus subject
func (h *ChargeHandler) Subject() string {
	return h.subject
}

// Normalize maps id, metadata.orderId and receipt_url to a Message
func (h *ChargeHandler) Normalize(object json.RawMessage) (Message, error) {
	charge, err := payload.ParseCharge(object)
	if err != nil {
		return Message{}, err
	}

	return Message{
		PaymentReference: charge.ID,
		OrderID:          charge.OrderID,
		ReceiptURL:       charge.ReceiptURL,
	}, nil
}

// DefaultRouter registers the built-in charge.succeeded handler
func DefaultRouter() *Router {
	r := NewRouter()
	_ = r.Register(payload.ChargeSucceeded, NewChargeHandler(PaymentSucceededSubject))
	return r
}
