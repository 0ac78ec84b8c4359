package payload

import (
	"encoding/json"
	"fmt"
)

// ChargeSucceeded is the processor event type emitted when a charge is captured
const ChargeSucceeded = "charge.succeeded"

// Charge holds the fields of a charge object the service depends on
type Charge struct {
	ID         string
	OrderID    string
	ReceiptURL *string
}

// ParseCharge extracts id, metadata.orderId and receipt_url from a charge object
// Required fields are checked in that order and the first absent one is reported
func ParseCharge(object json.RawMessage) (Charge, error) {
	var raw struct {
		ID         *string          `json:"id"`
		Metadata   *json.RawMessage `json:"metadata"`
		ReceiptURL *string          `json:"receipt_url"`
	}
	if err := unmarshalObject(object, &raw); err != nil {
		return Charge{}, fmt.Errorf("%w: charge: %v", ErrMalformed, err)
	}

	if raw.ID == nil || *raw.ID == "" {
		return Charge{}, &MissingFieldError{Field: "id"}
	}

	if raw.Metadata == nil || !isObject(*raw.Metadata) {
		return Charge{}, &MissingFieldError{Field: "metadata"}
	}

	var metadata struct {
		OrderID *string `json:"orderId"`
	}
	if err := json.Unmarshal(*raw.Metadata, &metadata); err != nil {
		return Charge{}, fmt.Errorf("%w: charge metadata: %v", ErrMalformed, err)
	}
	if metadata.OrderID == nil || *metadata.OrderID == "" {
		return Charge{}, &MissingFieldError{Field: "orderId"}
	}

	return Charge{
		ID:         *raw.ID,
		OrderID:    *metadata.OrderID,
		ReceiptURL: raw.ReceiptURL,
	}, nil
}
