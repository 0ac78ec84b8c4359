package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

/* RawRequest is the exact capture of one inbound delivery
 * Body is kept byte for byte: the signature is computed over it
 */
type RawRequest struct {
	Body       []byte
	Signature  string
	ReceivedAt time.Time
}

/* Message is the normalized payment event put on the internal bus
 * Its JSON shape is a contract with downstream consumers
 */
type Message struct {
	PaymentReference string  `json:"stripePaymentId"`
	OrderID          string  `json:"orderId"`
	ReceiptURL       *string `json:"receiptUrl"`
}

// Envelope is what a Publisher writes to the bus
type Envelope struct {
	// ID identifies one publication, consumers may use it to drop duplicates
	ID string

	// Subject is the topic, stream or routing key
	Subject string

	// Key groups related messages (partition key); the order id for payments
	Key string

	// Payload is the JSON encoded Message
	Payload []byte
}

// NewEnvelope serializes msg for the given subject
func NewEnvelope(id, subject string, msg Message) (Envelope, error) {
	if subject == "" {
		return Envelope{}, fmt.Errorf("subject is required")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling message: %w", err)
	}

	return Envelope{
		ID:      id,
		Subject: subject,
		Key:     msg.OrderID,
		Payload: payload,
	}, nil
}
