package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook"
	skafka "github.com/segmentio/kafka-go"
)

// Header names carried next to every Kafka message
const (
	HeaderEnvelopeID = "envelope-id"
	HeaderSubject    = "subject"
)

// Writer defines the subset of segmentio kafka.Writer we need
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

/* Kafka implementation of webhook.Publisher
 * The subject is the topic and the envelope key the partition key, so every
 * message of an order lands on the same partition
 */
type Publisher struct {
	writer Writer
}

// NewPublisher creates a synchronous writer for the given brokers
// The writer has no fixed topic: each message carries its own
func NewPublisher(brokers []string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokers...),
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return NewPublisherWithWriter(w), nil
}

// NewPublisherWithWriter allows injecting a test writer
func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes env and returns once the leader acknowledged it
func (p *Publisher) Publish(ctx context.Context, env webhook.Envelope) error {
	msg := skafka.Message{
		Topic: env.Subject,
		Key:   []byte(env.Key),
		Value: env.Payload,
		Headers: []skafka.Header{
			{Key: HeaderEnvelopeID, Value: []byte(env.ID)},
			{Key: HeaderSubject, Value: []byte(env.Subject)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to topic %s: %w", env.Subject, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ParseBrokers splits a comma separated broker list
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
