package memory

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/marcelsud/payment-webhooks/webhook"
)

// Metadata keys set on every watermill message
const (
	MetadataKey     = "key"
	MetadataSubject = "subject"
)

/* In-process implementation of webhook.Publisher backed by watermill's gochannel
 * Used for local development and tests; messages live only as long as the process
 */
type Publisher struct {
	pubsub *gochannel.GoChannel
}

// NewPublisher creates a go channel pubsub
// A persistent pubsub keeps every message for subscribers that join later and
// grows with each publish; without it messages with no subscriber are dropped
func NewPublisher(logger watermill.LoggerAdapter, persistent bool) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return &Publisher{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				Persistent:          persistent,
				OutputChannelBuffer: 100,
			},
			logger,
		),
	}
}

// Publish publishes env on the topic named after its subject
func (p *Publisher) Publish(ctx context.Context, env webhook.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := message.NewMessage(env.ID, env.Payload)
	msg.Metadata.Set(MetadataKey, env.Key)
	msg.Metadata.Set(MetadataSubject, env.Subject)

	if err := p.pubsub.Publish(env.Subject, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", env.Subject, err)
	}
	return nil
}

// Subscribe starts consuming a subject
func (p *Publisher) Subscribe(ctx context.Context, subject string) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, subject)
}

// Close closes the underlying pubsub, subscriptions end
func (p *Publisher) Close() error {
	return p.pubsub.Close()
}

// Envelope converts a consumed message back into an envelope
func Envelope(msg *message.Message) webhook.Envelope {
	return webhook.Envelope{
		ID:      msg.UUID,
		Subject: msg.Metadata.Get(MetadataSubject),
		Key:     msg.Metadata.Get(MetadataKey),
		Payload: msg.Payload,
	}
}
