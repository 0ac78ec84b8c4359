package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marcelsud/payment-webhooks/webhook"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange subjects are routed through
const DefaultExchange = "payments"

var ErrNacked = errors.New("broker refused the message")

/* RabbitMQ implementation of webhook.Publisher
 * The subject is the routing key of a durable topic exchange
 * Publisher confirms are on: Publish returns once the broker acked the message
 */
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	chn      *amqp.Channel
	exchange string
}

// NewPublisher dials url, declares the exchange and puts the channel in confirm mode
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}

	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	err = chn.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	if err := chn.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}

	return &Publisher{
		conn:     conn,
		chn:      chn,
		exchange: exchange,
	}, nil
}

// Publish sends env and waits for the broker confirmation
func (p *Publisher) Publish(ctx context.Context, env webhook.Envelope) error {
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	confirm, err := p.chn.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,  // exchange
		env.Subject, // routing key
		false,       // mandatory
		false,       // immediate
		NewPublishing(env),
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", env.Subject, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirmation of %s: %w", env.ID, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNacked, env.ID)
	}
	return nil
}

// Close cleans up the channel and the connection
func (p *Publisher) Close() error {
	if err := p.chn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

// NewPublishing maps an envelope to a persistent AMQP message
func NewPublishing(env webhook.Envelope) amqp.Publishing {
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.ID,
		CorrelationId: env.Key,
		Type:          env.Subject,
		Body:          env.Payload,
	}
}
