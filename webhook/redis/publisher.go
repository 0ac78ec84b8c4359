package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of webhook.Publisher
 * Every subject is its own stream, consumers read it with their own consumer groups
 */

const (
	streamPrefix = "events" // Stream naming: events:{subject}
	pingTimeout  = 5 * time.Second
)

type Publisher struct {
	client *redis.Client
	maxLen int64
}

// NewPublisher creates a new Redis Streams publisher
// maxLen caps every stream approximately, zero keeps streams unbounded
func NewPublisher(addr, password string, db int, maxLen int64) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewPublisherWithClient(client, maxLen), nil
}

// NewPublisherWithClient wraps an existing client
func NewPublisherWithClient(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{
		client: client,
		maxLen: maxLen,
	}
}

// Publish appends the envelope to the stream of its subject
func (p *Publisher) Publish(ctx context.Context, env webhook.Envelope) error {
	args := &redis.XAddArgs{
		Stream: StreamKey(env.Subject),
		Values: map[string]interface{}{
			"id":      env.ID,
			"key":     env.Key,
			"payload": env.Payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("adding to stream %s: %w", args.Stream, err)
	}

	return nil
}

// StreamLength returns the number of entries in the stream of subject
func (p *Publisher) StreamLength(ctx context.Context, subject string) (int64, error) {
	n, err := p.client.XLen(ctx, StreamKey(subject)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting length of %s: %w", StreamKey(subject), err)
	}
	return n, nil
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}

// StreamKey returns the stream a subject is published to
func StreamKey(subject string) string {
	return fmt.Sprintf("%s:%s", streamPrefix, subject)
}
