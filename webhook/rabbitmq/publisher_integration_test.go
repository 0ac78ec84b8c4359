//go:build integration

package rabbitmq_test

import (
	"context"
	"testing"
	"time"

	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainersrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func TestPublisher_Publish_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainersrabbitmq.Run(ctx, "rabbitmq:3.13-management-alpine")
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate RabbitMQ container: %v", err)
		}
	}()

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	pub, err := rabbitmq.NewPublisher(url, "payments-test")
	require.NoError(t, err)
	defer pub.Close()

	// consumer side: a queue bound to the subject
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	chn, err := conn.Channel()
	require.NoError(t, err)
	q, err := chn.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, chn.QueueBind(q.Name, "payment.succeeded", "payments-test", false, nil))
	deliveries, err := chn.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	t.Run("success - confirmed message is routed by subject", func(t *testing.T) {
		d := webhook.NewDispatcher(pub, 2*time.Second)
		d.NewID = func() string { return "env-1" }

		require.NoError(t, d.Dispatch(ctx, "payment.succeeded", webhook.Message{PaymentReference: "ch_1", OrderID: "ord_9"}))

		select {
		case msg := <-deliveries:
			assert.Equal(t, "env-1", msg.MessageId)
			assert.JSONEq(t, `{"stripePaymentId":"ch_1","orderId":"ord_9","receiptUrl":null}`, string(msg.Body))
		case <-time.After(5 * time.Second):
			t.Fatal("message not delivered")
		}
	})

	t.Run("error - closed publisher is unavailable", func(t *testing.T) {
		closed, err := rabbitmq.NewPublisher(url, "payments-test")
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		err = webhook.NewDispatcher(closed, time.Second).Publish(ctx, webhook.Envelope{ID: "x", Subject: "payment.succeeded"})
		require.ErrorIs(t, err, webhook.ErrDispatchUnavailable)
	})
}
