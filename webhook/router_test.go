package webhook_test

import (
	"testing"

	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/mocks"
	"github.com/marcelsud/payment-webhooks/webhook/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	t.Run("success - registered type is handled", func(t *testing.T) {
		router := webhook.NewRouter()
		handler := mocks.NewHandler(t)
		require.NoError(t, router.Register("invoice.paid", handler))

		h, outcome := router.Route(payload.Event{Type: "invoice.paid"})
		assert.Equal(t, webhook.Handled, outcome)
		assert.Same(t, handler, h)
	})

	t.Run("success - unknown type is ignored", func(t *testing.T) {
		h, outcome := webhook.DefaultRouter().Route(payload.Event{Type: "charge.refunded"})
		assert.Equal(t, webhook.Ignored, outcome)
		assert.Nil(t, h)
	})

	t.Run("success - routing is case sensitive", func(t *testing.T) {
		_, outcome := webhook.DefaultRouter().Route(payload.Event{Type: "Charge.Succeeded"})
		assert.Equal(t, webhook.Ignored, outcome)
	})

	t.Run("success - default router handles charge succeeded", func(t *testing.T) {
		router := webhook.DefaultRouter()
		h, outcome := router.Route(payload.Event{Type: payload.ChargeSucceeded})
		require.Equal(t, webhook.Handled, outcome)
		assert.Equal(t, webhook.PaymentSucceededSubject, h.Subject())
		assert.Equal(t, []string{payload.ChargeSucceeded}, router.EventTypes())
	})

	t.Run("error - duplicate registration", func(t *testing.T) {
		router := webhook.DefaultRouter()
		err := router.Register(payload.ChargeSucceeded, webhook.NewChargeHandler("other"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already has a handler")
	})

	t.Run("error - invalid event type", func(t *testing.T) {
		err := webhook.NewRouter().Register("charge..succeeded", webhook.NewChargeHandler("x"))
		require.Error(t, err)
	})

	t.Run("error - nil handler", func(t *testing.T) {
		err := webhook.NewRouter().Register("charge.succeeded", nil)
		require.Error(t, err)
	})
}

func TestNewHandler(t *testing.T) {
	t.Run("success - charge normalizer", func(t *testing.T) {
		h, err := webhook.NewHandler(webhook.ChargeNormalizer, "payments.captured")
		require.NoError(t, err)
		assert.Equal(t, "payments.captured", h.Subject())
	})

	t.Run("error - unknown normalizer", func(t *testing.T) {
		_, err := webhook.NewHandler("refund", "payments.refunded")
		require.Error(t, err)
	})

	t.Run("error - empty subject", func(t *testing.T) {
		_, err := webhook.NewHandler(webhook.ChargeNormalizer, "")
		require.Error(t, err)
	})

	assert.Equal(t, []string{webhook.ChargeNormalizer}, webhook.Normalizers())
}

func TestChargeHandler_Normalize(t *testing.T) {
	h := webhook.NewChargeHandler(webhook.PaymentSucceededSubject)

	t.Run("success - receipt url kept", func(t *testing.T) {
		msg, err := h.Normalize([]byte(`{"id":"ch_1","metadata":{"orderId":"ord_9"},"receipt_url":"https://r/1"}`))
		require.NoError(t, err)
		assert.Equal(t, "ch_1", msg.PaymentReference)
		assert.Equal(t, "ord_9", msg.OrderID)
		require.NotNil(t, msg.ReceiptURL)
		assert.Equal(t, "https://r/1", *msg.ReceiptURL)
	})

	t.Run("success - absent receipt url serializes as null", func(t *testing.T) {
		msg, err := h.Normalize([]byte(`{"id":"ch_1","metadata":{"orderId":"ord_9"}}`))
		require.NoError(t, err)

		env, err := webhook.NewEnvelope("env-1", h.Subject(), msg)
		require.NoError(t, err)
		assert.JSONEq(t, `{"stripePaymentId":"ch_1","orderId":"ord_9","receiptUrl":null}`, string(env.Payload))
	})

	t.Run("error - missing order id", func(t *testing.T) {
		_, err := h.Normalize([]byte(`{"id":"ch_1","metadata":{}}`))
		require.ErrorIs(t, err, payload.ErrMissingField)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "handled", webhook.Handled.String())
	assert.Equal(t, "ignored", webhook.Ignored.String())
	assert.NoError(t, webhook.Ignored.Validate())
	assert.Error(t, webhook.Outcome(99).Validate())

	assert.True(t, webhook.DispatchFailed.IsOperationalError())
	assert.True(t, webhook.NormalizeFailed.IsOperationalError())
	assert.False(t, webhook.IgnoredEvent.IsOperationalError())
	assert.True(t, webhook.RejectedSignature.IsRejected())
	assert.False(t, webhook.Dispatched.IsRejected())
}

func TestStatus(t *testing.T) {
	assert.Equal(t, webhook.Published, webhook.NewStatus("published"))
	assert.Equal(t, webhook.Failed, webhook.NewStatus("failed"))
	assert.Equal(t, webhook.Pending, webhook.NewStatus("bogus"))
	assert.Equal(t, "failed", webhook.Failed.String())
	assert.Equal(t, "pending", webhook.Pending.String())
	assert.True(t, webhook.Published.IsFinal())
	assert.True(t, webhook.Failed.IsFinal())
	assert.False(t, webhook.Pending.IsFinal())
	assert.NoError(t, webhook.Failed.Validate())
	assert.Error(t, webhook.Status(0).Validate())
}
