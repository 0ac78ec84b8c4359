package bindings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marcelsud/payment-webhooks/bindings"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBindings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Run("success - valid bindings file", func(t *testing.T) {
		path := writeBindings(t, `
bindings:
  - event_type: "charge.succeeded"
    subject: "payment.succeeded"
    normalizer: "charge"
  - event_type: "charge.captured"
    subject: "payment.captured"
`)

		loader := bindings.NewLoader()
		require.NoError(t, loader.Load(path))

		all := loader.List()
		require.Len(t, all, 2)
		assert.Equal(t, "charge.captured", all[0].EventType)

		b, err := loader.Get("charge.captured")
		require.NoError(t, err)
		assert.Equal(t, "payment.captured", b.Subject)
		assert.Equal(t, webhook.ChargeNormalizer, b.Normalizer)

		assert.True(t, loader.Exists("charge.succeeded"))
		assert.False(t, loader.Exists("charge.refunded"))
		assert.Equal(t, []string{"payment.captured", "payment.succeeded"}, loader.Subjects())
	})

	t.Run("error - file not found", func(t *testing.T) {
		err := bindings.NewLoader().Load("/nonexistent/bindings.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading bindings file")
	})

	t.Run("error - invalid YAML", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, "bindings: [\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing bindings YAML")
	})

	t.Run("error - empty file", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, "bindings: []\n"))
		require.Error(t, err)
	})

	t.Run("error - invalid event type", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, `
bindings:
  - event_type: "charge.*"
    subject: "payment.succeeded"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid event_type")
	})

	t.Run("error - missing subject", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, `
bindings:
  - event_type: "charge.succeeded"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subject cannot be empty")
	})

	t.Run("error - unknown normalizer", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, `
bindings:
  - event_type: "invoice.paid"
    subject: "invoice.paid"
    normalizer: "invoice"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown normalizer")
	})

	t.Run("error - duplicate event type", func(t *testing.T) {
		err := bindings.NewLoader().Load(writeBindings(t, `
bindings:
  - event_type: "charge.succeeded"
    subject: "a"
  - event_type: "charge.succeeded"
    subject: "b"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bound twice")
	})

	t.Run("error - get unknown event type", func(t *testing.T) {
		_, err := bindings.NewLoader().Get("charge.succeeded")
		require.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("success - defaults without a file", func(t *testing.T) {
		loader, err := bindings.LoadOrDefault("")
		require.NoError(t, err)

		b, err := loader.Get(payload.ChargeSucceeded)
		require.NoError(t, err)
		assert.Equal(t, webhook.PaymentSucceededSubject, b.Subject)
	})

	t.Run("error - broken file", func(t *testing.T) {
		_, err := bindings.LoadOrDefault("/nonexistent/bindings.yaml")
		require.Error(t, err)
	})
}

func TestNewRouter(t *testing.T) {
	t.Run("success - bound types are handled, others ignored", func(t *testing.T) {
		router, err := bindings.NewRouter([]*bindings.Binding{
			{EventType: "charge.captured", Subject: "payment.captured", Normalizer: webhook.ChargeNormalizer},
		})
		require.NoError(t, err)

		h, outcome := router.Route(payload.Event{Type: "charge.captured"})
		require.Equal(t, webhook.Handled, outcome)
		assert.Equal(t, "payment.captured", h.Subject())

		_, outcome = router.Route(payload.Event{Type: payload.ChargeSucceeded})
		assert.Equal(t, webhook.Ignored, outcome)
	})

	t.Run("success - defaults match the default router", func(t *testing.T) {
		router, err := bindings.NewRouter(bindings.Defaults())
		require.NoError(t, err)
		assert.Equal(t, webhook.DefaultRouter().EventTypes(), router.EventTypes())
	})

	t.Run("error - invalid binding", func(t *testing.T) {
		_, err := bindings.NewRouter([]*bindings.Binding{{EventType: "charge.succeeded", Normalizer: "nope", Subject: "x"}})
		require.Error(t, err)
	})
}
