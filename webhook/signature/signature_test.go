package signature

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_4eC39HqLyjWDarjtT1zdp7dc"

var (
	testTime    = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	testPayload = []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_1","metadata":{"orderId":"ord_9"},"receipt_url":"https://r/1"}}}`)
)

func TestParseHeader(t *testing.T) {
	t.Run("success - single signature", func(t *testing.T) {
		h, err := ParseHeader("t=1704110400,v1=abcdef")
		require.NoError(t, err)
		assert.Equal(t, int64(1704110400), h.Timestamp.Unix())
		assert.Equal(t, []string{"abcdef"}, h.Signatures)
	})

	t.Run("success - rotated secrets present several candidates", func(t *testing.T) {
		h, err := ParseHeader("t=1704110400, v1=aaaa, v1=bbbb")
		require.NoError(t, err)
		assert.Equal(t, []string{"aaaa", "bbbb"}, h.Signatures)
	})

	t.Run("success - unknown schemes are skipped", func(t *testing.T) {
		h, err := ParseHeader("t=1704110400,v0=legacy,v1=abcd")
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd"}, h.Signatures)
	})

	t.Run("error - empty header", func(t *testing.T) {
		_, err := ParseHeader("  ")
		require.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("error - missing timestamp", func(t *testing.T) {
		_, err := ParseHeader("v1=abcd")
		require.ErrorIs(t, err, ErrMissingHeader)
		assert.Contains(t, err.Error(), "timestamp is missing")
	})

	t.Run("error - malformed timestamp", func(t *testing.T) {
		_, err := ParseHeader("t=yesterday,v1=abcd")
		require.ErrorIs(t, err, ErrMissingHeader)
		assert.Contains(t, err.Error(), "invalid timestamp")
	})

	t.Run("error - no v1 signature", func(t *testing.T) {
		_, err := ParseHeader("t=1704110400,v0=abcd")
		require.ErrorIs(t, err, ErrMissingHeader)
	})
}

func TestSign(t *testing.T) {
	secret := NewSecret(testSecret)

	t.Run("success - header round trips through ParseHeader", func(t *testing.T) {
		header, err := Sign(secret, testTime, testPayload)
		require.NoError(t, err)

		h, err := ParseHeader(header)
		require.NoError(t, err)
		assert.Equal(t, testTime.Unix(), h.Timestamp.Unix())
		require.Len(t, h.Signatures, 1)
		assert.Equal(t, hex.EncodeToString(ComputeSignature(secret, testTime, testPayload)), h.Signatures[0])
	})

	t.Run("success - deterministic", func(t *testing.T) {
		h1, err1 := Sign(secret, testTime, testPayload)
		h2, err2 := Sign(secret, testTime, testPayload)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, h1, h2)
	})

	t.Run("error - empty secret", func(t *testing.T) {
		_, err := Sign(NewSecret(""), testTime, testPayload)
		require.Error(t, err)
	})
}

func TestVerify(t *testing.T) {
	secret := NewSecret(testSecret)
	tolerance := 5 * time.Minute

	header, err := Sign(secret, testTime, testPayload)
	require.NoError(t, err)

	t.Run("success - valid signature", func(t *testing.T) {
		err := Verify(testPayload, header, secret, tolerance, testTime.Add(30*time.Second))
		require.NoError(t, err)
	})

	t.Run("success - any rotated candidate may match", func(t *testing.T) {
		old := NewSecret("whsec_previous_secret")
		oldSig := hex.EncodeToString(ComputeSignature(old, testTime, testPayload))
		newSig := hex.EncodeToString(ComputeSignature(secret, testTime, testPayload))
		rotated := fmt.Sprintf("t=%d,v1=%s,v1=%s", testTime.Unix(), oldSig, newSig)

		require.NoError(t, Verify(testPayload, rotated, secret, tolerance, testTime))
		require.NoError(t, Verify(testPayload, rotated, old, tolerance, testTime))
	})

	t.Run("failure - wrong secret", func(t *testing.T) {
		err := Verify(testPayload, header, NewSecret("whsec_someone_else"), tolerance, testTime)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("failure - empty secret fails closed", func(t *testing.T) {
		err := Verify(testPayload, header, NewSecret(""), tolerance, testTime)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("failure - stale timestamp even with a matching digest", func(t *testing.T) {
		err := Verify(testPayload, header, secret, tolerance, testTime.Add(tolerance+time.Second))
		require.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("failure - timestamp too far in the future", func(t *testing.T) {
		err := Verify(testPayload, header, secret, tolerance, testTime.Add(-tolerance-time.Second))
		require.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("success - exactly at the tolerance edge", func(t *testing.T) {
		err := Verify(testPayload, header, secret, tolerance, testTime.Add(tolerance))
		require.NoError(t, err)
	})

	t.Run("success - zero tolerance falls back to default", func(t *testing.T) {
		err := Verify(testPayload, header, secret, 0, testTime.Add(DefaultTolerance-time.Second))
		require.NoError(t, err)
	})

	t.Run("failure - missing header", func(t *testing.T) {
		err := Verify(testPayload, "", secret, tolerance, testTime)
		require.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("failure - errors never leak secret or signature", func(t *testing.T) {
		err := Verify([]byte(`{"tampered":true}`), header, secret, tolerance, testTime)
		require.Error(t, err)
		h, _ := ParseHeader(header)
		assert.NotContains(t, err.Error(), testSecret)
		assert.NotContains(t, err.Error(), h.Signatures[0])
	})
}

func TestVerify_SingleBitMutations(t *testing.T) {
	secret := NewSecret(testSecret)
	header, err := Sign(secret, testTime, testPayload)
	require.NoError(t, err)

	t.Run("any bit flip in the body is rejected", func(t *testing.T) {
		for i := range testPayload {
			for bit := 0; bit < 8; bit++ {
				mutated := append([]byte(nil), testPayload...)
				mutated[i] ^= 1 << bit

				err := Verify(mutated, header, secret, time.Minute, testTime)
				require.ErrorIs(t, err, ErrBadSignature, "byte %d bit %d", i, bit)
			}
		}
	})

	t.Run("any bit flip in the digest is rejected", func(t *testing.T) {
		start := strings.Index(header, SignatureScheme+"=") + len(SignatureScheme) + 1
		for i := start; i < len(header); i++ {
			for bit := 0; bit < 7; bit++ {
				mutated := []byte(header)
				mutated[i] ^= 1 << bit
				if strings.ContainsAny(string(mutated[i]), ", =") {
					// separators change the header structure, not the digest
					continue
				}

				err := Verify(testPayload, string(mutated), secret, time.Minute, testTime)
				require.ErrorIs(t, err, ErrBadSignature, "byte %d bit %d", i, bit)
			}
		}
	})

	t.Run("any bit flip in the header fails verification", func(t *testing.T) {
		for i := range header {
			for bit := 0; bit < 8; bit++ {
				mutated := []byte(header)
				mutated[i] ^= 1 << bit

				err := Verify(testPayload, string(mutated), secret, time.Minute, testTime)
				require.Error(t, err, "byte %d bit %d", i, bit)
			}
		}
	})
}

func TestVerify_ProcessorLibraryCompatibility(t *testing.T) {
	secret := NewSecret(testSecret)

	t.Run("accepts headers produced by the processor library", func(t *testing.T) {
		signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
			Payload:   testPayload,
			Secret:    testSecret,
			Timestamp: testTime,
		})

		err := Verify(testPayload, signed.Header, secret, time.Minute, testTime)
		require.NoError(t, err)
	})

	t.Run("digest matches the processor library", func(t *testing.T) {
		ours := ComputeSignature(secret, testTime, testPayload)
		theirs := stripewebhook.ComputeSignature(testTime, testPayload, testSecret)
		assert.Equal(t, theirs, ours)
	})

	t.Run("processor library accepts our headers", func(t *testing.T) {
		now := time.Now()
		header, err := Sign(secret, now, testPayload)
		require.NoError(t, err)

		err = stripewebhook.ValidatePayloadWithTolerance(testPayload, header, testSecret, time.Minute)
		require.NoError(t, err)
	})
}

func TestVerifier(t *testing.T) {
	v := NewVerifier(NewSecret(testSecret), time.Minute)
	header, err := Sign(v.Secret, testTime, testPayload)
	require.NoError(t, err)

	require.NoError(t, v.Verify(testPayload, header, testTime))
	require.ErrorIs(t, v.Verify(testPayload, header, testTime.Add(2*time.Minute)), ErrStaleTimestamp)
}

func TestSecret_String(t *testing.T) {
	assert.Equal(t, "<redacted>", NewSecret(testSecret).String())
	assert.Equal(t, "<empty>", NewSecret("  ").String())
	assert.True(t, NewSecret("").IsZero())
}
