package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderName is the request header carrying the processor signature
	HeaderName = "Stripe-Signature"

	// SignatureScheme is the only scheme accepted when comparing digests
	SignatureScheme = "v1"

	// TimestampKey is the header key holding the signing unix timestamp
	TimestampKey = "t"

	// DefaultTolerance is the replay window used when none is configured
	DefaultTolerance = 5 * time.Minute
)

/* Verification errors
 * Callers branch on them with errors.Is; the wrapped detail never
 * contains the secret nor the signature values
 */
var (
	ErrMissingHeader  = errors.New("signature header missing or malformed")
	ErrStaleTimestamp = errors.New("signature timestamp outside tolerance")
	ErrBadSignature   = errors.New("signature mismatch")
)

// Secret represents the endpoint signing secret shared with the processor
type Secret struct {
	raw []byte
}

// NewSecret wraps the configured signing secret
func NewSecret(s string) Secret {
	return Secret{raw: []byte(strings.TrimSpace(s))}
}

// IsZero reports whether no secret was configured
func (s Secret) IsZero() bool {
	return len(s.raw) == 0
}

// String never exposes the secret
func (s Secret) String() string {
	if s.IsZero() {
		return "<empty>"
	}
	return "<redacted>"
}

// Header is the parsed form of the signature header: t=<unix>,v1=<hex>[,v1=<hex>...]
type Header struct {
	Timestamp  time.Time
	Signatures []string
}

// ParseHeader parses a signature header value
// Unknown schemes (v0, ...) are skipped, several v1 entries are kept for secret rotation
func ParseHeader(header string) (Header, error) {
	if strings.TrimSpace(header) == "" {
		return Header{}, fmt.Errorf("%w: header is empty", ErrMissingHeader)
	}

	var h Header
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case TimestampKey:
			unix, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || unix <= 0 {
				return Header{}, fmt.Errorf("%w: invalid timestamp", ErrMissingHeader)
			}
			h.Timestamp = time.Unix(unix, 0)
		case SignatureScheme:
			if value = strings.TrimSpace(value); value != "" {
				h.Signatures = append(h.Signatures, value)
			}
		}
	}

	if h.Timestamp.IsZero() {
		return Header{}, fmt.Errorf("%w: timestamp is missing", ErrMissingHeader)
	}
	if len(h.Signatures) == 0 {
		return Header{}, fmt.Errorf("%w: no %s signature", ErrMissingHeader, SignatureScheme)
	}

	return h, nil
}

// ComputeSignature returns the HMAC-SHA256 of "{timestamp}.{payload}" keyed by the secret
func ComputeSignature(secret Secret, timestamp time.Time, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret.raw)
	mac.Write([]byte(strconv.FormatInt(timestamp.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// Sign builds a header value for the payload signed at the given time
func Sign(secret Secret, timestamp time.Time, payload []byte) (string, error) {
	if secret.IsZero() {
		return "", fmt.Errorf("signing secret is empty")
	}
	sig := ComputeSignature(secret, timestamp, payload)
	return fmt.Sprintf("%s=%d,%s=%s", TimestampKey, timestamp.Unix(), SignatureScheme, hex.EncodeToString(sig)), nil
}

// Verify checks that payload was signed by the holder of secret within tolerance of now
// It fails closed: an empty secret rejects every payload
func Verify(payload []byte, header string, secret Secret, tolerance time.Duration, now time.Time) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	h, err := ParseHeader(header)
	if err != nil {
		return err
	}

	if secret.IsZero() {
		return fmt.Errorf("%w: signing secret not configured", ErrBadSignature)
	}

	skew := now.Sub(h.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > tolerance {
		return fmt.Errorf("%w: skew %s exceeds %s", ErrStaleTimestamp, skew.Truncate(time.Second), tolerance)
	}

	expected := []byte(hex.EncodeToString(ComputeSignature(secret, h.Timestamp, payload)))
	for _, candidate := range h.Signatures {
		// constant-time comparison
		if hmac.Equal(expected, []byte(candidate)) {
			return nil
		}
	}

	return fmt.Errorf("%w: none of %d candidates matched", ErrBadSignature, len(h.Signatures))
}

// Verifier binds a secret and a tolerance so handlers only pass request data
type Verifier struct {
	Secret    Secret
	Tolerance time.Duration
}

// NewVerifier creates a verifier for the given secret and replay window
func NewVerifier(secret Secret, tolerance time.Duration) *Verifier {
	return &Verifier{
		Secret:    secret,
		Tolerance: tolerance,
	}
}

// Verify checks payload against the header relative to the time the request was received
func (v *Verifier) Verify(payload []byte, header string, receivedAt time.Time) error {
	return Verify(payload, header, v.Secret, v.Tolerance, receivedAt)
}
