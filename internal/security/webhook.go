package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrWebhookSignature is returned when no candidate signature matches the payload.
	ErrWebhookSignature = errors.New("webhook signature verification failed")
	// ErrWebhookTimestamp is returned when the delivery timestamp is missing,
	// malformed, or outside the accepted tolerance window.
	ErrWebhookTimestamp = errors.New("webhook timestamp outside tolerance")
)

// defaultWebhookTolerance bounds how old (or how far in the future) a signed
// delivery timestamp may be before it is rejected as a possible replay.
const defaultWebhookTolerance = 5 * time.Minute

// WebhookVerifier verifies Svix-style webhook signatures as sent by Clerk:
// HMAC-SHA256 over "{msg_id}.{timestamp}.{payload}" with a whsec_-prefixed
// base64 secret, delivered in the svix-signature header as space-separated
// "v1,<base64>" entries.
type WebhookVerifier struct {
	key       []byte
	tolerance time.Duration
}

// NewWebhookVerifier parses a whsec_... signing secret and returns a verifier.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if raw == "" {
		return nil, errors.New("webhook secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("webhook secret is not valid base64: %w", err)
	}
	return &WebhookVerifier{key: key, tolerance: defaultWebhookTolerance}, nil
}

// Verify checks the delivery's timestamp freshness and signature.
// msgID, timestamp, and signatureHeader are the svix-id, svix-timestamp, and
// svix-signature header values; payload is the raw request body.
func (v *WebhookVerifier) Verify(msgID, timestamp string, payload []byte, signatureHeader string) error {
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return ErrWebhookTimestamp
	}
	age := time.Since(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrWebhookTimestamp
	}

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, part := range strings.Fields(signatureHeader) {
		version, sig, ok := strings.Cut(part, ",")
		if !ok || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrWebhookSignature
}
