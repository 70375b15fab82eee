package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func signTestPayload(t *testing.T, msgID, timestamp string, payload []byte) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString("MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw")
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifier_Valid(t *testing.T) {
	v, err := NewWebhookVerifier(testWebhookSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	payload := []byte(`{"type":"user.created"}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := signTestPayload(t, "msg_1", ts, payload)

	if err := v.Verify("msg_1", ts, payload, sig); err != nil {
		t.Errorf("Verify: %v", err)
	}
	// Multiple space-separated signatures: one valid match suffices.
	if err := v.Verify("msg_1", ts, payload, "v1,Zm9vYmFy "+sig); err != nil {
		t.Errorf("Verify with extra candidate: %v", err)
	}
}

func TestWebhookVerifier_BadSignature(t *testing.T) {
	v, err := NewWebhookVerifier(testWebhookSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	payload := []byte(`{"type":"user.created"}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := signTestPayload(t, "msg_1", ts, payload)

	if err := v.Verify("msg_1", ts, []byte(`{"type":"user.deleted"}`), sig); err != ErrWebhookSignature {
		t.Errorf("altered payload: want ErrWebhookSignature, got %v", err)
	}
	if err := v.Verify("msg_2", ts, payload, sig); err != ErrWebhookSignature {
		t.Errorf("altered msg id: want ErrWebhookSignature, got %v", err)
	}
	if err := v.Verify("msg_1", ts, payload, "v1,not-base64!!"); err != ErrWebhookSignature {
		t.Errorf("garbage signature: want ErrWebhookSignature, got %v", err)
	}
}

func TestWebhookVerifier_StaleTimestamp(t *testing.T) {
	v, err := NewWebhookVerifier(testWebhookSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	payload := []byte(`{}`)
	old := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())
	sig := signTestPayload(t, "msg_1", old, payload)
	if err := v.Verify("msg_1", old, payload, sig); err != ErrWebhookTimestamp {
		t.Errorf("stale timestamp: want ErrWebhookTimestamp, got %v", err)
	}
	if err := v.Verify("msg_1", "not-a-number", payload, sig); err != ErrWebhookTimestamp {
		t.Errorf("bad timestamp: want ErrWebhookTimestamp, got %v", err)
	}
}

func TestNewWebhookVerifier_BadSecret(t *testing.T) {
	if _, err := NewWebhookVerifier(""); err == nil {
		t.Error("empty secret should fail")
	}
	if _, err := NewWebhookVerifier("whsec_???"); err == nil {
		t.Error("non-base64 secret should fail")
	}
}
