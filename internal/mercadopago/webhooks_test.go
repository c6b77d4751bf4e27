package mercadopago

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http/httptest"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestReadWebhookEvent_ValidSignature(t *testing.T) {
	t.Parallel()

	secret := "whsec_test"
	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)

	req := httptest.NewRequest("POST", "/webhooks/mercadopago", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body, secret))

	event, err := ReadWebhookEvent(req, secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != EventTypePayment {
		t.Fatalf("event type = %q, want %q", event.Type, EventTypePayment)
	}
	if event.Data.ID != "12345" {
		t.Fatalf("event data id = %q, want %q", event.Data.ID, "12345")
	}
}

func TestReadWebhookEvent_NumericEventID(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"payment","data":{"id":98765}}`)

	req := httptest.NewRequest("POST", "/webhooks/mercadopago", bytes.NewReader(body))

	event, err := ReadWebhookEvent(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Data.ID != "98765" {
		t.Fatalf("event data id = %q, want %q", event.Data.ID, "98765")
	}
}

func TestReadWebhookEvent_TamperedBody(t *testing.T) {
	t.Parallel()

	secret := "whsec_test"
	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	tampered := []byte(`{"type":"payment","data":{"id":"99999"}}`)

	req := httptest.NewRequest("POST", "/webhooks/mercadopago", bytes.NewReader(tampered))
	req.Header.Set("X-Signature", signBody(body, secret))

	_, err := ReadWebhookEvent(req, secret)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestReadWebhookEvent_MissingSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	req := httptest.NewRequest("POST", "/webhooks/mercadopago", bytes.NewReader(body))

	_, err := ReadWebhookEvent(req, "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestReadWebhookEvent_NoSecretSkipsValidation(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	req := httptest.NewRequest("POST", "/webhooks/mercadopago", bytes.NewReader(body))

	event, err := ReadWebhookEvent(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Data.ID != "12345" {
		t.Fatalf("event data id = %q, want %q", event.Data.ID, "12345")
	}
}
