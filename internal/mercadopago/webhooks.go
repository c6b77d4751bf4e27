// Package mercadopago provides the payment gateway client and webhook validation.
package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrInvalidSignature is returned when the X-Signature header is missing or
// does not match the request body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventTypePayment is the only event type the fulfillment pipeline acts on.
const EventTypePayment = "payment"

// Event is the webhook envelope delivered by the gateway.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	ID string `json:"id"`
}

// The gateway delivers data.id as a JSON number on some topics and a string
// on others.
func (d *EventData) UnmarshalJSON(raw []byte) error {
	var fields struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	d.ID = fields.ID.String()
	return nil
}

// ValidateSignature checks an HMAC-SHA256 hex signature over the raw body.
func ValidateSignature(payload []byte, signature, secret string) error {
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	return nil
}

// ReadWebhookEvent reads and parses the webhook envelope. When a secret is
// configured the X-Signature header is verified before the body is parsed;
// with no secret the event is accepted as-is (degraded mode, the caller logs
// a warning at startup).
func ReadWebhookEvent(r *http.Request, secret string) (*Event, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if secret != "" {
		if err := ValidateSignature(payload, r.Header.Get("X-Signature"), secret); err != nil {
			return nil, err
		}
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook envelope: %w", err)
	}

	return &event, nil
}
