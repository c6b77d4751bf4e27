package mercadopago

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Payment statuses delivered by the gateway.
const (
	PaymentStatusApproved  = "approved"
	PaymentStatusPending   = "pending"
	PaymentStatusInProcess = "in_process"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
)

// Payment is the authoritative payment record fetched from the gateway.
// Fields the gateway may omit are decoded leniently and default to zero
// values rather than failing the whole record.
type Payment struct {
	ID                json.Number    `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	PreferenceID      string         `json:"preference_id"`
	ExternalReference string         `json:"external_reference"`
	TransactionAmount float64        `json:"transaction_amount"`
	DateApproved      *time.Time     `json:"date_approved"`
	AdditionalInfo    AdditionalInfo `json:"additional_info"`
}

type AdditionalInfo struct {
	Items []PaymentItem `json:"items"`
}

// PaymentItem is a checkout line item as the gateway reports it. Quantity
// and unit price arrive as strings on some payment methods and numbers on
// others.
type PaymentItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Quantity    FlexibleInt   `json:"quantity"`
	UnitPrice   FlexibleFloat `json:"unit_price"`
}

var sizePattern = regexp.MustCompile(`(?i)talle:\s*([^\s,;]+)`)

// Size extracts the garment size encoded in the item description as
// "Talle: <size>". Returns "" when no size is present.
func (i PaymentItem) Size() string {
	matches := sizePattern.FindStringSubmatch(i.Description)
	if len(matches) < 2 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(matches[1]))
}

// IsTerminalStatus reports whether a payment status is final. The gateway
// re-notifies the same payment id on every status change, so only terminal
// statuses are safe to treat as fully settled.
func IsTerminalStatus(status string) bool {
	switch status {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentID returns the payment id as a string, matching the webhook
// envelope's data.id representation.
func (p *Payment) PaymentID() string {
	if p == nil {
		return ""
	}
	return p.ID.String()
}

// FlexibleInt decodes a JSON number or a numeric string; anything else
// decodes to zero.
type FlexibleInt int

func (f *FlexibleInt) UnmarshalJSON(raw []byte) error {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		*f = 0
		return nil
	}
	parsed, err := number.Float64()
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexibleInt(int(parsed))
	return nil
}

// FlexibleFloat decodes a JSON number or a numeric string; anything else
// decodes to zero.
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(raw []byte) error {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		*f = 0
		return nil
	}
	parsed, err := number.Float64()
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexibleFloat(parsed)
	return nil
}
