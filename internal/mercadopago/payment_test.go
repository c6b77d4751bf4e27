package mercadopago

import (
	"encoding/json"
	"testing"
)

func TestPaymentDecodeLenient(t *testing.T) {
	t.Parallel()

	// quantity and unit_price arrive as strings on some payment methods
	payload := []byte(`{
		"id": 109876543,
		"status": "approved",
		"external_reference": "6b9f6f1e-65a5-4f2e-9e3e-0d8a8f4a1a11",
		"transaction_amount": 18500.5,
		"additional_info": {
			"items": [
				{"id": "remera-basica", "title": "Remera Basica", "description": "Talle: M", "quantity": "2", "unit_price": "4500.25"},
				{"id": "buzo-oversize", "title": "Buzo Oversize", "description": "Color negro", "quantity": 1, "unit_price": 9500}
			]
		}
	}`)

	var payment Payment
	if err := json.Unmarshal(payload, &payment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.PaymentID() != "109876543" {
		t.Fatalf("payment id = %q, want %q", payment.PaymentID(), "109876543")
	}
	if payment.Status != PaymentStatusApproved {
		t.Fatalf("status = %q, want %q", payment.Status, PaymentStatusApproved)
	}
	if len(payment.AdditionalInfo.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(payment.AdditionalInfo.Items))
	}

	first := payment.AdditionalInfo.Items[0]
	if int(first.Quantity) != 2 {
		t.Fatalf("quantity = %d, want 2", int(first.Quantity))
	}
	if float64(first.UnitPrice) != 4500.25 {
		t.Fatalf("unit price = %v, want 4500.25", float64(first.UnitPrice))
	}

	second := payment.AdditionalInfo.Items[1]
	if int(second.Quantity) != 1 {
		t.Fatalf("quantity = %d, want 1", int(second.Quantity))
	}
}

func TestPaymentItemSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "size in description",
			description: "Talle: M",
			want:        "M",
		},
		{
			name:        "size with surrounding text",
			description: "Remera de algodon, Talle: XL, color blanco",
			want:        "XL",
		},
		{
			name:        "lowercase label",
			description: "talle: s",
			want:        "S",
		},
		{
			name:        "no size",
			description: "Gorra ajustable",
			want:        "",
		},
		{
			name:        "empty description",
			description: "",
			want:        "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			item := PaymentItem{Description: tc.description}
			if got := item.Size(); got != tc.want {
				t.Fatalf("Size() = %q, want %q", got, tc.want)
			}
		})
	}
}
