package models

import "testing"

func TestValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "pending to paid", from: StatusPending, to: StatusPaid, want: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, want: true},
		{name: "paid to shipped", from: StatusPaid, to: StatusShipped, want: true},
		{name: "paid to cancelled", from: StatusPaid, to: StatusCancelled, want: true},
		{name: "shipped to delivered", from: StatusShipped, to: StatusDelivered, want: true},
		{name: "shipped to cancelled", from: StatusShipped, to: StatusCancelled, want: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPaid, want: false},
		{name: "delivered is terminal", from: StatusDelivered, to: StatusShipped, want: false},
		{name: "no skipping paid", from: StatusPending, to: StatusShipped, want: false},
		{name: "no backwards", from: StatusShipped, to: StatusPaid, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ValidTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestRequiresShipment(t *testing.T) {
	t.Parallel()

	address := &Address{PostalCode: "C1043"}

	tests := []struct {
		name  string
		order *Order
		want  bool
	}{
		{
			name:  "standard shipping with address",
			order: &Order{ShippingType: ShippingStandard, ShippingCents: 50000, ShippingAddress: address},
			want:  true,
		},
		{
			name:  "pickup never ships",
			order: &Order{ShippingType: ShippingPickup, ShippingCents: 50000, ShippingAddress: address},
			want:  false,
		},
		{
			name:  "free shipping line means nothing to dispatch",
			order: &Order{ShippingType: ShippingStandard, ShippingCents: 0, ShippingAddress: address},
			want:  false,
		},
		{
			name:  "missing postal code",
			order: &Order{ShippingType: ShippingExpress, ShippingCents: 50000, ShippingAddress: &Address{}},
			want:  false,
		},
		{
			name:  "missing address",
			order: &Order{ShippingType: ShippingExpress, ShippingCents: 50000},
			want:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.order.RequiresShipment(); got != tc.want {
				t.Fatalf("RequiresShipment() = %v, want %v", got, tc.want)
			}
		})
	}
}
