package services

import (
	"testing"

	"github.com/modashopapp/modashop/internal/models"
)

func TestFormatARS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cents int
		want  string
	}{
		{cents: 0, want: "$ 0,00"},
		{cents: 950, want: "$ 9,50"},
		{cents: 150000, want: "$ 1.500,00"},
		{cents: 123456789, want: "$ 1.234.567,89"},
		{cents: -50000, want: "-$ 500,00"},
	}

	for _, tc := range tests {
		if got := FormatARS(tc.cents); got != tc.want {
			t.Fatalf("FormatARS(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	t.Parallel()

	address := &models.Address{
		Street:     "Av. Corrientes",
		Number:     "1234",
		Apartment:  "3B",
		City:       "Buenos Aires",
		Province:   "CABA",
		PostalCode: "C1043",
		Country:    "Argentina",
	}

	want := "Av. Corrientes 1234, 3B\nBuenos Aires\nCABA\nCP C1043\nArgentina"
	if got := FormatAddress(address); got != want {
		t.Fatalf("FormatAddress() = %q, want %q", got, want)
	}

	if got := FormatAddress(nil); got != "" {
		t.Fatalf("FormatAddress(nil) = %q, want empty", got)
	}
}
