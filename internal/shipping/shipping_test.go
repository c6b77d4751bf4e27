package shipping

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type stubCarrier struct {
	name string
}

func (s stubCarrier) Name() string { return s.name }

func (s stubCarrier) CreateShipment(context.Context, Request) (*Result, error) {
	return &Result{TrackingNumber: "stub", Provider: s.name}, nil
}

func TestRegistrySelect(t *testing.T) {
	t.Parallel()

	andreani := stubCarrier{name: "Andreani"}
	oca := stubCarrier{name: "OCA"}
	correo := stubCarrier{name: "Correo Argentino"}
	registry := NewRegistry(andreani, oca, correo)

	tests := []struct {
		name   string
		method string
		want   string
	}{
		{name: "matches full carrier name", method: "Envío estándar - Andreani", want: "Andreani"},
		{name: "matches regardless of case", method: "oca express a domicilio", want: "OCA"},
		{name: "matches multi word name", method: "Correo Argentino Clásico", want: "Correo Argentino"},
		{name: "matches first token of name", method: "retiro en sucursal correo", want: "Correo Argentino"},
		{name: "falls back to first carrier", method: "Envío estándar", want: "Andreani"},
		{name: "empty method falls back", method: "", want: "Andreani"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			carrier := registry.Select(test.method)
			if carrier == nil {
				t.Fatal("Select() = nil, want carrier")
			}
			if carrier.Name() != test.want {
				t.Fatalf("Select(%q) = %q, want %q", test.method, carrier.Name(), test.want)
			}
		})
	}
}

func TestRegistryEmpty(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if !registry.Empty() {
		t.Fatal("Empty() = false for registry without carriers")
	}
	if carrier := registry.Select("andreani"); carrier != nil {
		t.Fatalf("Select() = %v, want nil", carrier)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "carriers.yaml")
	contents := `default_item_weight_kg: 0.5
carriers:
  - name: andreani
    base_url: https://apis.andreani.com
    api_key: test-key
    service: "300006611"
  - name: oca
    base_url: https://api.oca.com.ar
    api_key: oca-key
    service: "64665"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got := cfg.ItemWeightKg(); got != 0.5 {
		t.Fatalf("ItemWeightKg() = %v, want 0.5", got)
	}
	if len(cfg.Carriers) != 2 {
		t.Fatalf("got %d carriers, want 2", len(cfg.Carriers))
	}
	if cfg.Carriers[0].Name != "andreani" {
		t.Fatalf("first carrier = %q, want andreani", cfg.Carriers[0].Name)
	}
}

func TestLoadConfigRejectsUnknownCarrier(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "carriers.yaml")
	contents := `carriers:
  - name: dhl
    base_url: https://api.dhl.com
    api_key: key
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() = nil error for unknown carrier name")
	}
}

func TestItemWeightKgDefault(t *testing.T) {
	t.Parallel()

	var cfg *Config
	if got := cfg.ItemWeightKg(); got != defaultItemWeightKg {
		t.Fatalf("ItemWeightKg() = %v, want %v", got, defaultItemWeightKg)
	}
	if got := (&Config{}).ItemWeightKg(); got != defaultItemWeightKg {
		t.Fatalf("ItemWeightKg() = %v, want %v", got, defaultItemWeightKg)
	}
}

func TestBuildTrackingURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		carrier string
		number  string
		want    string
	}{
		{
			name:    "andreani",
			carrier: "Andreani",
			number:  "360000012345678",
			want:    "https://www.andreani.com/#!/informacionEnvio/360000012345678",
		},
		{
			name:    "oca",
			carrier: "oca",
			number:  "3287100000012345",
			want:    "https://www.oca.com.ar/envios/seguimiento?numero=3287100000012345",
		},
		{
			name:    "correo argentino",
			carrier: "Correo Argentino",
			number:  "PA123456789AR",
			want:    "https://www.correoargentino.com.ar/formularios/ondnc?id=PA123456789AR",
		},
		{name: "unknown carrier", carrier: "DHL", number: "123", want: ""},
		{name: "empty number", carrier: "Andreani", number: "  ", want: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := BuildTrackingURL(test.carrier, test.number); got != test.want {
				t.Fatalf("BuildTrackingURL(%q, %q) = %q, want %q", test.carrier, test.number, got, test.want)
			}
		})
	}
}

func TestNormalizeCarrierName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "andreani", want: "Andreani"},
		{in: "OCA ePak", want: "OCA"},
		{in: "correo argentino", want: "Correo Argentino"},
		{in: "paq.ar", want: "Correo Argentino"},
		{in: "Custom Courier", want: "Custom Courier"},
		{in: "  ", want: ""},
	}

	for _, test := range tests {
		if got := NormalizeCarrierName(test.in); got != test.want {
			t.Fatalf("NormalizeCarrierName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
