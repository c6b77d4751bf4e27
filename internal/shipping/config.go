package shipping

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultItemWeightKg = 0.35

// Config is the carriers file loaded from SHIPPING_CONFIG_PATH.
type Config struct {
	DefaultItemWeightKg float64         `yaml:"default_item_weight_kg"`
	Carriers            []CarrierConfig `yaml:"carriers" validate:"dive"`
}

type CarrierConfig struct {
	Name    string `yaml:"name"     validate:"required,oneof=andreani oca correo-argentino"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	APIKey  string `yaml:"api_key"  validate:"required"`
	// Service is the carrier-specific contract or product code, e.g. an
	// Andreani contract number or an OCA operative.
	Service string `yaml:"service"`
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shipping config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing shipping config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating shipping config: %w", err)
	}

	return &cfg, nil
}

// ItemWeightKg is the weight assumed per line item unit when the catalog
// carries no weight data.
func (c *Config) ItemWeightKg() float64 {
	if c == nil || c.DefaultItemWeightKg <= 0 {
		return defaultItemWeightKg
	}
	return c.DefaultItemWeightKg
}

// NewRegistryFromConfig builds carrier clients for every configured entry,
// preserving file order so the first entry acts as the default carrier.
func NewRegistryFromConfig(cfg *Config, timeout time.Duration) (*Registry, error) {
	if cfg == nil {
		return NewRegistry(), nil
	}

	carriers := make([]Carrier, 0, len(cfg.Carriers))
	for _, entry := range cfg.Carriers {
		switch entry.Name {
		case "andreani":
			carriers = append(carriers, NewAndreani(entry.BaseURL, entry.APIKey, entry.Service, timeout))
		case "oca":
			carriers = append(carriers, NewOCA(entry.BaseURL, entry.APIKey, entry.Service, timeout))
		case "correo-argentino":
			carriers = append(carriers, NewCorreoArgentino(entry.BaseURL, entry.APIKey, timeout))
		default:
			return nil, fmt.Errorf("unknown carrier %q", entry.Name)
		}
	}

	return NewRegistry(carriers...), nil
}
