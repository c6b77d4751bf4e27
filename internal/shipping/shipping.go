// Package shipping provides carrier clients for creating trackable shipments.
package shipping

import (
	"context"
	"errors"
	"strings"

	"github.com/modashopapp/modashop/internal/models"
)

// ErrNoCarrierAvailable is returned when no carrier is configured.
var ErrNoCarrierAvailable = errors.New("no shipping carrier available")

// Request is the normalized shipment creation request shared by all
// carriers.
type Request struct {
	OrderID            string
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	Address            models.Address
	WeightKg           float64
	DeclaredValueCents int
}

// Result is the normalized response of a shipment creation call. Retries is
// filled in by the orchestrator for observability.
type Result struct {
	TrackingNumber string
	Provider       string
	ETA            string
	CostCents      int
	Retries        int
}

// Carrier creates a shipment with a single provider. All carriers expose the
// same result shape.
type Carrier interface {
	Name() string
	CreateShipment(ctx context.Context, req Request) (*Result, error)
}

// Registry holds the configured carriers and selects one per order.
type Registry struct {
	carriers []Carrier
}

func NewRegistry(carriers ...Carrier) *Registry {
	return &Registry{carriers: carriers}
}

func (r *Registry) Empty() bool {
	return r == nil || len(r.carriers) == 0
}

// Select picks the carrier whose name appears in the order's shipping method
// label. When no name matches, the first configured carrier is the default.
func (r *Registry) Select(method string) Carrier {
	if r.Empty() {
		return nil
	}

	normalized := strings.ToLower(method)
	for _, carrier := range r.carriers {
		name := strings.ToLower(carrier.Name())
		if strings.Contains(normalized, name) {
			return carrier
		}
		if token := strings.Fields(name); len(token) > 0 && strings.Contains(normalized, token[0]) {
			return carrier
		}
	}

	return r.carriers[0]
}
