package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/modashopapp/modashop/internal/shipping"
)

type flakyCarrier struct {
	name     string
	failures int
	calls    int
}

func (c *flakyCarrier) Name() string { return c.name }

func (c *flakyCarrier) CreateShipment(context.Context, shipping.Request) (*shipping.Result, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, fmt.Errorf("carrier timeout on call %d", c.calls)
	}
	return &shipping.Result{TrackingNumber: "TRK-OK", Provider: c.name}, nil
}

func newTestOrchestrator(carrier shipping.Carrier) (*ShippingOrchestrator, *[]time.Duration) {
	orchestrator := NewShippingOrchestrator(shipping.NewRegistry(carrier), 0.35, slog.New(slog.DiscardHandler))
	var sleeps []time.Duration
	orchestrator.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return orchestrator, &sleeps
}

func TestCreateShipmentRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	carrier := &flakyCarrier{name: "Andreani", failures: 2}
	orchestrator, sleeps := newTestOrchestrator(carrier)

	result, err := orchestrator.CreateShipment(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	if result.Retries != 2 {
		t.Fatalf("Retries = %d, want 2", result.Retries)
	}
	if carrier.calls != 3 {
		t.Fatalf("carrier calls = %d, want 3", carrier.calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Fatalf("backoff sleeps = %v, want %v", *sleeps, want)
	}
}

func TestCreateShipmentFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	carrier := &flakyCarrier{name: "OCA"}
	orchestrator, sleeps := newTestOrchestrator(carrier)

	result, err := orchestrator.CreateShipment(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	if result.Retries != 0 {
		t.Fatalf("Retries = %d, want 0", result.Retries)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("backoff sleeps = %v, want none", *sleeps)
	}
}

func TestCreateShipmentExhaustsAttempts(t *testing.T) {
	t.Parallel()

	carrier := &flakyCarrier{name: "Andreani", failures: maxShipmentAttempts}
	orchestrator, _ := newTestOrchestrator(carrier)

	_, err := orchestrator.CreateShipment(context.Background(), testOrder())
	if !errors.Is(err, ErrShippingFailed) {
		t.Fatalf("CreateShipment() error = %v, want ErrShippingFailed", err)
	}
	if carrier.calls != maxShipmentAttempts {
		t.Fatalf("carrier calls = %d, want %d", carrier.calls, maxShipmentAttempts)
	}
}

func TestCreateShipmentNoCarriers(t *testing.T) {
	t.Parallel()

	orchestrator := NewShippingOrchestrator(shipping.NewRegistry(), 0.35, slog.New(slog.DiscardHandler))

	_, err := orchestrator.CreateShipment(context.Background(), testOrder())
	if !errors.Is(err, shipping.ErrNoCarrierAvailable) {
		t.Fatalf("CreateShipment() error = %v, want ErrNoCarrierAvailable", err)
	}
}

func TestCreateShipmentCancelledContextStopsRetries(t *testing.T) {
	t.Parallel()

	carrier := &flakyCarrier{name: "Andreani", failures: maxShipmentAttempts}
	orchestrator := NewShippingOrchestrator(shipping.NewRegistry(carrier), 0.35, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orchestrator.CreateShipment(ctx, testOrder())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("CreateShipment() error = %v, want context.Canceled", err)
	}
	if carrier.calls != 1 {
		t.Fatalf("carrier calls = %d, want 1 before cancelled backoff", carrier.calls)
	}
}

func TestBuildRequestWeight(t *testing.T) {
	t.Parallel()

	orchestrator := NewShippingOrchestrator(shipping.NewRegistry(), 0.5, slog.New(slog.DiscardHandler))
	order := testOrder()
	order.Items = append(order.Items, order.Items[0])

	request := orchestrator.buildRequest(order)
	if request.WeightKg != 2.0 {
		t.Fatalf("WeightKg = %v, want 2.0 for 4 units at 0.5kg", request.WeightKg)
	}
	if request.DeclaredValueCents != order.SubtotalCents {
		t.Fatalf("DeclaredValueCents = %d, want %d", request.DeclaredValueCents, order.SubtotalCents)
	}
	if request.Address.PostalCode != "C1043" {
		t.Fatalf("Address.PostalCode = %q, want C1043", request.Address.PostalCode)
	}
}
