package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/modashopapp/modashop/internal/logging"
	"github.com/modashopapp/modashop/internal/models"
	"github.com/modashopapp/modashop/internal/observability"
	"github.com/modashopapp/modashop/internal/shipping"
)

const maxShipmentAttempts = 3

// ErrShippingFailed is returned when every shipment attempt against the
// selected carrier has failed.
var ErrShippingFailed = errors.New("shipment creation failed")

// ShippingOrchestrator creates carrier shipments for paid orders, retrying
// transient carrier failures before giving up.
type ShippingOrchestrator struct {
	registry     *shipping.Registry
	itemWeightKg float64
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

func NewShippingOrchestrator(registry *shipping.Registry, itemWeightKg float64, logger *slog.Logger) *ShippingOrchestrator {
	return &ShippingOrchestrator{
		registry:     registry,
		itemWeightKg: itemWeightKg,
		sleep:        sleepContext,
		logger:       logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *ShippingOrchestrator) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// CreateShipment selects a carrier for the order's shipping method and
// creates a shipment, retrying up to two more times with a linear backoff.
// The returned result carries the number of retries that were needed.
func (s *ShippingOrchestrator) CreateShipment(ctx context.Context, order *models.Order) (*shipping.Result, error) {
	span := sentry.StartSpan(
		ctx,
		"service.shipping.create_shipment",
		sentry.WithOpName("service.shipping"),
		sentry.WithDescription("CreateShipment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	if s.registry.Empty() {
		meter.Count("shipment.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "no_carrier_configured"),
		))
		return nil, shipping.ErrNoCarrierAvailable
	}

	carrier := s.registry.Select(order.ShippingMethod)
	request := s.buildRequest(order)

	var lastErr error
	for attempt := 1; attempt <= maxShipmentAttempts; attempt++ {
		result, err := carrier.CreateShipment(ctx, request)
		if err == nil {
			result.Retries = attempt - 1
			meter.Count("shipment.created", 1, sentry.WithAttributes(
				attribute.String("carrier", carrier.Name()),
			))
			logger.Info("shipment created",
				"order_id", order.ID,
				"carrier", carrier.Name(),
				"tracking_number", result.TrackingNumber,
				"retries", result.Retries,
			)
			return result, nil
		}

		lastErr = err
		logger.Warn("shipment attempt failed",
			"order_id", order.ID,
			"carrier", carrier.Name(),
			"attempt", attempt,
			"error", err,
		)

		if attempt < maxShipmentAttempts {
			if sleepErr := s.sleep(ctx, time.Duration(attempt)*time.Second); sleepErr != nil {
				return nil, fmt.Errorf("shipment retry interrupted: %w", sleepErr)
			}
		}
	}

	meter.Count("shipment.failed", 1, sentry.WithAttributes(
		attribute.String("carrier", carrier.Name()),
	))
	return nil, fmt.Errorf("%w: carrier %s after %d attempts: %v", ErrShippingFailed, carrier.Name(), maxShipmentAttempts, lastErr)
}

func (s *ShippingOrchestrator) buildRequest(order *models.Order) shipping.Request {
	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	if units == 0 {
		units = 1
	}

	request := shipping.Request{
		OrderID:            order.ID.String(),
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		CustomerPhone:      order.CustomerPhone,
		WeightKg:           float64(units) * s.itemWeightKg,
		DeclaredValueCents: order.SubtotalCents,
	}
	if order.ShippingAddress != nil {
		request.Address = *order.ShippingAddress
	}
	return request
}
