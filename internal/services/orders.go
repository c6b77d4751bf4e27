package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/modashopapp/modashop/internal/db"
	"github.com/modashopapp/modashop/internal/logging"
	"github.com/modashopapp/modashop/internal/models"
	"github.com/modashopapp/modashop/internal/observability"
	"github.com/modashopapp/modashop/internal/shipping"
	"github.com/modashopapp/modashop/internal/stock"
)

type adminOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) error
	UpdateShipmentDetails(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string) error
}

type auditLog interface {
	Append(ctx context.Context, entry *models.OrderLogEntry) error
	History(ctx context.Context, orderID uuid.UUID) ([]*models.OrderLogEntry, error)
}

type stockAdminLedger interface {
	Increment(ctx context.Context, productID, size string, quantity int) error
	Movements(ctx context.Context, productID string) ([]stock.Movement, error)
}

// OrderService backs the admin surface: delivery confirmation, shipment
// corrections, order history, and manual stock adjustments.
type OrderService struct {
	orders   adminOrderStore
	audit    auditLog
	stock    stockAdminLedger
	notifier Notifier
	logger   *slog.Logger
}

func NewOrderService(orders adminOrderStore, audit auditLog, ledger stockAdminLedger, notifier Notifier, logger *slog.Logger) *OrderService {
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &OrderService{
		orders:   orders,
		audit:    audit,
		stock:    ledger,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Get returns a single order by id.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// History returns the order's audit trail, oldest entry first.
func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]*models.OrderLogEntry, error) {
	return s.audit.History(ctx, orderID)
}

// ConfirmDelivery moves a shipped order to delivered and notifies the
// customer.
func (s *OrderService) ConfirmDelivery(ctx context.Context, orderID uuid.UUID) error {
	span := sentry.StartSpan(
		ctx,
		"service.order.confirm_delivery",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("ConfirmDelivery"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	if err := s.orders.MarkDelivered(ctx, orderID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring delivery confirmation due to state transition", "order_id", orderID, "status", order.Status)
			return err
		}
		return fmt.Errorf("failed to mark order as delivered: %w", err)
	}
	meter.Count("order.delivered", 1)

	entry := &models.OrderLogEntry{
		OrderID: orderID,
		Action:  "order_delivered",
		Prior:   map[string]any{"status": string(order.Status)},
		New:     map[string]any{"status": string(models.StatusDelivered)},
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logger.Error("failed to append order log entry", "error", err, "order_id", orderID, "action", entry.Action)
	}

	order.Status = models.StatusDelivered
	if err := s.notifier.OrderDelivered(ctx, order); err != nil {
		logger.Error("failed to send delivery notification", "error", err, "order_id", orderID)
	}
	return nil
}

// UpdateTracking corrects the carrier and tracking number of a shipped
// order, for when a shipment is re-dispatched or was registered manually.
func (s *OrderService) UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string) error {
	logger := s.loggerFromContext(ctx)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	normalized := shipping.NormalizeCarrierName(carrier)
	if err := s.orders.UpdateShipmentDetails(ctx, orderID, trackingNumber, normalized); err != nil {
		return fmt.Errorf("failed to update shipment details: %w", err)
	}

	entry := &models.OrderLogEntry{
		OrderID: orderID,
		Action:  "shipment_updated",
		Prior:   map[string]any{"tracking_number": order.TrackingNumber, "carrier": order.Carrier},
		New:     map[string]any{"tracking_number": trackingNumber, "carrier": normalized},
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logger.Error("failed to append order log entry", "error", err, "order_id", orderID, "action", entry.Action)
	}
	return nil
}

// Restock raises the on-hand quantity for a product size.
func (s *OrderService) Restock(ctx context.Context, productID, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("restock quantity must be positive")
	}

	meter := observability.MeterFromContext(ctx)
	if err := s.stock.Increment(ctx, productID, size, quantity); err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	meter.Count("stock.restocked", 1, sentry.WithAttributes(
		attribute.String("product_id", productID),
	))
	return nil
}

// StockMovements returns the movement history for a product, oldest first.
func (s *OrderService) StockMovements(ctx context.Context, productID string) ([]stock.Movement, error) {
	return s.stock.Movements(ctx, productID)
}
