package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/modashopapp/modashop/internal/db"
	"github.com/modashopapp/modashop/internal/logging"
	"github.com/modashopapp/modashop/internal/mercadopago"
	"github.com/modashopapp/modashop/internal/models"
	"github.com/modashopapp/modashop/internal/observability"
	"github.com/modashopapp/modashop/internal/shipping"
	"github.com/modashopapp/modashop/internal/stock"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type reconcilerOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetByPreferenceID(ctx context.Context, preferenceID string) (*db.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string, paidAt time.Time) error
	SetPaymentPending(ctx context.Context, orderID uuid.UUID, paymentID string) error
	MarkCancelled(ctx context.Context, orderID uuid.UUID, paymentStatus db.PaymentStatus, paymentID string) error
	MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string) error
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.OrderLogEntry) error
}

type shipmentCreator interface {
	CreateShipment(ctx context.Context, order *models.Order) (*shipping.Result, error)
}

// PaymentReconciler turns verified gateway payment events into order state
// transitions, stock decrements, shipments, and customer notifications.
type PaymentReconciler struct {
	payments paymentFetcher
	orders   reconcilerOrderStore
	audit    auditAppender
	stock    stock.Ledger
	shipper  shipmentCreator
	notifier Notifier
	logger   *slog.Logger
}

func NewPaymentReconciler(payments paymentFetcher, orders reconcilerOrderStore, audit auditAppender, ledger stock.Ledger, shipper shipmentCreator, notifier Notifier, logger *slog.Logger) *PaymentReconciler {
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &PaymentReconciler{
		payments: payments,
		orders:   orders,
		audit:    audit,
		stock:    ledger,
		shipper:  shipper,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *PaymentReconciler) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// HandlePaymentEvent fetches the authoritative payment record and applies it
// to the matching order. Events that reference no known order, duplicate an
// already-applied payment, or arrive out of order are acknowledged without
// effect. The returned status is the gateway's payment status so callers can
// tell whether the payment has settled.
func (s *PaymentReconciler) HandlePaymentEvent(ctx context.Context, paymentID string) (string, error) {
	span := sentry.StartSpan(
		ctx,
		"service.reconciler.handle_payment_event",
		sentry.WithOpName("service.reconciler"),
		sentry.WithDescription("HandlePaymentEvent"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("source", "payment_webhook"))
	meter.Count("payment.event.received", 1)
	recordSkip := func(reason string) {
		meter.Count("payment.event.skipped", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		meter.Count("payment.event.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "payment_fetch_failed"),
		))
		return "", fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	order, err := s.resolveOrder(ctx, payment)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			logger.Warn("no order matches payment; acknowledging",
				"payment_id", payment.PaymentID(),
				"external_reference", payment.ExternalReference,
				"preference_id", payment.PreferenceID,
			)
			recordSkip("order_not_found")
			return payment.Status, nil
		}
		meter.Count("payment.event.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "order_lookup_failed"),
		))
		return "", fmt.Errorf("failed to resolve order for payment %s: %w", paymentID, err)
	}

	if order.PaymentStatus == models.PaymentApproved && order.PaymentID == payment.PaymentID() {
		logger.Info("duplicate payment event; already applied", "order_id", order.ID, "payment_id", payment.PaymentID())
		recordSkip("duplicate")
		return payment.Status, nil
	}

	switch payment.Status {
	case mercadopago.PaymentStatusApproved:
		return payment.Status, s.applyApproved(ctx, order, payment)
	case mercadopago.PaymentStatusPending, mercadopago.PaymentStatusInProcess:
		return payment.Status, s.applyPending(ctx, order, payment)
	case mercadopago.PaymentStatusRejected:
		return payment.Status, s.applyTerminal(ctx, order, payment, models.PaymentRejected, models.ActionPaymentRejected)
	case mercadopago.PaymentStatusCancelled:
		return payment.Status, s.applyTerminal(ctx, order, payment, models.PaymentCancelled, models.ActionPaymentCancelled)
	default:
		logger.Warn("unknown payment status; acknowledging", "order_id", order.ID, "payment_id", payment.PaymentID(), "status", payment.Status)
		recordSkip("unknown_status")
		return payment.Status, nil
	}
}

// resolveOrder matches a payment to an order, preferring the external
// reference (our order id) and falling back to the checkout preference id.
func (s *PaymentReconciler) resolveOrder(ctx context.Context, payment *mercadopago.Payment) (*db.Order, error) {
	if orderID, err := uuid.Parse(payment.ExternalReference); err == nil {
		order, err := s.orders.GetByID(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, db.ErrOrderNotFound) {
			return nil, err
		}
	}

	if payment.PreferenceID == "" {
		return nil, db.ErrOrderNotFound
	}
	return s.orders.GetByPreferenceID(ctx, payment.PreferenceID)
}

func (s *PaymentReconciler) applyApproved(ctx context.Context, order *db.Order, payment *mercadopago.Payment) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	approvedAt := time.Now().UTC()
	if payment.DateApproved != nil {
		approvedAt = *payment.DateApproved
	}

	if err := s.orders.MarkPaid(ctx, order.ID, payment.PaymentID(), approvedAt); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring approved payment due to state transition", "order_id", order.ID, "payment_id", payment.PaymentID(), "status", order.Status)
			meter.Count("payment.event.skipped", 1, sentry.WithAttributes(
				attribute.String("reason", "stale_transition"),
			))
			return nil
		}
		return fmt.Errorf("failed to mark order as paid: %w", err)
	}
	meter.Count("payment.approved.applied", 1)

	s.appendAudit(ctx, order.ID, models.ActionPaymentApproved,
		map[string]any{"status": string(order.Status), "payment_status": string(order.PaymentStatus)},
		map[string]any{"status": string(models.StatusPaid), "payment_status": string(models.PaymentApproved), "payment_id": payment.PaymentID()},
		"",
	)

	order.Status = models.StatusPaid
	order.PaymentStatus = models.PaymentApproved
	order.PaymentID = payment.PaymentID()
	order.PaidAt = approvedAt

	s.decrementStock(ctx, order, payment)

	if err := s.notifier.OrderConfirmed(ctx, order); err != nil {
		logger.Error("failed to send order confirmation", "error", err, "order_id", order.ID)
	}

	if !order.RequiresShipment() {
		logger.Info("order does not require a shipment", "order_id", order.ID, "shipping_type", order.ShippingType)
		return nil
	}

	return s.ship(ctx, order)
}

func (s *PaymentReconciler) applyPending(ctx context.Context, order *db.Order, payment *mercadopago.Payment) error {
	logger := s.loggerFromContext(ctx)

	if err := s.orders.SetPaymentPending(ctx, order.ID, payment.PaymentID()); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring pending payment for settled order", "order_id", order.ID, "payment_id", payment.PaymentID())
			return nil
		}
		return fmt.Errorf("failed to record pending payment: %w", err)
	}

	s.appendAudit(ctx, order.ID, models.ActionPaymentPending,
		map[string]any{"payment_status": string(order.PaymentStatus)},
		map[string]any{"payment_status": string(models.PaymentPending), "payment_id": payment.PaymentID()},
		payment.StatusDetail,
	)
	return nil
}

func (s *PaymentReconciler) applyTerminal(ctx context.Context, order *db.Order, payment *mercadopago.Payment, paymentStatus models.PaymentStatus, action string) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	if err := s.orders.MarkCancelled(ctx, order.ID, paymentStatus, payment.PaymentID()); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring terminal payment event due to state transition", "order_id", order.ID, "payment_id", payment.PaymentID(), "status", order.Status)
			meter.Count("payment.event.skipped", 1, sentry.WithAttributes(
				attribute.String("reason", "stale_transition"),
			))
			return nil
		}
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	meter.Count("payment.terminal.applied", 1, sentry.WithAttributes(
		attribute.String("payment_status", string(paymentStatus)),
	))

	s.appendAudit(ctx, order.ID, action,
		map[string]any{"status": string(order.Status), "payment_status": string(order.PaymentStatus)},
		map[string]any{"status": string(models.StatusCancelled), "payment_status": string(paymentStatus), "payment_id": payment.PaymentID()},
		payment.StatusDetail,
	)
	return nil
}

// decrementStock walks the payment's line items, falling back to the order's
// own items when the gateway reports none. A failed line never blocks the
// remaining lines or the rest of the pipeline.
func (s *PaymentReconciler) decrementStock(ctx context.Context, order *db.Order, payment *mercadopago.Payment) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	sizeByProduct := make(map[string]string, len(order.Items))
	for _, item := range order.Items {
		sizeByProduct[item.ProductID] = item.Size
	}

	type line struct {
		productID string
		size      string
		quantity  int
	}

	var lines []line
	for _, item := range payment.AdditionalInfo.Items {
		if item.ID == "" {
			continue
		}
		size := item.Size()
		if size == "" {
			// Not every payment method echoes the description back;
			// the order's own line item still knows the size.
			size = sizeByProduct[item.ID]
		}
		lines = append(lines, line{productID: item.ID, size: size, quantity: int(item.Quantity)})
	}
	if len(lines) == 0 {
		for _, item := range order.Items {
			lines = append(lines, line{productID: item.ProductID, size: item.Size, quantity: item.Quantity})
		}
	}

	for _, l := range lines {
		if l.quantity <= 0 {
			l.quantity = 1
		}
		if err := s.stock.Decrement(ctx, l.productID, l.size, l.quantity); err != nil {
			reason := "decrement_failed"
			switch {
			case errors.Is(err, stock.ErrInsufficientStock):
				reason = "insufficient_stock"
			case errors.Is(err, stock.ErrNotFound):
				reason = "unknown_product"
			}
			logger.Error("failed to decrement stock",
				"error", err,
				"order_id", order.ID,
				"product_id", l.productID,
				"size", l.size,
				"quantity", l.quantity,
			)
			meter.Count("stock.decrement.failed", 1, sentry.WithAttributes(
				attribute.String("reason", reason),
			))
			continue
		}
		meter.Count("stock.decrement.applied", 1)
	}
}

func (s *PaymentReconciler) ship(ctx context.Context, order *db.Order) error {
	logger := s.loggerFromContext(ctx)

	result, err := s.shipper.CreateShipment(ctx, order)
	if err != nil {
		logger.Error("failed to create shipment", "error", err, "order_id", order.ID)
		s.appendAudit(ctx, order.ID, models.ActionShipmentFailed,
			map[string]any{"status": string(order.Status)},
			map[string]any{"status": string(order.Status)},
			err.Error(),
		)
		return nil
	}

	carrier := shipping.NormalizeCarrierName(result.Provider)
	if err := s.orders.MarkShipped(ctx, order.ID, result.TrackingNumber, carrier); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring shipment for order no longer paid", "order_id", order.ID, "tracking_number", result.TrackingNumber)
			return nil
		}
		return fmt.Errorf("failed to mark order as shipped: %w", err)
	}

	s.appendAudit(ctx, order.ID, models.ActionShipmentCreated,
		map[string]any{"status": string(models.StatusPaid)},
		map[string]any{"status": string(models.StatusShipped), "tracking_number": result.TrackingNumber, "carrier": carrier, "retries": result.Retries},
		"",
	)

	order.Status = models.StatusShipped
	order.TrackingNumber = result.TrackingNumber
	order.Carrier = carrier

	if err := s.notifier.OrderShipped(ctx, order); err != nil {
		logger.Error("failed to send shipment notification", "error", err, "order_id", order.ID)
	}
	return nil
}

// appendAudit records an order transition. Audit write failures are logged
// and never fail the pipeline; the state change has already been applied.
func (s *PaymentReconciler) appendAudit(ctx context.Context, orderID uuid.UUID, action string, prior, next map[string]any, note string) {
	entry := &models.OrderLogEntry{
		OrderID: orderID,
		Action:  action,
		Prior:   prior,
		New:     next,
		Note:    note,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.loggerFromContext(ctx).Error("failed to append order log entry", "error", err, "order_id", orderID, "action", action)
	}
}
