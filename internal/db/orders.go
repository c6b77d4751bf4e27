package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modashopapp/modashop/internal/models"
)

var (
	// ErrInvalidStatusTransition is returned when a conditional status
	// update matched no row: the order was not in a state the transition
	// is legal from. Callers treat this as a stale or duplicate event.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, order_number, customer_name, customer_email, customer_phone,
	shipping_address, items, subtotal_cents, discount_cents, shipping_cents,
	total_cents, shipping_type, shipping_method, carrier, tracking_number,
	status, payment_status, payment_id, preference_id, paid_at, created_at,
	updated_at
`

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1"
	return s.queryOrder(ctx, query, orderID)
}

func (s *OrderStore) GetByPreferenceID(ctx context.Context, preferenceID string) (*Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE preference_id = $1"
	return s.queryOrder(ctx, query, preferenceID)
}

// MarkPaid applies the pending→paid transition, stamping the payment.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string, paidAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, payment_id = $3, paid_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'pending'
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusPaid, models.PaymentApproved, paymentID, paidAt, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending", ErrInvalidStatusTransition)
	}
	return nil
}

// SetPaymentPending records a pending payment without touching the order
// status. An already-approved payment is never downgraded, which tolerates
// out-of-order webhook delivery.
func (s *OrderStore) SetPaymentPending(ctx context.Context, orderID uuid.UUID, paymentID string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, payment_id = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status <> 'approved'
	`
	cmdTag, err := s.pool.Exec(ctx, query, models.PaymentPending, paymentID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment already approved", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkCancelled applies the pending|paid→cancelled transition together with
// the rejected/cancelled payment status from the gateway.
func (s *OrderStore) MarkCancelled(ctx context.Context, orderID uuid.UUID, paymentStatus PaymentStatus, paymentID string) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $4 AND status IN ('pending', 'paid')
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusCancelled, paymentStatus, paymentID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/paid", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string) error {
	query := `
		UPDATE orders
		SET status = $1, tracking_number = $2, carrier = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'paid'
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusShipped, trackingNumber, carrier, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected paid", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkDelivered is the operator action closing out a shipped order.
func (s *OrderStore) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'shipped'
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusDelivered, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected shipped", ErrInvalidStatusTransition)
	}
	return nil
}

// UpdateShipmentDetails corrects tracking data on an already-shipped order.
func (s *OrderStore) UpdateShipmentDetails(ctx context.Context, orderID uuid.UUID, trackingNumber, carrier string) error {
	query := `
		UPDATE orders
		SET tracking_number = $1, carrier = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'shipped'
	`
	cmdTag, err := s.pool.Exec(ctx, query, trackingNumber, carrier, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected shipped", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) queryOrder(ctx context.Context, query string, arg any) (*Order, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	var (
		order          Order
		customerPhone  pgtype.Text
		addressJSON    []byte
		itemsJSON      []byte
		shippingMethod pgtype.Text
		carrier        pgtype.Text
		trackingNumber pgtype.Text
		paymentID      pgtype.Text
		preferenceID   pgtype.Text
		paidAt         pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerName,
		&order.CustomerEmail,
		&customerPhone,
		&addressJSON,
		&itemsJSON,
		&order.SubtotalCents,
		&order.DiscountCents,
		&order.ShippingCents,
		&order.TotalCents,
		&order.ShippingType,
		&shippingMethod,
		&carrier,
		&trackingNumber,
		&order.Status,
		&order.PaymentStatus,
		&paymentID,
		&preferenceID,
		&paidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if customerPhone.Valid {
		order.CustomerPhone = customerPhone.String
	}
	if shippingMethod.Valid {
		order.ShippingMethod = shippingMethod.String
	}
	if carrier.Valid {
		order.Carrier = carrier.String
	}
	if trackingNumber.Valid {
		order.TrackingNumber = trackingNumber.String
	}
	if paymentID.Valid {
		order.PaymentID = paymentID.String
	}
	if preferenceID.Valid {
		order.PreferenceID = preferenceID.String
	}
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}

	if addressJSON != nil {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}

	return &order, nil
}
