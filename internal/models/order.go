package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentApproved  PaymentStatus = "approved"
	PaymentRejected  PaymentStatus = "rejected"
	PaymentCancelled PaymentStatus = "cancelled"
)

type ShippingType string

const (
	ShippingStandard ShippingType = "standard"
	ShippingExpress  ShippingType = "express"
	ShippingPickup   ShippingType = "pickup"
)

// validTransitions is the complete edge set of the order lifecycle.
// Anything outside it is treated as a stale or duplicate event.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// ValidTransition reports whether an order may move from one status to another.
func ValidTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type LineItem struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	SubtotalCents  int    `json:"subtotal_cents"`
}

type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID              uuid.UUID     `json:"id"`
	OrderNumber     int           `json:"order_number"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress *Address      `json:"shipping_address"`
	Items           []LineItem    `json:"items"`
	SubtotalCents   int           `json:"subtotal_cents"`
	DiscountCents   int           `json:"discount_cents"`
	ShippingCents   int           `json:"shipping_cents"`
	TotalCents      int           `json:"total_cents"`
	ShippingType    ShippingType  `json:"shipping_type"`
	ShippingMethod  string        `json:"shipping_method"`
	Carrier         string        `json:"carrier"`
	TrackingNumber  string        `json:"tracking_number"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentID       string        `json:"payment_id"`
	PreferenceID    string        `json:"preference_id"`
	PaidAt          time.Time     `json:"paid_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// PostalCode returns the destination postal code, or "" for pickup orders.
func (o *Order) PostalCode() string {
	if o == nil || o.ShippingAddress == nil {
		return ""
	}
	return o.ShippingAddress.PostalCode
}

// RequiresShipment reports whether a carrier shipment should be created for
// the order: not a pickup, a paid shipping cost, and a known destination.
func (o *Order) RequiresShipment() bool {
	if o == nil {
		return false
	}
	return o.ShippingType != ShippingPickup && o.ShippingCents > 0 && o.PostalCode() != ""
}

// OrderLogEntry is an immutable audit record for a single order transition.
type OrderLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	Action    string         `json:"action"`
	Prior     map[string]any `json:"prior"`
	New       map[string]any `json:"new"`
	Note      string         `json:"note"`
	CreatedAt time.Time      `json:"created_at"`
}

// Audit action tags recorded by the fulfillment pipeline.
const (
	ActionPaymentApproved  = "payment_approved"
	ActionPaymentPending   = "payment_pending"
	ActionPaymentRejected  = "payment_rejected"
	ActionPaymentCancelled = "payment_cancelled"
	ActionShipmentCreated  = "shipment_created"
	ActionShipmentFailed   = "shipment_failed"
)
