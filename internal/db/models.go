package db

import "github.com/modashopapp/modashop/internal/models"

type Order = models.Order
type OrderStatus = models.OrderStatus
type PaymentStatus = models.PaymentStatus
type OrderLogEntry = models.OrderLogEntry

const (
	StatusPending   = models.StatusPending
	StatusPaid      = models.StatusPaid
	StatusShipped   = models.StatusShipped
	StatusDelivered = models.StatusDelivered
	StatusCancelled = models.StatusCancelled
)
