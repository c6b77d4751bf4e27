package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modashopapp/modashop/internal/email"
	"github.com/modashopapp/modashop/internal/models"
	"github.com/modashopapp/modashop/internal/shipping"
)

// Notifier delivers customer-facing order notifications. Delivery failures
// never affect order state; callers log and move on.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
	OrderShipped(ctx context.Context, order *models.Order) error
	OrderDelivered(ctx context.Context, order *models.Order) error
}

type noopNotifier struct{}

func (noopNotifier) OrderConfirmed(context.Context, *models.Order) error { return nil }
func (noopNotifier) OrderShipped(context.Context, *models.Order) error   { return nil }
func (noopNotifier) OrderDelivered(context.Context, *models.Order) error { return nil }

// EmailNotifier sends transactional order emails through the configured
// email provider.
type EmailNotifier struct {
	provider email.Provider
	shopName string
	shopURL  string
}

func NewEmailNotifier(provider email.Provider, shopName, shopURL string) *EmailNotifier {
	return &EmailNotifier{
		provider: provider,
		shopName: shopName,
		shopURL:  shopURL,
	}
}

func (n *EmailNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	return email.SendOrderConfirmation(ctx, n.provider, n.orderInfo(order))
}

func (n *EmailNotifier) OrderShipped(ctx context.Context, order *models.Order) error {
	return email.SendOrderShipped(ctx, n.provider, n.orderInfo(order))
}

func (n *EmailNotifier) OrderDelivered(ctx context.Context, order *models.Order) error {
	return email.SendOrderDelivered(ctx, n.provider, n.orderInfo(order))
}

func (n *EmailNotifier) orderInfo(order *models.Order) *email.OrderInfo {
	items := make([]email.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, email.OrderItem{
			Name:       item.Title,
			Size:       item.Size,
			Quantity:   item.Quantity,
			UnitPrice:  FormatARS(item.UnitPriceCents),
			TotalPrice: FormatARS(item.SubtotalCents),
		})
	}

	return &email.OrderInfo{
		OrderNumber:     fmt.Sprintf("#%d", order.OrderNumber),
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		ShopName:        n.shopName,
		ShopURL:         n.shopURL,
		OrderDate:       order.CreatedAt.Format("02/01/2006"),
		Items:           items,
		Subtotal:        FormatARS(order.SubtotalCents),
		Shipping:        FormatARS(order.ShippingCents),
		Total:           FormatARS(order.TotalCents),
		ShippingAddress: FormatAddress(order.ShippingAddress),
		TrackingNumber:  order.TrackingNumber,
		TrackingURL:     shipping.BuildTrackingURL(order.Carrier, order.TrackingNumber),
		TrackingCarrier: order.Carrier,
	}
}

// FormatARS renders a cents amount as Argentine pesos, e.g. "$ 12.345,67".
func FormatARS(cents int) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	whole := strconv.Itoa(cents / 100)
	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	amount := fmt.Sprintf("$ %s,%02d", strings.Join(groups, "."), cents%100)
	if negative {
		return "-" + amount
	}
	return amount
}

// FormatAddress renders a shipping address as a single human-readable line
// per component. Returns "" for orders without one.
func FormatAddress(address *models.Address) string {
	if address == nil {
		return ""
	}

	street := strings.TrimSpace(address.Street + " " + address.Number)
	if address.Apartment != "" {
		street += ", " + address.Apartment
	}

	parts := []string{street, address.City, address.Province}
	if address.PostalCode != "" {
		parts = append(parts, "CP "+address.PostalCode)
	}
	if address.Country != "" {
		parts = append(parts, address.Country)
	}

	var nonEmpty []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
