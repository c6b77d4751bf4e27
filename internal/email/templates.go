// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// OrderInfo contains all the information needed for order email templates
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	ShopName        string
	ShopURL         string
	OrderDate       string
	Items           []OrderItem
	Subtotal        string
	Shipping        string
	Total           string
	ShippingAddress string
	TrackingNumber  string
	TrackingURL     string
	TrackingCarrier string
}

// OrderItem represents a single item in an order
type OrderItem struct {
	Name       string
	Size       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

// Renderer provides methods to render email templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer creates a new email template renderer with built-in templates
func NewRenderer() (*Renderer, error) {
	templates := map[string]struct {
		HTML string
		Text string
	}{
		"order_confirmation": {HTML: orderConfirmationHTML, Text: orderConfirmationText},
		"order_shipped":      {HTML: orderShippedHTML, Text: orderShippedText},
		"order_delivered":    {HTML: orderDeliveredHTML, Text: orderDeliveredText},
	}

	tmpl := template.New("email")
	for key, t := range templates {
		if _, err := tmpl.New(key + "_html").Parse(t.HTML); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
		if _, err := tmpl.New(key + "_text").Parse(t.Text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{
		templates: tmpl,
	}, nil
}

// Render renders an email template with the given data
func (r *Renderer) Render(ctx context.Context, templateName string, data *OrderInfo) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&htmlBuf, templateName+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	subject := ""
	switch templateName {
	case "order_confirmation":
		subject = fmt.Sprintf("Pedido confirmado - %s - %s", data.OrderNumber, data.ShopName)
	case "order_shipped":
		subject = fmt.Sprintf("Tu pedido está en camino - %s - %s", data.OrderNumber, data.ShopName)
	case "order_delivered":
		subject = fmt.Sprintf("Tu pedido fue entregado - %s", data.OrderNumber)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// SendOrderConfirmation sends an order confirmation email
func SendOrderConfirmation(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendTemplate(ctx, p, "order_confirmation", orderInfo)
}

// SendOrderShipped sends an order shipped email
func SendOrderShipped(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendTemplate(ctx, p, "order_shipped", orderInfo)
}

// SendOrderDelivered sends an order delivered email
func SendOrderDelivered(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendTemplate(ctx, p, "order_delivered", orderInfo)
}

func sendTemplate(ctx context.Context, p Provider, templateName string, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, templateName, orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

const orderConfirmationText = `¡Gracias por tu compra, {{.CustomerName}}!

Número de pedido: {{.OrderNumber}}
Fecha: {{.OrderDate}}

Productos:
{{range .Items}}
- {{.Name}}{{if .Size}} (Talle {{.Size}}){{end}} x{{.Quantity}} - {{.TotalPrice}}
{{end}}

Subtotal: {{.Subtotal}}
Envío: {{.Shipping}}
Total: {{.Total}}

{{if .ShippingAddress}}Dirección de envío:
{{.ShippingAddress}}

{{end}}Te avisaremos por email cuando tu pedido esté en camino.

Gracias por comprar en {{.ShopName}}.
{{.ShopURL}}
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 20px;">¡Gracias por tu compra, {{.CustomerName}}!</h1>
  <p>Número de pedido: <strong>{{.OrderNumber}}</strong><br>Fecha: {{.OrderDate}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr style="border-bottom: 1px solid #ddd;">
      <th style="text-align: left; padding: 8px;">Producto</th>
      <th style="text-align: right; padding: 8px;">Cantidad</th>
      <th style="text-align: right; padding: 8px;">Precio</th>
    </tr>
    {{range .Items}}
    <tr style="border-bottom: 1px solid #eee;">
      <td style="padding: 8px;">{{.Name}}{{if .Size}} (Talle {{.Size}}){{end}}</td>
      <td style="text-align: right; padding: 8px;">{{.Quantity}}</td>
      <td style="text-align: right; padding: 8px;">{{.TotalPrice}}</td>
    </tr>
    {{end}}
  </table>
  <p style="text-align: right;">
    Subtotal: {{.Subtotal}}<br>
    Envío: {{.Shipping}}<br>
    <strong>Total: {{.Total}}</strong>
  </p>
  {{if .ShippingAddress}}
  <p><strong>Dirección de envío</strong><br>{{.ShippingAddress}}</p>
  {{end}}
  <p>Te avisaremos por email cuando tu pedido esté en camino.</p>
  <p>Gracias por comprar en <a href="{{.ShopURL}}">{{.ShopName}}</a>.</p>
</body>
</html>
`

const orderShippedText = `¡Tu pedido está en camino!

Número de pedido: {{.OrderNumber}}
{{if .TrackingCarrier}}Transporte: {{.TrackingCarrier}}
{{end}}{{if .TrackingNumber}}Número de seguimiento: {{.TrackingNumber}}
{{end}}{{if .TrackingURL}}Seguí tu envío: {{.TrackingURL}}
{{end}}
{{if .ShippingAddress}}Dirección de entrega:
{{.ShippingAddress}}

{{end}}Gracias por comprar en {{.ShopName}}.
{{.ShopURL}}
`

const orderShippedHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 20px;">¡Tu pedido está en camino!</h1>
  <p>Número de pedido: <strong>{{.OrderNumber}}</strong></p>
  {{if .TrackingCarrier}}<p>Transporte: {{.TrackingCarrier}}</p>{{end}}
  {{if .TrackingNumber}}<p>Número de seguimiento: <strong>{{.TrackingNumber}}</strong></p>{{end}}
  {{if .TrackingURL}}<p><a href="{{.TrackingURL}}">Seguí tu envío</a></p>{{end}}
  {{if .ShippingAddress}}
  <p><strong>Dirección de entrega</strong><br>{{.ShippingAddress}}</p>
  {{end}}
  <p>Gracias por comprar en <a href="{{.ShopURL}}">{{.ShopName}}</a>.</p>
</body>
</html>
`

const orderDeliveredText = `¡Tu pedido fue entregado!

Número de pedido: {{.OrderNumber}}

Esperamos que disfrutes tu compra. Si hubo algún problema con la entrega,
respondé este email y te ayudamos.

Gracias por comprar en {{.ShopName}}.
{{.ShopURL}}
`

const orderDeliveredHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 20px;">¡Tu pedido fue entregado!</h1>
  <p>Número de pedido: <strong>{{.OrderNumber}}</strong></p>
  <p>Esperamos que disfrutes tu compra. Si hubo algún problema con la entrega, respondé este email y te ayudamos.</p>
  <p>Gracias por comprar en <a href="{{.ShopURL}}">{{.ShopName}}</a>.</p>
</body>
</html>
`
