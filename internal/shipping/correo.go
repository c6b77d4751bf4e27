package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modashopapp/modashop/internal/observability"
)

// CorreoArgentino creates shipments through the Correo Argentino Paq.ar API.
type CorreoArgentino struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewCorreoArgentino(baseURL, apiKey string, timeout time.Duration) *CorreoArgentino {
	return &CorreoArgentino{
		httpClient: observability.NewHTTPClient(timeout),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (c *CorreoArgentino) Name() string { return "Correo Argentino" }

type correoShipmentRequest struct {
	ExternalID string        `json:"externalId"`
	Recipient  correoContact `json:"recipient"`
	Address    correoAddress `json:"address"`
	WeightGr   int           `json:"weightGr"`
	ValueARS   float64       `json:"declaredValue"`
}

type correoContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type correoAddress struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Floor      string `json:"floor,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
}

type correoShipmentResponse struct {
	TrackingNumber string  `json:"trackingNumber"`
	DeliveryETA    string  `json:"estimatedDelivery"`
	Price          float64 `json:"price"`
}

func (c *CorreoArgentino) CreateShipment(ctx context.Context, req Request) (*Result, error) {
	body := correoShipmentRequest{
		ExternalID: req.OrderID,
		Recipient: correoContact{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Address: correoAddress{
			Street:     req.Address.Street,
			Number:     req.Address.Number,
			Floor:      req.Address.Apartment,
			City:       req.Address.City,
			Province:   req.Address.Province,
			PostalCode: req.Address.PostalCode,
		},
		WeightGr: int(req.WeightKg * 1000),
		ValueARS: float64(req.DeclaredValueCents) / 100,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding correo argentino shipment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/paqar/api/v1/shipments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating correo argentino request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling correo argentino: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("correo argentino returned status %d", resp.StatusCode)
	}

	var shipment correoShipmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("decoding correo argentino response: %w", err)
	}
	if shipment.TrackingNumber == "" {
		return nil, fmt.Errorf("correo argentino response missing tracking number")
	}

	return &Result{
		TrackingNumber: shipment.TrackingNumber,
		Provider:       c.Name(),
		ETA:            shipment.DeliveryETA,
		CostCents:      int(shipment.Price * 100),
	}, nil
}
