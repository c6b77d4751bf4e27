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

// OCA creates shipments through OCA's e-Pak API.
type OCA struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	operative  string
}

func NewOCA(baseURL, apiKey, operative string, timeout time.Duration) *OCA {
	return &OCA{
		httpClient: observability.NewHTTPClient(timeout),
		baseURL:    baseURL,
		apiKey:     apiKey,
		operative:  operative,
	}
}

func (o *OCA) Name() string { return "OCA" }

type ocaShipmentRequest struct {
	Operativa      string  `json:"operativa"`
	Referencia     string  `json:"referencia"`
	Destinatario   string  `json:"destinatario"`
	Email          string  `json:"email"`
	Telefono       string  `json:"telefono,omitempty"`
	Calle          string  `json:"calle"`
	Numero         string  `json:"numero"`
	Piso           string  `json:"piso,omitempty"`
	Localidad      string  `json:"localidad"`
	Provincia      string  `json:"provincia"`
	CodigoPostal   string  `json:"cp"`
	PesoTotal      float64 `json:"peso_total"`
	ValorDeclarado float64 `json:"valor_declarado"`
}

type ocaShipmentResponse struct {
	NumeroEnvio  string  `json:"numero_envio"`
	FechaEntrega string  `json:"fecha_entrega_estimada"`
	Tarifa       float64 `json:"tarifa"`
}

func (o *OCA) CreateShipment(ctx context.Context, req Request) (*Result, error) {
	body := ocaShipmentRequest{
		Operativa:      o.operative,
		Referencia:     req.OrderID,
		Destinatario:   req.CustomerName,
		Email:          req.CustomerEmail,
		Telefono:       req.CustomerPhone,
		Calle:          req.Address.Street,
		Numero:         req.Address.Number,
		Piso:           req.Address.Apartment,
		Localidad:      req.Address.City,
		Provincia:      req.Address.Province,
		CodigoPostal:   req.Address.PostalCode,
		PesoTotal:      req.WeightKg,
		ValorDeclarado: float64(req.DeclaredValueCents) / 100,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding oca shipment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/epak/v1/envios", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating oca request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling oca: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oca returned status %d", resp.StatusCode)
	}

	var shipment ocaShipmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("decoding oca response: %w", err)
	}
	if shipment.NumeroEnvio == "" {
		return nil, fmt.Errorf("oca response missing shipment number")
	}

	return &Result{
		TrackingNumber: shipment.NumeroEnvio,
		Provider:       o.Name(),
		ETA:            shipment.FechaEntrega,
		CostCents:      int(shipment.Tarifa * 100),
	}, nil
}
