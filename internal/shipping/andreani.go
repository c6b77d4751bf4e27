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

// Andreani creates shipping orders through the Andreani e-commerce API.
type Andreani struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	contract   string
}

func NewAndreani(baseURL, apiKey, contract string, timeout time.Duration) *Andreani {
	return &Andreani{
		httpClient: observability.NewHTTPClient(timeout),
		baseURL:    baseURL,
		apiKey:     apiKey,
		contract:   contract,
	}
}

func (a *Andreani) Name() string { return "Andreani" }

type andreaniOrderRequest struct {
	Contrato      string              `json:"contrato"`
	Destino       andreaniDestination `json:"destino"`
	Bultos        []andreaniPackage   `json:"bultos"`
	Destinatarios []andreaniParty     `json:"destinatario"`
}

type andreaniDestination struct {
	Postal andreaniPostal `json:"postal"`
}

type andreaniPostal struct {
	CodigoPostal string `json:"codigoPostal"`
	Calle        string `json:"calle"`
	Numero       string `json:"numero"`
	Localidad    string `json:"localidad"`
	Region       string `json:"region"`
	Pais         string `json:"pais"`
}

type andreaniPackage struct {
	Kilos          float64 `json:"kilos"`
	ValorDeclarado float64 `json:"valorDeclarado"`
}

type andreaniParty struct {
	NombreCompleto string `json:"nombreCompleto"`
	Email          string `json:"email,omitempty"`
	Telefono       string `json:"telefono,omitempty"`
}

type andreaniOrderResponse struct {
	NumeroDeTracking string `json:"numeroDeTracking"`
	FechaEstimada    string `json:"fechaDeEntregaEstimada"`
	Tarifa           struct {
		Total float64 `json:"total"`
	} `json:"tarifa"`
}

func (a *Andreani) CreateShipment(ctx context.Context, req Request) (*Result, error) {
	body := andreaniOrderRequest{
		Contrato: a.contract,
		Destino: andreaniDestination{
			Postal: andreaniPostal{
				CodigoPostal: req.Address.PostalCode,
				Calle:        req.Address.Street,
				Numero:       req.Address.Number,
				Localidad:    req.Address.City,
				Region:       req.Address.Province,
				Pais:         "AR",
			},
		},
		Bultos: []andreaniPackage{{
			Kilos:          req.WeightKg,
			ValorDeclarado: float64(req.DeclaredValueCents) / 100,
		}},
		Destinatarios: []andreaniParty{{
			NombreCompleto: req.CustomerName,
			Email:          req.CustomerEmail,
			Telefono:       req.CustomerPhone,
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding andreani order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/ordenes-de-envio", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating andreani request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-authorization-token", a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling andreani: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("andreani returned status %d", resp.StatusCode)
	}

	var order andreaniOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding andreani response: %w", err)
	}
	if order.NumeroDeTracking == "" {
		return nil, fmt.Errorf("andreani response missing tracking number")
	}

	return &Result{
		TrackingNumber: order.NumeroDeTracking,
		Provider:       a.Name(),
		ETA:            order.FechaEstimada,
		CostCents:      int(order.Tarifa.Total * 100),
	}, nil
}
