package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modashopapp/modashop/internal/observability"
)

// ErrUpstreamUnavailable is returned when the authoritative payment record
// cannot be fetched from the gateway. The webhook handler maps it to a 5xx
// response so the gateway redelivers the event later.
var ErrUpstreamUnavailable = errors.New("payment gateway unavailable")

const defaultRequestTimeout = 12 * time.Second

type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		httpClient:  observability.NewHTTPClient(defaultRequestTimeout),
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

// GetPayment fetches the authoritative payment record by id. Any transport
// error or non-2xx response is reported as ErrUpstreamUnavailable.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d fetching payment %s", ErrUpstreamUnavailable, resp.StatusCode, paymentID)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("%w: failed to decode payment %s: %v", ErrUpstreamUnavailable, paymentID, err)
	}

	return &payment, nil
}
