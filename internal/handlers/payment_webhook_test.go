package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/modashopapp/modashop/internal/cache"
	"github.com/modashopapp/modashop/internal/config"
	"github.com/modashopapp/modashop/internal/db"
	"github.com/modashopapp/modashop/internal/mercadopago"
	"github.com/modashopapp/modashop/internal/models"
	"github.com/modashopapp/modashop/internal/services"
	"github.com/modashopapp/modashop/internal/shipping"
	"github.com/modashopapp/modashop/internal/stock"
)

type countingFetcher struct {
	payment *mercadopago.Payment
	err     error
	calls   int
}

func (f *countingFetcher) GetPayment(context.Context, string) (*mercadopago.Payment, error) {
	f.calls++
	return f.payment, f.err
}

type sequenceFetcher struct {
	payments []*mercadopago.Payment
	calls    int
}

func (f *sequenceFetcher) GetPayment(context.Context, string) (*mercadopago.Payment, error) {
	f.calls++
	if f.calls > len(f.payments) {
		return f.payments[len(f.payments)-1], nil
	}
	return f.payments[f.calls-1], nil
}

type singleOrderStore struct {
	order         *db.Order
	markPaidCalls int
	pendingCalls  int
}

func (s *singleOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, db.ErrOrderNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *singleOrderStore) GetByPreferenceID(_ context.Context, preferenceID string) (*db.Order, error) {
	if s.order == nil || s.order.PreferenceID != preferenceID {
		return nil, db.ErrOrderNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *singleOrderStore) MarkPaid(context.Context, uuid.UUID, string, time.Time) error {
	s.markPaidCalls++
	return nil
}

func (s *singleOrderStore) SetPaymentPending(context.Context, uuid.UUID, string) error {
	s.pendingCalls++
	return nil
}

func (s *singleOrderStore) MarkCancelled(context.Context, uuid.UUID, db.PaymentStatus, string) error {
	return nil
}

func (s *singleOrderStore) MarkShipped(context.Context, uuid.UUID, string, string) error {
	return nil
}

type emptyOrderStore struct{}

func (emptyOrderStore) GetByID(context.Context, uuid.UUID) (*db.Order, error) {
	return nil, db.ErrOrderNotFound
}

func (emptyOrderStore) GetByPreferenceID(context.Context, string) (*db.Order, error) {
	return nil, db.ErrOrderNotFound
}

func (emptyOrderStore) MarkPaid(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (emptyOrderStore) SetPaymentPending(context.Context, uuid.UUID, string) error   { return nil }
func (emptyOrderStore) MarkCancelled(context.Context, uuid.UUID, db.PaymentStatus, string) error {
	return nil
}
func (emptyOrderStore) MarkShipped(context.Context, uuid.UUID, string, string) error { return nil }

type noopAudit struct{}

func (noopAudit) Append(context.Context, *db.OrderLogEntry) error { return nil }

type noopShipper struct{}

func (noopShipper) CreateShipment(context.Context, *db.Order) (*shipping.Result, error) {
	return nil, nil
}

func newWebhookHandlers(t *testing.T, secret string, fetcher *countingFetcher) *Handlers {
	t.Helper()

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("creating cache provider: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	reconciler := services.NewPaymentReconciler(fetcher, emptyOrderStore{}, noopAudit{}, stock.NewMemoryLedger(), noopShipper{}, nil, logger)

	return &Handlers{
		config:        &config.Config{MercadoPagoWebhookSecret: secret},
		cacheProvider: cacheProvider,
		reconciler:    reconciler,
		logger:        logger,
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h *Handlers, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	recorder := httptest.NewRecorder()
	h.MercadoPagoWebhook(recorder, req)
	return recorder
}

func TestMercadoPagoWebhookRejectsInvalidSignature(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	body := []byte(`{"type":"payment","data":{"id":123}}`)
	recorder := postWebhook(h, body, sign(body, "wrong-secret"))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
	if fetcher.calls != 0 {
		t.Fatalf("payment fetches = %d, want 0 on rejected signature", fetcher.calls)
	}
}

func TestMercadoPagoWebhookRejectsMissingSignature(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	recorder := postWebhook(h, []byte(`{"type":"payment","data":{"id":123}}`), "")

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
	if fetcher.calls != 0 {
		t.Fatalf("payment fetches = %d, want 0", fetcher.calls)
	}
}

func TestMercadoPagoWebhookRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	body := []byte(`{"type":`)
	recorder := postWebhook(h, body, sign(body, "topsecret"))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestMercadoPagoWebhookIgnoresNonPaymentEvents(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	body := []byte(`{"type":"merchant_order","data":{"id":"555"}}`)
	recorder := postWebhook(h, body, sign(body, "topsecret"))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if fetcher.calls != 0 {
		t.Fatalf("payment fetches = %d, want 0 for ignored event", fetcher.calls)
	}
}

func TestMercadoPagoWebhookUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{err: fmt.Errorf("gateway: %w", mercadopago.ErrUpstreamUnavailable)}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	body := []byte(`{"type":"payment","data":{"id":123}}`)
	recorder := postWebhook(h, body, sign(body, "topsecret"))

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", recorder.Code)
	}
}

func TestMercadoPagoWebhookDeduplicatesEvents(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{payment: &mercadopago.Payment{
		ID:     "123",
		Status: mercadopago.PaymentStatusApproved,
	}}
	h := newWebhookHandlers(t, "topsecret", fetcher)

	body := []byte(`{"type":"payment","data":{"id":123}}`)

	first := postWebhook(h, body, sign(body, "topsecret"))
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", first.Code)
	}
	if fetcher.calls != 1 {
		t.Fatalf("payment fetches after first delivery = %d, want 1", fetcher.calls)
	}

	second := postWebhook(h, body, sign(body, "topsecret"))
	if second.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", second.Code)
	}
	if fetcher.calls != 1 {
		t.Fatalf("payment fetches after redelivery = %d, want 1", fetcher.calls)
	}
}

// The gateway reuses the same data.id for every status change of a payment,
// so an approved notification must never be swallowed because a pending one
// for the same payment id was seen first.
func TestMercadoPagoWebhookStatusChangeNotDeduplicated(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:            uuid.New(),
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		ShippingType:  models.ShippingPickup,
		Items: []models.LineItem{
			{ProductID: "remera-azul", Size: "M", Quantity: 1},
		},
	}
	pending := &mercadopago.Payment{ID: "777", Status: mercadopago.PaymentStatusPending, ExternalReference: order.ID.String()}
	approved := &mercadopago.Payment{ID: "777", Status: mercadopago.PaymentStatusApproved, ExternalReference: order.ID.String()}
	fetcher := &sequenceFetcher{payments: []*mercadopago.Payment{pending, approved}}
	store := &singleOrderStore{order: order}

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("creating cache provider: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	ledger := stock.NewMemoryLedger()
	ledger.SetQuantity("remera-azul", "M", 3)
	h := &Handlers{
		config:        &config.Config{MercadoPagoWebhookSecret: "topsecret"},
		cacheProvider: cacheProvider,
		reconciler:    services.NewPaymentReconciler(fetcher, store, noopAudit{}, ledger, noopShipper{}, nil, logger),
		logger:        logger,
	}

	body := []byte(`{"type":"payment","data":{"id":777}}`)

	first := postWebhook(h, body, sign(body, "topsecret"))
	if first.Code != http.StatusOK {
		t.Fatalf("pending delivery status = %d, want 200", first.Code)
	}
	if store.pendingCalls != 1 {
		t.Fatalf("SetPaymentPending calls = %d, want 1", store.pendingCalls)
	}

	second := postWebhook(h, body, sign(body, "topsecret"))
	if second.Code != http.StatusOK {
		t.Fatalf("approved delivery status = %d, want 200", second.Code)
	}
	if fetcher.calls != 2 {
		t.Fatalf("payment fetches = %d, want 2 (approved event must reach the gateway)", fetcher.calls)
	}
	if store.markPaidCalls != 1 {
		t.Fatalf("MarkPaid calls = %d, want 1", store.markPaidCalls)
	}

	// only the settled outcome is cached; a redelivery of it is a no-op
	third := postWebhook(h, body, sign(body, "topsecret"))
	if third.Code != http.StatusOK {
		t.Fatalf("settled redelivery status = %d, want 200", third.Code)
	}
	if fetcher.calls != 2 {
		t.Fatalf("payment fetches after settled redelivery = %d, want 2", fetcher.calls)
	}
}

func TestMercadoPagoWebhookNoSecretSkipsValidation(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{payment: &mercadopago.Payment{
		ID:     "123",
		Status: mercadopago.PaymentStatusApproved,
	}}
	h := newWebhookHandlers(t, "", fetcher)

	recorder := postWebhook(h, []byte(`{"type":"payment","data":{"id":123}}`), "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 in degraded mode", recorder.Code)
	}
	if fetcher.calls != 1 {
		t.Fatalf("payment fetches = %d, want 1", fetcher.calls)
	}
}
