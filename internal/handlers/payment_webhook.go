package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/modashopapp/modashop/internal/cache"
	"github.com/modashopapp/modashop/internal/mercadopago"
)

// webhookIdempotencyTTL is how long settled payment ids are kept for
// deduplication. The gateway notifies the same payment id on every status
// change, so only terminal outcomes are cached; a pending notification must
// never block the approved one that follows it.
const webhookIdempotencyTTL = 24 * time.Hour

// MercadoPagoWebhook ingests payment notifications. The gateway retries
// deliveries until it sees a 2xx, so every acknowledged outcome, including
// events we deliberately ignore, answers 200.
func (h *Handlers) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := mercadopago.ReadWebhookEvent(r, h.config.MercadoPagoWebhookSecret)
	if err != nil {
		if errors.Is(err, mercadopago.ErrInvalidSignature) {
			logger.Warn("rejected webhook with invalid signature", "error", err, "remote_ip", clientIP(r))
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
		// A malformed body can never become valid; 4xx stops the
		// gateway from redelivering it.
		logger.Error("failed to read webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event.Type != mercadopago.EventTypePayment || event.Data.ID == "" {
		logger.Info("ignoring webhook event", "type", event.Type, "data_id", event.Data.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	cacheKey := cache.EventKey("mercadopago", event.Data.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("payment already settled", "payment_id", event.Data.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	status, processErr := h.reconciler.HandlePaymentEvent(ctx, event.Data.ID)
	if processErr != nil {
		if errors.Is(processErr, mercadopago.ErrUpstreamUnavailable) {
			logger.Warn("payment lookup unavailable; requesting redelivery", "error", processErr, "payment_id", event.Data.ID)
			http.Error(w, "Payment provider unavailable", http.StatusBadGateway)
			return
		}
		logger.Error("failed to process payment event", "error", processErr, "payment_id", event.Data.ID)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	if mercadopago.IsTerminalStatus(status) {
		if err := h.cacheProvider.Set(ctx, cacheKey, status, webhookIdempotencyTTL); err != nil {
			logger.Error("failed to mark payment as settled in cache", "error", err, "payment_id", event.Data.ID)
		}
	}

	w.WriteHeader(http.StatusOK)
}
