package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/modashopapp/modashop/internal/db"
)

// RequireAdmin guards the admin surface with a bearer token. The routes are
// only mounted when ADMIN_API_TOKEN is configured.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if h.config.AdminAPIToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.config.AdminAPIToken)) != 1 {
			h.loggerFromContext(r.Context()).Warn("rejected admin request", "path", r.URL.Path, "remote_ip", clientIP(r))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) orderIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return orderID, true
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(r.Context()).Error("failed to get order", "error", err, "order_id", orderID)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, order)
}

func (h *Handlers) AdminOrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	entries, err := h.orderService.History(r.Context(), orderID)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to get order history", "error", err, "order_id", orderID)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handlers) AdminConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.orderService.ConfirmDelivery(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, db.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, db.ErrInvalidStatusTransition):
			http.Error(w, "Order is not shipped", http.StatusConflict)
		default:
			h.loggerFromContext(r.Context()).Error("failed to confirm delivery", "error", err, "order_id", orderID)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "delivered"})
}

type updateTrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

func (h *Handlers) AdminUpdateTracking(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	var payload updateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TrackingNumber == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orderService.UpdateTracking(r.Context(), orderID, payload.TrackingNumber, payload.Carrier); err != nil {
		switch {
		case errors.Is(err, db.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, db.ErrInvalidStatusTransition):
			http.Error(w, "Order is not shipped", http.StatusConflict)
		default:
			h.loggerFromContext(r.Context()).Error("failed to update tracking", "error", err, "order_id", orderID)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type restockRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

func (h *Handlers) AdminRestock(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["product_id"]

	var payload restockRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity <= 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orderService.Restock(r.Context(), productID, payload.Size, payload.Quantity); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to restock", "error", err, "product_id", productID, "size", payload.Size)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "restocked"})
}

func (h *Handlers) AdminStockMovements(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["product_id"]

	movements, err := h.orderService.StockMovements(r.Context(), productID)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to get stock movements", "error", err, "product_id", productID)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"movements": movements})
}
