package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/modashopapp/modashop/internal/config"
	"github.com/modashopapp/modashop/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.MetricsContext)
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/webhooks/mercadopago", h.MercadoPagoWebhook).Methods("POST").Name("webhooks.mercadopago")

	// Admin routes are only mounted when a token is configured.
	if s.cfg.AdminAPIToken != "" {
		adminRouter := r.PathPrefix("/admin").Subrouter()
		adminRouter.Use(h.RequireAdmin)
		adminRouter.HandleFunc("/orders/{id}", h.AdminGetOrder).Methods("GET").Name("admin.orders.get")
		adminRouter.HandleFunc("/orders/{id}/history", h.AdminOrderHistory).Methods("GET").Name("admin.orders.history")
		adminRouter.HandleFunc("/orders/{id}/delivered", h.AdminConfirmDelivery).Methods("POST").Name("admin.orders.delivered")
		adminRouter.HandleFunc("/orders/{id}/tracking", h.AdminUpdateTracking).Methods("POST").Name("admin.orders.tracking")
		adminRouter.HandleFunc("/stock/{product_id}/restock", h.AdminRestock).Methods("POST").Name("admin.stock.restock")
		adminRouter.HandleFunc("/stock/{product_id}/movements", h.AdminStockMovements).Methods("GET").Name("admin.stock.movements")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
