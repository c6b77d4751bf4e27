package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/modashopapp/modashop/internal/cache"
	"github.com/modashopapp/modashop/internal/config"
	"github.com/modashopapp/modashop/internal/db"
	"github.com/modashopapp/modashop/internal/email"
	"github.com/modashopapp/modashop/internal/handlers"
	"github.com/modashopapp/modashop/internal/logging"
	"github.com/modashopapp/modashop/internal/mercadopago"
	"github.com/modashopapp/modashop/internal/services"
	"github.com/modashopapp/modashop/internal/shipping"
	"github.com/modashopapp/modashop/internal/stock"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	ledger, err := stock.NewLedger(stock.Config{
		Provider: cfg.StockLedgerProvider,
		Pool:     database,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize stock ledger: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	orderLogStore := db.NewOrderLogStore(database)
	paymentClient := mercadopago.NewClient(cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken)

	registry, itemWeightKg, err := buildShippingRegistry(cfg, logger)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}
	orchestrator := services.NewShippingOrchestrator(registry, itemWeightKg, logger.With("component", "shipping_orchestrator"))

	var notifier services.Notifier
	if cfg.EmailProvider != "" {
		provider, err := email.NewProvider(email.Config{
			Provider: cfg.EmailProvider,
			APIKey:   cfg.EmailAPIKey,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize email provider: %w", err)
		}
		notifier = services.NewEmailNotifier(provider, cfg.ShopName, cfg.ShopBaseURL)
	} else {
		logger.Info("email provider not configured; order notifications disabled")
	}

	reconciler := services.NewPaymentReconciler(
		paymentClient,
		orderStore,
		orderLogStore,
		ledger,
		orchestrator,
		notifier,
		logger.With("component", "payment_reconciler"),
	)
	orderService := services.NewOrderService(
		orderStore,
		orderLogStore,
		ledger,
		notifier,
		logger.With("component", "order_service"),
	)

	if !cfg.WebhookSignatureEnforced() {
		logger.Warn("MERCADOPAGO_WEBHOOK_SECRET is not set; webhook signatures are not verified")
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:        cfg,
		DB:            database,
		CacheProvider: cacheProvider,
		Reconciler:    reconciler,
		OrderService:  orderService,
		Logger:        logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func buildShippingRegistry(cfg *config.Config, logger *slog.Logger) (*shipping.Registry, float64, error) {
	if cfg.ShippingConfigPath == "" {
		logger.Warn("SHIPPING_CONFIG_PATH is not set; carrier shipments disabled")
		var empty *shipping.Config
		return shipping.NewRegistry(), empty.ItemWeightKg(), nil
	}

	shippingCfg, err := shipping.LoadConfig(cfg.ShippingConfigPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load shipping config: %w", err)
	}

	registry, err := shipping.NewRegistryFromConfig(shippingCfg, 15*time.Second)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build carrier registry: %w", err)
	}
	if registry.Empty() {
		logger.Warn("shipping config has no carriers; carrier shipments disabled")
	}

	return registry, shippingCfg.ItemWeightKg(), nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		})
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
		}); err != nil {
			fallback := slog.New(handler)
			fallback.Warn("failed to initialize sentry; continuing without it", "error", err)
			return fallback
		}
		sentryHandler := sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelError},
			LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
		}.NewSentryHandler(context.Background())
		handler = logging.MultiHandler(handler, sentryHandler)
	}

	return slog.New(handler)
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
