package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ovenline/pizzeria-orders/internal/catalog"
	"github.com/ovenline/pizzeria-orders/internal/directory"
	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
	"github.com/ovenline/pizzeria-orders/internal/domain/order"
	"github.com/ovenline/pizzeria-orders/internal/handler"
	"github.com/ovenline/pizzeria-orders/internal/notify"
	"github.com/ovenline/pizzeria-orders/internal/repository"
	"github.com/ovenline/pizzeria-orders/pkg/health"
	"github.com/ovenline/pizzeria-orders/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	healthSvc := health.NewService()
	healthSvc.Readiness("postgres", 5*time.Second, health.Ping(pool))
	healthSvc.Liveness("goroutines", time.Second, health.Goroutines(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories + coupon lookup cache.
	orderRepo := repository.NewOrderRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)
	couponStore, err := coupon.NewCachedStore(ctx, repository.NewCouponStore(pool), cfg.CouponCacheCapacity)
	if err != nil {
		return errors.Wrap(err, "create coupon store")
	}

	// External collaborators.
	catalogClient := catalog.NewClient(cfg.CatalogURL, cfg.Clients.CatalogTimeout)
	storeDirectory := directory.NewClient(cfg.StoreDirectoryURL, cfg.Clients.DirectoryTimeout)
	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotificationURL != "" {
		notifier = notify.NewClient(cfg.NotificationURL, cfg.Clients.NotifyTimeout)
	}

	// Domain service.
	validator := order.NewValidator(orderRepo, storeDirectory)
	orderTele, err := order.NewTelemetry(m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create order telemetry")
	}
	orderService := order.NewService(orderRepo, validator, catalogClient, couponStore, storeDirectory, notifier).
		WithTelemetry(orderTele)

	// HTTP surface: health endpoints stay unauthenticated, everything under
	// /api requires an API key.
	h := handler.NewHandler(orderService, apikeyRepo, []byte(cfg.APIKeyPepper))

	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveHandler)
	router.Get("/readyz", healthSvc.ReadyHandler)
	router.Mount("/api", h.Routes())

	handlerChain := httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.Origins,
			AllowedHeaders:   []string{"Content-Type", "Authorization", "api_key"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.APIKeyOrIP("api_key"),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(handlerChain, "pizzeria-orders",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
