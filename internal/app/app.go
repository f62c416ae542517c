package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/cart"
	"github.com/keysforall/cart-service/internal/catalog"
	"github.com/keysforall/cart-service/internal/checkout"
	"github.com/keysforall/cart-service/internal/handler"
	"github.com/keysforall/cart-service/internal/payments"
	"github.com/keysforall/cart-service/internal/repository"
	"github.com/keysforall/cart-service/internal/shipping"
	"github.com/keysforall/cart-service/internal/storage/redisstore"
	"github.com/keysforall/cart-service/pkg/health"
	"github.com/keysforall/cart-service/pkg/httpmiddleware"
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

	// Redis: cart persistence and cross-context change notifications.
	rds, err := redisstore.Open(ctx, cfg.RedisURL, lg.Named("redis"))
	if err != nil {
		return errors.Wrap(err, "open redis")
	}
	defer func() { _ = rds.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck(rds))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Catalog pre-filter: a snapshot of known variants screens out lookups
	// that cannot match. Built best-effort; without it every add hits the
	// database.
	var filter *catalog.Filter
	if listings, err := catalogRepo.List(ctx); err != nil {
		lg.Warn("Catalog filter disabled", zap.Error(err))
	} else {
		filter = catalog.NewFilter(listings)
	}

	// Outbound clients and domain services.
	shipClient := shipping.NewClient(cfg.ShippingBaseURL)
	payClient := payments.NewHTTPClient(cfg.Payments.BaseURL, cfg.Payments.APIKey)

	checkoutSvc := checkout.NewService(
		checkout.Config{
			SuccessURL: cfg.Checkout.SuccessURL,
			CancelURL:  cfg.Checkout.CancelURL,
		},
		catalogRepo, shipClient, payClient, orderRepo,
	)

	carts := cart.NewManager(rds, rds, lg.Named("cart"))
	carts.StartCleanup(ctx, cfg.SessionIdleTTL)

	h := handler.New(carts, catalogRepo, filter, shipClient, checkoutSvc)
	h.StartCleanup(ctx, cfg.SessionIdleTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("cart-api", m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

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
