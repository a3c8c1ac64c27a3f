package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/config"
	"warimas-orderflow/internal/db"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/graph"
	"warimas-orderflow/internal/httpapi"
	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/metrics"
	"warimas-orderflow/internal/middleware"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
	"warimas-orderflow/internal/storefront"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database *sql.DB
	if cfg.DBConfigured() {
		database = db.InitDB(cfg)
		defer database.Close()
	} else {
		logger.L().Warn("DB_HOST not set, checkout handoffs are kept in memory")
	}

	srv, err := newServer(ctx, cfg, database)
	if err != nil {
		logger.L().Fatal("failed to build server", zap.Error(err))
	}

	go func() {
		logger.L().Info("order flow server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

type storefrontHealth struct {
	Breaker string                `json:"breaker"`
	Calls   metrics.CallsSnapshot `json:"calls"`
}

// newServer wires the storefront client, the order tracker and the
// per-purchaser workspaces behind the HTTP router. A nil database keeps
// handoffs in memory.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (*http.Server, error) {
	client, err := storefront.NewClient(storefront.Config{
		BaseURL: cfg.StorefrontBaseURL,
		Timeout: cfg.StorefrontTimeout,
		RPS:     cfg.StorefrontRPS,
	})
	if err != nil {
		return nil, err
	}

	redirects, err := payment.NewRedirector(cfg.PaymentRedirectURL, cfg.PaymentSuccessURL, cfg.PaymentFailURL)
	if err != nil {
		return nil, err
	}

	var ledger checkout.Ledger = checkout.NewMemoryLedger()
	if database != nil {
		ledger = checkout.NewPostgresLedger(database)
	}

	bus := events.NewBus()
	feed := events.NewFeed(0)
	feed.Attach(bus)
	bus.Subscribe(events.KindCheckoutStageChanged, func(ctx context.Context, e events.Event) {
		logger.FromCtx(ctx).Info("checkout stage changed",
			zap.String("from", e.PrevStage),
			zap.String("to", e.Stage),
			zap.String("order_id", e.OrderID),
		)
	})

	tracker := order.NewTracker(client)

	reg := httpapi.NewRegistry(httpapi.RegistryDeps{
		Backend:   client,
		Ledger:    ledger,
		Tracker:   tracker,
		Redirects: redirects,
		Events:    bus,
		// A verification claim outlives the slowest storefront call.
		StaleAfter: checkout.StaleAfterFor(cfg.StorefrontTimeout),
	})

	h := httpapi.NewHandler(reg, tracker, feed, func() any {
		return storefrontHealth{
			Breaker: client.BreakerState(),
			Calls:   client.Stats(),
		}
	})

	schema := graph.NewSchema(&graph.Resolver{
		Registry: reg,
		Tracker:  tracker,
		Feed:     feed,
	})

	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		JWTSecret:   []byte(cfg.JWTSecret),
		InternalKey: cfg.InternalSecretKey,
		Limiter:     middleware.NewRateLimiter(ctx),
		GraphQL:     schema,
		Playground:  graph.Playground("/query"),
	})

	return &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
