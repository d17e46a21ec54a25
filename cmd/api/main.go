package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/tradein-backend/api"
	"github.com/angelmondragon/tradein-backend/api/routes"
	"github.com/angelmondragon/tradein-backend/internal/bootstrap"
	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	carrierwebhook "github.com/angelmondragon/tradein-backend/internal/webhooks/carrier"
	stripewebhook "github.com/angelmondragon/tradein-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/instance"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
	"github.com/angelmondragon/tradein-backend/pkg/migrate"
	"github.com/angelmondragon/tradein-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	domain, err := bootstrap.NewDomain(context.Background(), bootstrap.DomainParams{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build domain services", err)
		os.Exit(1)
	}
	defer func() {
		if err := domain.Close(); err != nil {
			logg.Error(context.Background(), "error closing domain adapters", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	processor, err := newWebhookProcessor(cfg, logg, dbClient, domain, metrics.NewWebhookMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to build webhook processor", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		Orders:      domain.Orders,
		Wholesale:   domain.Wholesale,
		Webhooks:    processor,
		Gatherer:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
	})
	server := api.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// newWebhookProcessor registers Stripe and, when a signing secret is set, the carrier source.
func newWebhookProcessor(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, domain *bootstrap.Domain, m *metrics.WebhookMetrics) (*webhooks.Processor, error) {
	stripeSource, err := stripewebhook.NewSource(stripewebhook.SourceParams{
		Verifier:  domain.Stripe,
		Orders:    domain.Orders,
		Wholesale: domain.Wholesale,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}
	sources := []webhooks.Source{stripeSource}

	if cfg.Shipping.WebhookSecret != "" {
		carrierSource, err := carrierwebhook.NewSource(cfg.Shipping.WebhookSecret, domain.Orders, logg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, carrierSource)
	} else {
		logg.Warn(context.Background(), "carrier webhook secret not set; carrier callbacks are disabled")
	}

	return webhooks.NewProcessor(webhooks.ProcessorParams{
		Store:   webhooks.NewDBStore(dbClient.DB()),
		Sources: sources,
		Logger:  logg,
		Metrics: m,
	})
}
