package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradein-backend/internal/bootstrap"
	"github.com/angelmondragon/tradein-backend/internal/cron"
	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/instance"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
	"github.com/angelmondragon/tradein-backend/pkg/migrate"
	"github.com/angelmondragon/tradein-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobs := flag.String("job", "", "comma separated job names to run with -once (default all)")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9102")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registerer := prometheus.NewRegistry()
	metricsCollector := metrics.NewCronJobMetrics(registerer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, domain, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr, registerer)
	}

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx, splitJobs(*jobs)...); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, domain *bootstrap.Domain, m *metrics.CronJobMetrics) (*cron.Registry, error) {
	tracking, err := cron.NewTrackingRefreshJob(cron.TrackingRefreshJobParams{
		Logger:    logg,
		Orders:    domain.Orders,
		Carrier:   domain.Shipping,
		Metrics:   m,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	labels, err := cron.NewExpiredLabelVoidJob(cron.ExpiredLabelVoidJobParams{
		Logger:    logg,
		Orders:    domain.Orders,
		Metrics:   m,
		LabelTTL:  cfg.Cron.LabelTTL,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	dormant, err := cron.NewDormantOrderCancelJob(cron.DormantOrderCancelJobParams{
		Logger:       logg,
		Orders:       domain.Orders,
		Metrics:      m,
		DormantAfter: cfg.Cron.DormantAfter,
		BatchSize:    cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewWholesaleExpiryJob(cron.WholesaleExpiryJobParams{
		Logger:    logg,
		Wholesale: domain.Wholesale,
		Metrics:   m,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	// Dormant cancellation runs before the label sweep so cancelled orders
	// have their labels voided in the same cycle.
	return cron.NewRegistry(tracking, dormant, labels, expiry)
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.WithoutCancel(ctx))
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func splitJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
