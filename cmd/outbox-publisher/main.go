package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/instance"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/migrate"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/tradedesk-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox relay exited", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.AutoMigrate(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	relay, err := NewRelay(cfg.Outbox, RelayDeps{
		Logger:   logg,
		Store:    dbClient,
		Broker:   pubsubClient,
		Queue:    outbox.NewRepository(dbClient.DB()),
		DLQ:      outbox.NewDLQRepository(dbClient.DB()),
		Registry: eventRegistry,
		Metrics:  metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("create outbox relay: %w", err)
	}

	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(ctx, logg, cfg, reg)
		defer stopMetrics()
	}

	logg.Info(logg.WithField(ctx, "topics", eventRegistry.Topics()), "starting outbox relay")
	err = relay.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logg.Info(ctx, "outbox relay shut down")
		return nil
	}
	return err
}

// serveMetrics exposes reg on the app port and returns a shutdown func.
func serveMetrics(ctx context.Context, logg *logger.Logger, cfg *config.Config, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
