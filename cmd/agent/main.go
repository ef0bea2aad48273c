package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sensoragent/internal/broker"
	"github.com/JonMunkholm/sensoragent/internal/config"
	"github.com/JonMunkholm/sensoragent/internal/datasource"
	"github.com/JonMunkholm/sensoragent/internal/logging"
	"github.com/JonMunkholm/sensoragent/internal/publisher"
	"github.com/JonMunkholm/sensoragent/internal/telemetry"
	"github.com/JonMunkholm/sensoragent/internal/web"
)

const serviceName = "sensoragent"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Seed the environment from .env and .env.<APP_ENVIRONMENT>
	files, err := config.LoadEnvFiles(".")
	if err != nil {
		slog.Error("failed to load env files", "error", err)
		os.Exit(1)
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"environment", cfg.Environment,
		"env_files", files,
		"config", cfg.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("agent stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("agent stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, version, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	client, err := broker.Dial(ctx, cfg.MQTT, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	monitor := publisher.NewMonitor(cfg.Data.ReadMode, client.Topic())
	ds := datasource.New(osfs.New(cfg.Data.Dir),
		cfg.Data.AccelerometerFile,
		cfg.Data.GpsFile,
		datasource.WithObserver(datasource.Observers(monitor, telemetry.NewObserver(logger, nil))),
	)
	pub := publisher.New(publisher.NewSource(ds, cfg.Data.ReadMode), client, cfg.Publisher.Delay,
		publisher.WithMonitor(monitor),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pub.Run(gctx)
	})

	if cfg.Status.Enabled {
		server := web.NewServer(monitor)
		g.Go(func() error {
			return server.Start(cfg.Status.Addr())
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
