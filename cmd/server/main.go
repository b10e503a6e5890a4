package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urlkit/gateway/internal/config"
	"github.com/urlkit/gateway/internal/events"
	"github.com/urlkit/gateway/internal/infra"
	"github.com/urlkit/gateway/internal/observability"
	"github.com/urlkit/gateway/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Setup(ctx, observability.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to setup observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger

	// Connect to database
	db, err := infra.NewPostgresPool(ctx, cfg.Database.ConnectionString())
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Connect to cache; the gateway still serves without it
	cache, err := infra.NewCacheClient(ctx, cfg.Cache.ConnectionString())
	if err != nil {
		logger.Warn("cache unavailable, serving without it", slog.String("error", err.Error()))
		cache = nil
	} else {
		defer cache.Close()
	}

	// Click-event publisher is optional
	var publisher events.Publisher
	if cfg.Broker.URL != "" {
		conn, err := infra.NewBrokerConnection(cfg.Broker.URL)
		if err != nil {
			logger.Warn("broker unavailable, click events disabled", slog.String("error", err.Error()))
		} else {
			defer conn.Close()
			p, err := events.NewAMQPPublisher(conn)
			if err != nil {
				logger.Warn("publisher setup failed, click events disabled", slog.String("error", err.Error()))
			} else {
				defer p.Close()
				publisher = p
			}
		}
	}

	srv, err := server.NewServer(cfg, db, cache, publisher, obs)
	if err != nil {
		logger.Error("failed to build server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server exited gracefully")
}
