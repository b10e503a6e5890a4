package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urlkit/gateway/internal/api"
	"github.com/urlkit/gateway/internal/config"
	"github.com/urlkit/gateway/internal/events"
	"github.com/urlkit/gateway/internal/middleware"
	"github.com/urlkit/gateway/internal/observability"
	"github.com/urlkit/gateway/internal/repository"
	"github.com/urlkit/gateway/internal/service"
	"github.com/urlkit/gateway/internal/validation"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// redisPinger adapts *redis.Client to api.CacheInterface.
type redisPinger struct{ client *redis.Client }

func (r *redisPinger) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// NewRouter initializes all dependencies and returns a configured Gin router.
// This is useful for testing where you don't need the full HTTP server.
func NewRouter(cfg *config.Config, db *pgxpool.Pool, cache *redis.Client, publisher events.Publisher, obs *observability.Observability) (*gin.Engine, error) {
	baseStore := repository.NewURLRepository(db)
	breakerStore := repository.NewBreakerStore(baseStore, "url-mappings")
	store := repository.NewCachedMappingStore(breakerStore, cache, cfg.Cache.TTL, obs.Logger)

	validator := validation.New(cfg.App.MinURLLength, cfg.App.MaxURLLength)
	generator := service.NewShortCodeGenerator(cfg.App.ShortCodeLength)
	expiry := service.NewExpirationPolicy(cfg.App.DefaultExpiryDays, cfg.App.MinExpiryDays, cfg.App.MaxExpiryDays)

	urlService := service.NewURLService(
		store,
		validator,
		generator,
		expiry,
		publisher,
		obs.Logger,
		cfg.App.BaseURL,
		cfg.App.ShortCodeRetries,
		cfg.App.StorageTimeout,
	)

	handler := api.NewHandler(urlService, db, &redisPinger{client: cache}, obs.Logger, obs.MetricsHandler)

	metrics, err := middleware.Metrics(obs.MeterProvider.Meter("github.com/urlkit/gateway"))
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(obs.Logger))
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName, otelgin.WithTracerProvider(obs.TracerProvider)))
	router.Use(metrics)

	handler.RegisterRoutes(router)
	return router, nil
}

// NewServer initializes all dependencies and returns a configured HTTP server.
// This includes the router plus HTTP server settings (timeouts, address, etc.).
func NewServer(cfg *config.Config, db *pgxpool.Pool, cache *redis.Client, publisher events.Publisher, obs *observability.Observability) (*http.Server, error) {
	router, err := NewRouter(cfg, db, cache, publisher, obs)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}
