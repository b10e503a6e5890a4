package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urlkit/gateway/internal/middleware"
	"github.com/urlkit/gateway/internal/model"
	"github.com/urlkit/gateway/internal/service"
	"github.com/urlkit/gateway/internal/validation"
)

// Handler holds HTTP handlers and dependencies.
// It follows the dependency injection pattern, receiving
// interfaces rather than concrete implementations for testability.
type Handler struct {
	urlService     service.URLServiceInterface // URL mapping business logic
	db             DBInterface                 // Database connection for health checks
	cache          CacheInterface              // Cache connection for health checks
	logger         *slog.Logger                // Structured logger for validation/error logging
	metricsHandler http.Handler                // Prometheus exposition endpoint, may be nil
}

// DBInterface defines the database operations needed by the handler.
// This interface allows for easy mocking in unit tests without
// requiring a real database connection.
type DBInterface interface {
	Ping(ctx context.Context) error // Check database connectivity
	Close()                         // Close database connection
}

// CacheInterface defines the cache operations needed by the handler.
type CacheInterface interface {
	Ping(ctx context.Context) error
}

// NewHandler creates a new handler instance with the provided dependencies.
func NewHandler(urlService service.URLServiceInterface, db DBInterface, cache CacheInterface, logger *slog.Logger, metricsHandler http.Handler) *Handler {
	return &Handler{
		urlService:     urlService,
		db:             db,
		cache:          cache,
		logger:         logger,
		metricsHandler: metricsHandler,
	}
}

// RegisterRoutes registers all route definitions on the given Gin engine.
// The caller is responsible for creating the engine and adding middleware
// before calling this method, so middleware runs in the correct order.
// The public redirect route is registered last to avoid conflicts.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)
	if h.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.metricsHandler))
	}

	r.POST("/urls", h.createShortURL) // Create short URL
	r.GET("/urls", h.listByOwner)     // List an owner's URLs

	// Redirect route (public) - must be last to avoid conflicts
	r.GET("/:code", h.redirect)
}

// healthCheck handles GET /health
// Response codes:
//   - 200 OK: All dependencies are healthy
//   - 503 Service Unavailable: One or more dependencies are down
func (h *Handler) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	cacheErr := h.cache.Ping(ctx)
	dbErr := h.db.Ping(ctx)

	status := "ok"
	code := http.StatusOK
	deps := gin.H{"cache": "up", "database": "up"}

	if cacheErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["cache"] = "down"
	}
	if dbErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["database"] = "down"
	}

	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}

// createShortURL handles POST /urls
// Request body: CreateURLRequest (JSON)
// Response codes:
//   - 201 Created: Short URL successfully created
//   - 400 Bad Request: Malformed body or URL rejected by validation
//   - 409 Conflict: Could not land a unique code within the retry cap
//   - 500 Internal Server Error: Storage or unexpected failure
func (h *Handler) createShortURL(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	var req model.CreateURLRequest

	// Bind and validate JSON request body. Transport-level parse
	// failures are reported here, before any domain rule runs.
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.urlService.CreateShortURL(ctx, &req, requestID)
	if err != nil {
		// Map service errors to appropriate HTTP status codes. A
		// validation failure reports the single violated rule.
		var ruleErr *validation.RuleError
		switch {
		case errors.As(err, &ruleErr):
			h.errorResponse(c, http.StatusBadRequest, ruleErr.Error())
		case errors.Is(err, service.ErrCodeSpaceExhausted):
			h.errorResponse(c, http.StatusConflict, "Unable to generate unique short URL")
		default:
			h.logger.ErrorContext(ctx, "unexpected error creating short URL",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.noStore(c)
	c.JSON(http.StatusCreated, resp)
}

// listByOwner handles GET /urls?user_id=
// Response codes:
//   - 200 OK: Listing returned, oldest mapping first
//   - 400 Bad Request: Missing user_id
//   - 500 Internal Server Error: Storage failure
func (h *Handler) listByOwner(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	ownerID := c.Query("user_id")
	if ownerID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	resp, err := h.urlService.ListByOwner(ctx, ownerID, requestID)
	if err != nil {
		h.logger.ErrorContext(ctx, "unexpected error listing URLs",
			slog.String("request_id", requestID),
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.noStore(c)
	c.JSON(http.StatusOK, resp)
}

// redirect handles GET /:code
// Response codes:
//   - 302 Found: Redirects to the original URL
//   - 404 Not Found: Short code was never issued
//   - 410 Gone: Mapping existed but has lapsed
//   - 500 Internal Server Error: Storage failure
func (h *Handler) redirect(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)
	code := c.Param("code")

	url, err := h.urlService.Resolve(ctx, code, requestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrURLNotFound):
			h.errorResponse(c, http.StatusNotFound, "URL not found")
		case errors.Is(err, service.ErrURLGone):
			h.errorResponse(c, http.StatusGone, "URL has expired")
		default:
			h.logger.ErrorContext(ctx, "unexpected error during redirect",
				slog.String("request_id", requestID),
				slog.String("code", code),
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	// 302 keeps intermediaries from caching the redirect, so expiry
	// stays enforceable on every resolve.
	h.noStore(c)
	c.Redirect(http.StatusFound, url)
}

// errorResponse sends the standard error envelope with the request's
// correlation identifier.
func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	h.noStore(c)
	c.JSON(status, model.ErrorResponse{
		Error:     message,
		RequestID: middleware.GetRequestID(c),
	})
}

func (h *Handler) noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
}
