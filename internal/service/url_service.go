package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/urlkit/gateway/internal/events"
	"github.com/urlkit/gateway/internal/model"
	"github.com/urlkit/gateway/internal/repository"
	"github.com/urlkit/gateway/internal/validation"
)

var (
	ErrURLNotFound = errors.New("URL not found")
	ErrURLGone     = errors.New("URL has expired")
	// ErrCodeSpaceExhausted is returned when the bounded collision-retry
	// loop runs out of attempts without landing a unique code.
	ErrCodeSpaceExhausted = errors.New("unable to generate unique short URL")
)

// URLServiceInterface defines the contract for URL shortening operations.
type URLServiceInterface interface {
	CreateShortURL(ctx context.Context, req *model.CreateURLRequest, requestID string) (*model.CreateURLResponse, error)
	Resolve(ctx context.Context, code, requestID string) (string, error)
	ListByOwner(ctx context.Context, ownerID, requestID string) (*model.URLListResponse, error)
}

// URLService orchestrates validation, expiry policy, code generation
// and the store. It holds no per-request state; uniqueness comes
// entirely from the store's conditional insert.
type URLService struct {
	store          repository.MappingStore
	validator      *validation.Validator
	generator      *ShortCodeGenerator
	expiry         *ExpirationPolicy
	publisher      events.Publisher // nil when no broker is configured
	logger         *slog.Logger
	baseURL        string
	maxRetries     int
	storageTimeout time.Duration
}

// NewURLService creates a new URL service.
func NewURLService(
	store repository.MappingStore,
	validator *validation.Validator,
	generator *ShortCodeGenerator,
	expiry *ExpirationPolicy,
	publisher events.Publisher,
	logger *slog.Logger,
	baseURL string,
	maxRetries int,
	storageTimeout time.Duration,
) *URLService {
	return &URLService{
		store:          store,
		validator:      validator,
		generator:      generator,
		expiry:         expiry,
		publisher:      publisher,
		logger:         logger,
		baseURL:        baseURL,
		maxRetries:     maxRetries,
		storageTimeout: storageTimeout,
	}
}

// CreateShortURL validates the request, computes its lifetime and
// inserts a mapping under a fresh random code. Collisions retry with an
// independent candidate up to maxRetries times; nothing is persisted
// when the cap is exhausted.
func (s *URLService) CreateShortURL(ctx context.Context, req *model.CreateURLRequest, requestID string) (*model.CreateURLResponse, error) {
	if err := s.validator.Validate(req.URL); err != nil {
		s.logger.WarnContext(ctx, "URL validation failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, err
	}

	days := s.expiry.NormalizeDays(req.ExpiresInDays.Value())
	createdAt, expiresAt := s.expiry.ComputeTimestamps(time.Now(), days)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, err
		}

		mapping := &model.URLMapping{
			ShortCode:   code,
			OriginalURL: req.URL,
			OwnerID:     req.UserID,
			CreatedAt:   createdAt,
			ExpiresAt:   expiresAt,
		}

		err = s.putIfAbsent(ctx, mapping)
		if err != nil {
			if errors.Is(err, repository.ErrCodeConflict) {
				s.logger.WarnContext(ctx, "short code collision, retrying",
					slog.String("request_id", requestID),
					slog.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}

		s.logger.InfoContext(ctx, "created short URL",
			slog.String("request_id", requestID),
			slog.String("short_code", code),
			slog.Int("expiry_days", days))

		return &model.CreateURLResponse{
			ShortURL:       s.baseURL + "/" + code,
			OriginalURL:    mapping.OriginalURL,
			ExpirationDate: FormatTimestamp(expiresAt),
			ExpiresInDays:  days,
			Status:         model.StatusActive,
			CreatedAt:      FormatTimestamp(createdAt),
			RequestID:      requestID,
		}, nil
	}

	s.logger.ErrorContext(ctx, "exhausted retries generating unique short code",
		slog.String("request_id", requestID),
		slog.Int("attempts", s.maxRetries))
	return nil, ErrCodeSpaceExhausted
}

// Resolve maps a short code to its original URL. Present-but-expired
// mappings resolve to ErrURLGone so clients can tell "lapsed" from
// "never existed". The read itself has no side effects; the click event
// is published off the request path.
func (s *URLService) Resolve(ctx context.Context, code, requestID string) (string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	mapping, err := s.store.GetActive(storeCtx, code, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return "", ErrURLNotFound
		case errors.Is(err, repository.ErrExpired):
			return "", ErrURLGone
		default:
			return "", err
		}
	}

	s.publishClick(ctx, code, requestID)
	return mapping.OriginalURL, nil
}

// ListByOwner returns the owner's mappings oldest first.
func (s *URLService) ListByOwner(ctx context.Context, ownerID, requestID string) (*model.URLListResponse, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	mappings, err := s.store.ListByOwner(storeCtx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	urls := make([]model.URLSummary, 0, len(mappings))
	for _, m := range mappings {
		urls = append(urls, model.URLSummary{
			ShortURL:       s.baseURL + "/" + m.ShortCode,
			OriginalURL:    m.OriginalURL,
			CreatedAt:      FormatTimestamp(m.CreatedAt),
			ExpirationDate: FormatTimestamp(m.ExpiresAt),
			Status:         m.StatusAt(now),
		})
	}

	return &model.URLListResponse{URLs: urls, RequestID: requestID}, nil
}

// putIfAbsent bounds a single insert attempt with the per-attempt
// storage timeout.
func (s *URLService) putIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	return s.store.PutIfAbsent(storeCtx, mapping)
}

// publishClick emits the click event in the background. Failures are
// logged and never surfaced to the redirecting client.
func (s *URLService) publishClick(ctx context.Context, code, requestID string) {
	if s.publisher == nil {
		return
	}

	event := events.ClickEvent{
		ShortCode:  code,
		OccurredAt: FormatTimestamp(time.Now()),
		RequestID:  requestID,
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishClick(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish click event",
				slog.String("request_id", requestID),
				slog.String("short_code", code),
				slog.String("error", err.Error()))
		}
	}(context.WithoutCancel(ctx))
}

// Ensure URLService implements URLServiceInterface at compile time.
var _ URLServiceInterface = (*URLService)(nil)
