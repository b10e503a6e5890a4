package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/urlkit/gateway/internal/model"
)

// ErrStorageUnavailable is returned while the circuit breaker is open
// and storage calls are being rejected without reaching the database.
var ErrStorageUnavailable = errors.New("storage unavailable")

// BreakerStore decorates a MappingStore with a circuit breaker. Domain
// outcomes (not found, expired, code conflict) count as successes; only
// real storage faults trip the breaker.
type BreakerStore struct {
	inner MappingStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner with a circuit breaker under the given name.
func NewBreakerStore(inner MappingStore, name string) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrExpired) ||
				errors.Is(err, ErrCodeConflict)
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (s *BreakerStore) PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.inner.PutIfAbsent(ctx, mapping)
	})
	return mapBreakerErr(err)
}

func (s *BreakerStore) GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error) {
	result, err := s.cb.Execute(func() (any, error) {
		return s.inner.GetActive(ctx, code, now)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return result.(*model.URLMapping), nil
}

func (s *BreakerStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error) {
	result, err := s.cb.Execute(func() (any, error) {
		return s.inner.ListByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return result.([]*model.URLMapping), nil
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

var _ MappingStore = (*BreakerStore)(nil)
