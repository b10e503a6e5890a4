package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urlkit/gateway/internal/model"
)

// flakyStore fails every call until healed.
type flakyStore struct {
	failing bool
	calls   int
}

var errStorageDown = errors.New("connection refused")

func (f *flakyStore) PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	f.calls++
	if f.failing {
		return errStorageDown
	}
	return nil
}

func (f *flakyStore) GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error) {
	f.calls++
	if f.failing {
		return nil, errStorageDown
	}
	if code == "lapsed1" {
		return nil, ErrExpired
	}
	if code == "missing" {
		return nil, ErrNotFound
	}
	return &model.URLMapping{ShortCode: code, OriginalURL: "https://example.com"}, nil
}

func (f *flakyStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error) {
	f.calls++
	if f.failing {
		return nil, errStorageDown
	}
	return nil, nil
}

func TestBreakerStore_PassesThroughDomainOutcomes(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore(&flakyStore{}, "test")

	_, err := store.GetActive(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetActive(ctx, "lapsed1", time.Now())
	assert.ErrorIs(t, err, ErrExpired)

	got, err := store.GetActive(ctx, "abc1234", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "abc1234", got.ShortCode)
}

func TestBreakerStore_DomainOutcomesNeverTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore(&flakyStore{}, "test")

	// Far more misses than the trip threshold.
	for i := 0; i < 20; i++ {
		_, err := store.GetActive(ctx, "missing", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{failing: true}
	store := NewBreakerStore(inner, "test")

	for i := 0; i < 5; i++ {
		err := store.PutIfAbsent(ctx, &model.URLMapping{ShortCode: "abc1234"})
		assert.ErrorIs(t, err, errStorageDown)
	}

	// Breaker is now open: calls are rejected without reaching storage.
	callsBefore := inner.calls
	err := store.PutIfAbsent(ctx, &model.URLMapping{ShortCode: "abc1234"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, callsBefore, inner.calls)

	_, err = store.GetActive(ctx, "abc1234", time.Now())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
