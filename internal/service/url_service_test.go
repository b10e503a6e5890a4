package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urlkit/gateway/internal/model"
	"github.com/urlkit/gateway/internal/repository"
	"github.com/urlkit/gateway/internal/validation"
)

// MockMappingStore mocks the persistence layer
type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingStore) GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error) {
	args := m.Called(ctx, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.URLMapping), args.Error(1)
}

func (m *MockMappingStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.URLMapping), args.Error(1)
}

func newTestService(store repository.MappingStore) *URLService {
	return NewURLService(
		store,
		validation.New(3, 2048),
		NewShortCodeGenerator(7),
		NewExpirationPolicy(365, 1, 3650),
		nil,
		slog.Default(),
		"https://urlk.it",
		3,
		time.Second,
	)
}

func expiryDays(t *testing.T, raw string) model.ExpiryDays {
	t.Helper()
	var d model.ExpiryDays
	require.NoError(t, d.UnmarshalJSON([]byte(raw)))
	return d
}

func TestURLService_CreateShortURL(t *testing.T) {
	ctx := context.Background()

	t.Run("creates mapping with requested lifetime", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		var persisted *model.URLMapping
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*model.URLMapping)
		}).Return(nil).Once()

		req := &model.CreateURLRequest{
			URL:           "https://example.com/path",
			ExpiresInDays: expiryDays(t, "30"),
			UserID:        "owner-1",
		}
		resp, err := svc.CreateShortURL(ctx, req, "req-1")
		require.NoError(t, err)

		require.NotNil(t, persisted)
		assert.Len(t, persisted.ShortCode, 7)
		assert.Equal(t, "https://example.com/path", persisted.OriginalURL)
		assert.Equal(t, "owner-1", persisted.OwnerID)
		assert.Equal(t, 30*86400*time.Second, persisted.ExpiresAt.Sub(persisted.CreatedAt))

		assert.Equal(t, "https://urlk.it/"+persisted.ShortCode, resp.ShortURL)
		assert.Equal(t, 30, resp.ExpiresInDays)
		assert.Equal(t, model.StatusActive, resp.Status)
		assert.Equal(t, "req-1", resp.RequestID)
		assert.Equal(t, FormatTimestamp(persisted.ExpiresAt), resp.ExpirationDate)
		assert.Equal(t, FormatTimestamp(persisted.CreatedAt), resp.CreatedAt)
		store.AssertExpectations(t)
	})

	t.Run("omitted lifetime defaults to 365 days", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		var persisted *model.URLMapping
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*model.URLMapping)
		}).Return(nil).Once()

		req := &model.CreateURLRequest{URL: "https://example.com"}
		resp, err := svc.CreateShortURL(ctx, req, "req-2")
		require.NoError(t, err)

		assert.Equal(t, 365, resp.ExpiresInDays)
		assert.Equal(t, 365*86400*time.Second, persisted.ExpiresAt.Sub(persisted.CreatedAt))
	})

	t.Run("out-of-range lifetime succeeds with the default", func(t *testing.T) {
		for _, raw := range []string{"0", "5000", "-1", `"not-a-number"`} {
			store := new(MockMappingStore)
			svc := newTestService(store)
			store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(nil).Once()

			req := &model.CreateURLRequest{
				URL:           "https://example.com",
				ExpiresInDays: expiryDays(t, raw),
			}
			resp, err := svc.CreateShortURL(ctx, req, "req-3")
			require.NoError(t, err, "expires_in_days=%s must not fail the request", raw)
			assert.Equal(t, 365, resp.ExpiresInDays, "expires_in_days=%s", raw)
		}
	})

	t.Run("rejected URL is never persisted", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		req := &model.CreateURLRequest{URL: "http://10.0.0.5/x"}
		_, err := svc.CreateShortURL(ctx, req, "req-4")

		var ruleErr *validation.RuleError
		require.ErrorAs(t, err, &ruleErr)
		store.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
	})

	t.Run("collision retries with a fresh independent candidate", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		var codes []string
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			codes = append(codes, args.Get(1).(*model.URLMapping).ShortCode)
		}).Return(repository.ErrCodeConflict).Once()
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			codes = append(codes, args.Get(1).(*model.URLMapping).ShortCode)
		}).Return(nil).Once()

		resp, err := svc.CreateShortURL(ctx, &model.CreateURLRequest{URL: "https://example.com"}, "req-5")
		require.NoError(t, err)

		require.Len(t, codes, 2)
		assert.NotEqual(t, codes[0], codes[1], "retry must draw a new candidate")
		assert.Contains(t, resp.ShortURL, codes[1])
		store.AssertExpectations(t)
	})

	t.Run("three collisions exhaust the retry cap", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(repository.ErrCodeConflict).Times(3)

		_, err := svc.CreateShortURL(ctx, &model.CreateURLRequest{URL: "https://example.com"}, "req-6")
		assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
		store.AssertNumberOfCalls(t, "PutIfAbsent", 3)
	})

	t.Run("identical requests produce distinct codes", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		var codes []string
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			codes = append(codes, args.Get(1).(*model.URLMapping).ShortCode)
		}).Return(nil).Twice()

		req := &model.CreateURLRequest{URL: "https://example.com/same", ExpiresInDays: expiryDays(t, "7")}
		_, err := svc.CreateShortURL(ctx, req, "req-7a")
		require.NoError(t, err)
		_, err = svc.CreateShortURL(ctx, req, "req-7b")
		require.NoError(t, err)

		require.Len(t, codes, 2)
		assert.NotEqual(t, codes[0], codes[1], "no content-based dedup")
	})

	t.Run("storage failure surfaces unchanged", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		_, err := svc.CreateShortURL(ctx, &model.CreateURLRequest{URL: "https://example.com"}, "req-8")
		assert.ErrorIs(t, err, assert.AnError)
		store.AssertNumberOfCalls(t, "PutIfAbsent", 1)
	})
}

func TestURLService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the original URL unchanged", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		mapping := &model.URLMapping{
			ShortCode:   "abc1234",
			OriginalURL: "https://example.com/Original?q=1",
			CreatedAt:   time.Now().UTC(),
			ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
		}
		store.On("GetActive", mock.Anything, "abc1234", mock.Anything).Return(mapping, nil).Once()

		url, err := svc.Resolve(ctx, "abc1234", "req-9")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/Original?q=1", url)
	})

	t.Run("never issued code maps to not found", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		store.On("GetActive", mock.Anything, "missing", mock.Anything).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.Resolve(ctx, "missing", "req-10")
		assert.ErrorIs(t, err, ErrURLNotFound)
	})

	t.Run("expired mapping maps to gone", func(t *testing.T) {
		store := new(MockMappingStore)
		svc := newTestService(store)

		store.On("GetActive", mock.Anything, "lapsed1", mock.Anything).Return(nil, repository.ErrExpired).Once()

		_, err := svc.Resolve(ctx, "lapsed1", "req-11")
		assert.ErrorIs(t, err, ErrURLGone)
	})
}

func TestURLService_ListByOwner(t *testing.T) {
	ctx := context.Background()
	store := new(MockMappingStore)
	svc := newTestService(store)

	now := time.Now().UTC()
	mappings := []*model.URLMapping{
		{ShortCode: "old0001", OriginalURL: "https://example.com/1", OwnerID: "owner-1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ShortCode: "new0001", OriginalURL: "https://example.com/2", OwnerID: "owner-1", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
	}
	store.On("ListByOwner", mock.Anything, "owner-1").Return(mappings, nil).Once()

	resp, err := svc.ListByOwner(ctx, "owner-1", "req-12")
	require.NoError(t, err)

	require.Len(t, resp.URLs, 2)
	assert.Equal(t, "https://urlk.it/old0001", resp.URLs[0].ShortURL)
	assert.Equal(t, model.StatusExpired, resp.URLs[0].Status)
	assert.Equal(t, model.StatusActive, resp.URLs[1].Status)
	assert.Equal(t, "req-12", resp.RequestID)
}
