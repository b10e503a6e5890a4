package repository

import (
	"context"
	"errors"
	"time"

	"github.com/urlkit/gateway/internal/model"
)

var (
	ErrNotFound     = errors.New("mapping not found")
	ErrExpired      = errors.New("mapping has expired")
	ErrCodeConflict = errors.New("short code already exists")
)

// MappingStore is the persistence contract for short URL mappings.
// PutIfAbsent is the sole concurrency-control primitive: it succeeds
// only when no mapping with the same short code exists. GetActive must
// re-check expires_at against now on every read, regardless of whether
// the backing store has already evicted the record.
type MappingStore interface {
	PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error
	GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error)
}
