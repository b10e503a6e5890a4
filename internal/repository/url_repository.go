package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urlkit/gateway/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/urlkit/gateway/internal/repository")

// URLRepository is the PostgreSQL MappingStore.
type URLRepository struct {
	db *pgxpool.Pool
}

// NewURLRepository creates a new URL repository.
func NewURLRepository(db *pgxpool.Pool) *URLRepository {
	return &URLRepository{db: db}
}

// PutIfAbsent inserts a mapping and fails with ErrCodeConflict if the
// short code is already taken. Uniqueness comes from the primary key;
// there is no read-then-write window.
func (r *URLRepository) PutIfAbsent(ctx context.Context, mapping *model.URLMapping) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "url_mappings"),
			attribute.String("short_code", mapping.ShortCode),
		),
	)
	defer span.End()

	query := `
		INSERT INTO url_mappings (short_code, original_url, owner_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		mapping.ShortCode,
		mapping.OriginalURL,
		mapping.OwnerID,
		mapping.CreatedAt,
		mapping.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeConflict
		}
		span.RecordError(err)
		return err
	}

	return nil
}

// GetActive retrieves a mapping by short code and re-checks its expiry
// against now. A row that is physically present but past expires_at is
// reported as ErrExpired, never returned as valid; background eviction
// is advisory only.
func (r *URLRepository) GetActive(ctx context.Context, code string, now time.Time) (*model.URLMapping, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "url_mappings"),
			attribute.String("short_code", code),
		),
	)
	defer span.End()

	query := `
		SELECT short_code, original_url, owner_id, created_at, expires_at
		FROM url_mappings
		WHERE short_code = $1
	`
	var mapping model.URLMapping
	err := r.db.QueryRow(ctx, query, code).Scan(
		&mapping.ShortCode,
		&mapping.OriginalURL,
		&mapping.OwnerID,
		&mapping.CreatedAt,
		&mapping.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, err
	}

	if !mapping.ActiveAt(now) {
		return nil, ErrExpired
	}
	return &mapping, nil
}

// ListByOwner returns every mapping recorded for the owner, oldest
// first. Not on the create/resolve critical path.
func (r *URLRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.URLMapping, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "url_mappings"),
			attribute.String("owner_id", ownerID),
		),
	)
	defer span.End()

	query := `
		SELECT short_code, original_url, owner_id, created_at, expires_at
		FROM url_mappings
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	var mappings []*model.URLMapping
	for rows.Next() {
		var m model.URLMapping
		if err := rows.Scan(&m.ShortCode, &m.OriginalURL, &m.OwnerID, &m.CreatedAt, &m.ExpiresAt); err != nil {
			span.RecordError(err)
			return nil, err
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return mappings, nil
}
