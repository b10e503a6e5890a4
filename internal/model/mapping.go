package model

import (
	"bytes"
	"strconv"
	"time"
)

// Mapping statuses derived from expires_at; never stored.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// URLMapping is a short code bound to an original URL. Mappings are
// created once and never mutated; expiry is decided by comparing
// ExpiresAt against the current time on every read.
type URLMapping struct {
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ActiveAt reports whether the mapping is still active at the given time.
func (m *URLMapping) ActiveAt(now time.Time) bool {
	return now.Before(m.ExpiresAt)
}

// StatusAt returns the derived status string at the given time.
func (m *URLMapping) StatusAt(now time.Time) string {
	if m.ActiveAt(now) {
		return StatusActive
	}
	return StatusExpired
}

// ExpiryDays carries the raw expires_in_days field of a create request.
// It accepts a JSON number or a numeric string; anything else (null,
// fractions, garbage) is recorded as unset so the policy default applies
// instead of failing the request.
type ExpiryDays struct {
	days int
	set  bool
}

// Value returns the parsed day count and whether one was supplied.
func (d ExpiryDays) Value() (int, bool) {
	return d.days, d.set
}

// UnmarshalJSON never reports an error: a value that does not parse as a
// whole number simply leaves the field unset.
func (d *ExpiryDays) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	if float64(n) != f {
		return nil
	}
	d.days = n
	d.set = true
	return nil
}

// CreateURLRequest is the body of POST /urls.
type CreateURLRequest struct {
	URL           string     `json:"url" binding:"required"`
	ExpiresInDays ExpiryDays `json:"expires_in_days"`
	UserID        string     `json:"user_id,omitempty"`
}

// CreateURLResponse is the success payload for a created short URL.
type CreateURLResponse struct {
	ShortURL       string `json:"short_url"`
	OriginalURL    string `json:"original_url"`
	ExpirationDate string `json:"expiration_date"`
	ExpiresInDays  int    `json:"expires_in_days"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	RequestID      string `json:"request_id"`
}

// URLSummary is one entry of an owner listing.
type URLSummary struct {
	ShortURL       string `json:"short_url"`
	OriginalURL    string `json:"original_url"`
	CreatedAt      string `json:"created_at"`
	ExpirationDate string `json:"expiration_date"`
	Status         string `json:"status"`
}

// URLListResponse is the payload of GET /urls?user_id=.
type URLListResponse struct {
	URLs      []URLSummary `json:"urls"`
	RequestID string       `json:"request_id"`
}

// ErrorResponse is the envelope for every non-success payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}
