package service

import "time"

// timestampLayout renders UTC timestamps with microsecond precision and
// an explicit Z suffix, e.g. 2022-01-01T00:00:00.000000Z.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// ExpirationPolicy computes creation and expiry timestamps from a
// requested lifetime in days. Out-of-range or missing input degrades to
// the default rather than failing the request.
type ExpirationPolicy struct {
	defaultDays int
	minDays     int
	maxDays     int
}

// NewExpirationPolicy creates a policy with the given default and bounds.
func NewExpirationPolicy(defaultDays, minDays, maxDays int) *ExpirationPolicy {
	return &ExpirationPolicy{
		defaultDays: defaultDays,
		minDays:     minDays,
		maxDays:     maxDays,
	}
}

// NormalizeDays returns the effective lifetime in days. supplied is
// false when the request carried no usable value (absent or
// non-numeric); anything outside the policy bounds also falls back to
// the default.
func (p *ExpirationPolicy) NormalizeDays(days int, supplied bool) int {
	if !supplied || days < p.minDays || days > p.maxDays {
		return p.defaultDays
	}
	return days
}

// ComputeTimestamps derives created_at and expires_at from now and the
// effective lifetime. created_at is UTC truncated to microseconds (the
// persisted precision) and expires_at is exactly days*86400 seconds
// later.
func (p *ExpirationPolicy) ComputeTimestamps(now time.Time, days int) (createdAt, expiresAt time.Time) {
	createdAt = now.UTC().Truncate(time.Microsecond)
	expiresAt = createdAt.Add(time.Duration(days) * 24 * time.Hour)
	return createdAt, expiresAt
}

// FormatTimestamp renders a timestamp in the wire format used by every
// response payload.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
