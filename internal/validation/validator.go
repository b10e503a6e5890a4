// Package validation screens create requests before any mapping is
// persisted. Rules run in a fixed order and the first failure is the
// one reported; callers never see an aggregate.
package validation

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// RuleError names the single validation rule a URL violated.
type RuleError struct {
	msg string
}

func (e *RuleError) Error() string { return e.msg }

func newRuleError(format string, args ...any) *RuleError {
	return &RuleError{msg: fmt.Sprintf(format, args...)}
}

var (
	ErrURLLength     = &RuleError{msg: "URL length must be between 3 and 2048 characters"}
	ErrScheme        = &RuleError{msg: "URL must use HTTP or HTTPS protocol"}
	ErrMissingHost   = &RuleError{msg: "URL must include a valid domain"}
	ErrBlockedDomain = &RuleError{msg: "domain not allowed"}
	ErrBlockedTLD    = &RuleError{msg: "invalid top-level domain"}
	ErrPrivateIP     = &RuleError{msg: "private IP addresses not allowed"}
	ErrCredentials   = &RuleError{msg: "URLs containing credentials are not allowed"}
	ErrBadCharacters = &RuleError{msg: "URL contains invalid characters"}
)

// blockedDomains are rejected by substring match against the host,
// after lowercasing and port stripping.
var blockedDomains = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
	"::1",
	"internal",
	"local",
	"intranet",
	"private",
}

// blockedTLDs are reserved or test-only top-level domains.
var blockedTLDs = map[string]struct{}{
	"local":     {},
	"internal":  {},
	"localhost": {},
	"invalid":   {},
	"test":      {},
}

// suspiciousPatterns are matched against the lowercased URL as a whole:
// traversal sequences, embedded dangerous schemes, backslashes, hex
// escape prefixes and encoded control bytes.
var suspiciousPatterns = []string{
	"..//",
	"data:",
	"javascript:",
	"vbscript:",
	"file:",
	`\`,
	"0x",
	"%00",
	"%0d",
	"%0a",
}

// Validator applies the request-validation pipeline. A zero-cost value,
// built fresh wherever it is needed; it holds no mutable state.
type Validator struct {
	minLength int
	maxLength int
}

// New returns a Validator with the given URL length bounds.
func New(minLength, maxLength int) *Validator {
	return &Validator{minLength: minLength, maxLength: maxLength}
}

// Validate checks the raw URL against every rule in order and returns
// the first violation as a *RuleError. The URL is never normalized or
// rewritten; on success the caller persists it exactly as received.
func (v *Validator) Validate(raw string) error {
	// 1. Length bounds.
	if len(raw) < v.minLength || len(raw) > v.maxLength {
		return newRuleError("URL length must be between %d and %d characters", v.minLength, v.maxLength)
	}

	// 2. Must parse with an explicit http/https scheme.
	parsed, err := url.Parse(raw)
	if err != nil {
		return newRuleError("invalid URL format: %v", err)
	}
	if parsed.Scheme == "" || !strings.EqualFold(parsed.Scheme, "http") && !strings.EqualFold(parsed.Scheme, "https") {
		return ErrScheme
	}
	if parsed.Host == "" {
		return ErrMissingHost
	}

	// 3. Domain and TLD blocklists. Hostname() strips the port and any
	// IPv6 brackets.
	host := strings.ToLower(parsed.Hostname())
	for _, blocked := range blockedDomains {
		if strings.Contains(host, blocked) {
			return ErrBlockedDomain
		}
	}
	if i := strings.LastIndex(host, "."); i >= 0 {
		if _, ok := blockedTLDs[host[i+1:]]; ok {
			return ErrBlockedTLD
		}
	}

	// 4. IP-literal authorities must not point into private, loopback,
	// link-local, multicast or unspecified ranges. Hostname DNS
	// resolution is out of scope here.
	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
			addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
			return ErrPrivateIP
		}
	}

	// 5. Malicious-pattern filter: credentials in the authority,
	// traversal and embedded-scheme patterns, then a final sweep
	// rejecting anything outside printable ASCII.
	if parsed.User != nil {
		return ErrCredentials
	}
	lower := strings.ToLower(raw)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return newRuleError("URL contains suspicious pattern: %s", pattern)
		}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x21 || raw[i] > 0x7e {
			return ErrBadCharacters
		}
	}

	return nil
}
