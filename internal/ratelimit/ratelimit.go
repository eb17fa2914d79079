// Package ratelimit extracts a retry delay from an upstream 429 response,
// per spec.md section 4.6: either a Retry-After header (seconds or an
// HTTP-date) or a resetAt field buried in the JSON error body.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultCooldown is used when neither the headers nor the body name a
// delay (spec.md Design Notes: "an implementer should make it configurable
// with a documented default... rather than hard-code" the base duration;
// this is that default, overridable via internal/config).
const DefaultCooldown = 60 * time.Second

// MaxBackoffMultiplier caps the exponential backoff applied on consecutive
// 429s for the same account/model pair.
const MaxBackoffMultiplier = 8

// ParseRetryDelay returns how long to cool the account down for, given the
// response headers and raw JSON body of a 429. It never returns less than
// minimum.
func ParseRetryDelay(header http.Header, body []byte, minimum time.Duration) time.Duration {
	if d, ok := fromRetryAfterHeader(header); ok && d > minimum {
		return d
	}
	if d, ok := fromResetAtBody(body); ok && d > minimum {
		return d
	}
	return minimum
}

func fromRetryAfterHeader(header http.Header) (time.Duration, bool) {
	v := header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// fromResetAtBody looks for a handful of field names the upstream (and its
// documented error variants) use for an absolute or relative reset time:
// a top-level or nested "resetAt" (RFC3339 or unix seconds), or
// error.details[].retryDelay (a "123s"-style duration string, Google's own
// convention for RPC quota errors).
func fromResetAtBody(body []byte) (time.Duration, bool) {
	if len(body) == 0 {
		return 0, false
	}
	if r := gjson.GetBytes(body, "resetAt"); r.Exists() {
		if d, ok := parseResetValue(r); ok {
			return d, true
		}
	}
	if r := gjson.GetBytes(body, "error.resetAt"); r.Exists() {
		if d, ok := parseResetValue(r); ok {
			return d, true
		}
	}
	for _, d := range gjson.GetBytes(body, "error.details").Array() {
		if rd := d.Get("retryDelay"); rd.Exists() {
			if dur, ok := parseDurationString(rd.String()); ok {
				return dur, true
			}
		}
	}
	return 0, false
}

func parseResetValue(r gjson.Result) (time.Duration, bool) {
	if r.Type == gjson.Number {
		t := time.Unix(r.Int(), 0)
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, false
	}
	if t, err := time.Parse(time.RFC3339, r.String()); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func parseDurationString(s string) (time.Duration, bool) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// BackoffMultiplier returns the cooldown multiplier for the given count of
// consecutive 429s, doubling each time up to MaxBackoffMultiplier.
func BackoffMultiplier(consecutive429s int) int {
	if consecutive429s <= 0 {
		return 1
	}
	mult := 1
	for i := 0; i < consecutive429s; i++ {
		mult *= 2
		if mult >= MaxBackoffMultiplier {
			return MaxBackoffMultiplier
		}
	}
	return mult
}
