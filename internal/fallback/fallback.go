// Package fallback implements the alternate-model policy from spec.md
// section 4.7: when the account pool has no usable account for the
// primary model, the dispatcher may retry once against a registered
// alternate, honoring family-thinking parity.
package fallback

import (
	"errors"

	"github.com/brightloop/antigravity-gateway/internal/registry"
)

// ErrNoAccount is the sentinel an attempt function returns when the
// account pool has no usable account for the requested model. Dispatch
// treats only this error as fallback-eligible; any other error aborts
// immediately.
var ErrNoAccount = errors.New("no account available for model")

// Resolve returns the fallback model id for primary, and false if primary
// is unknown to the registry or names no fallback.
func Resolve(primary string) (string, bool) {
	m, ok := registry.Lookup(primary)
	if !ok || m.FallbackID == "" {
		return "", false
	}
	return m.FallbackID, true
}

// Dispatch calls attempt with model first. If attempt fails with
// ErrNoAccount and enableFallback is true, it retries exactly once with
// the registry's alternate model, passing allowFallback=false so chains
// never exceed one hop (spec.md section 4.7).
func Dispatch[T any](model string, enableFallback bool, attempt func(model string, allowFallback bool) (T, error)) (T, error) {
	result, err := attempt(model, enableFallback)
	if err == nil || !errors.Is(err, ErrNoAccount) || !enableFallback {
		return result, err
	}
	alt, hasAlt := Resolve(model)
	if !hasAlt {
		return result, err
	}
	return attempt(alt, false)
}
