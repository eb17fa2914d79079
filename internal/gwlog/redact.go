package gwlog

import (
	"encoding/json"
	"strings"
)

const redactedValue = "[REDACTED]"

// RedactJSON returns body with values under sensitive keys (tokens,
// secrets, authorization headers echoed into a body, etc.) replaced, for
// safe inclusion in debug-level log lines. Non-JSON input passes through
// unchanged.
func RedactJSON(body []byte) []byte {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || (!strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[")) {
		return body
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return body
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSensitiveKey(k) {
				t[k] = redactedValue
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.Contains(k, "authorization"),
		strings.Contains(k, "cookie"),
		strings.Contains(k, "api_key"),
		strings.Contains(k, "apikey"),
		strings.Contains(k, "secret"),
		strings.Contains(k, "token"),
		strings.Contains(k, "password"),
		strings.Contains(k, "refresh"):
		return true
	default:
		return false
	}
}

// MaskQuery redacts sensitive query-string parameter values (api keys
// passed as ?key=... on legacy clients) before a URL is logged.
func MaskQuery(raw string) string {
	if raw == "" {
		return raw
	}
	parts := strings.Split(raw, "&")
	for i, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && isSensitiveKey(kv[0]) {
			parts[i] = kv[0] + "=" + redactedValue
		}
	}
	return strings.Join(parts, "&")
}
