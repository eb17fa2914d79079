package upstream

import (
	"net/http"

	"github.com/brightloop/antigravity-gateway/internal/message"
	"github.com/brightloop/antigravity-gateway/internal/registry"
)

// interleavedThinkingBeta is the Anthropic beta flag enabling interleaved
// thinking blocks between tool calls, sent for Claude thinking models.
const interleavedThinkingBeta = "interleaved-thinking-2025-05-14"

const fixedUserAgentHeader = "antigravity/1.0.0 gateway/go"

func buildHeaders(token, model string, streaming bool) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", fixedUserAgentHeader)
	if streaming {
		h.Set("Accept", "text/event-stream")
	} else {
		h.Set("Accept", "application/json")
	}
	if entry, ok := registry.Lookup(model); ok && entry.ThinkingCapable && entry.Family == message.FamilyClaude {
		h.Set("anthropic-beta", interleavedThinkingBeta)
	}
	return h
}
