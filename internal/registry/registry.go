// Package registry holds the static table of upstream model identifiers
// the gateway knows about, per SPEC_FULL.md section 3's Model registry
// entry: id, family, thinking capability, and fallback target. It backs
// GET /v1/models, the fallback model policy (internal/fallback), and the
// interleaved-thinking beta header decision in the upstream client.
package registry

import "github.com/brightloop/antigravity-gateway/internal/message"

// Model is one entry in the static registry.
type Model struct {
	ID              string
	Family          message.Family
	ThinkingCapable bool
	ContextWindow   int
	// FallbackID names the alternate model the fallback policy substitutes
	// when no account is available for ID. Honors family-thinking parity:
	// a thinking model only ever falls back to another thinking model.
	FallbackID string
}

// Models is the fixed registry. Context window figures are nominal; the
// gateway never enforces them, it only reports them via GET /v1/models.
var Models = []Model{
	{ID: "claude-opus-4-1", Family: message.FamilyClaude, ThinkingCapable: true, ContextWindow: 200_000, FallbackID: "gemini-2.5-pro"},
	{ID: "claude-sonnet-4-5", Family: message.FamilyClaude, ThinkingCapable: true, ContextWindow: 200_000, FallbackID: "gemini-2.5-pro"},
	{ID: "claude-sonnet-4-5-no-thinking", Family: message.FamilyClaude, ThinkingCapable: false, ContextWindow: 200_000, FallbackID: "gemini-2.5-flash"},
	{ID: "claude-haiku-4-5", Family: message.FamilyClaude, ThinkingCapable: false, ContextWindow: 200_000, FallbackID: "gemini-2.5-flash"},
	{ID: "gemini-2.5-pro", Family: message.FamilyGemini, ThinkingCapable: true, ContextWindow: 1_000_000, FallbackID: "claude-sonnet-4-5"},
	{ID: "gemini-2.5-flash", Family: message.FamilyGemini, ThinkingCapable: false, ContextWindow: 1_000_000, FallbackID: "claude-haiku-4-5"},
}

var byID = buildIndex()

func buildIndex() map[string]Model {
	idx := make(map[string]Model, len(Models))
	for _, m := range Models {
		idx[m.ID] = m
	}
	return idx
}

// Lookup returns the registry entry for id, and false if id is unknown.
func Lookup(id string) (Model, bool) {
	m, ok := byID[id]
	return m, ok
}

// Family returns the model family for id, defaulting to FamilyGemini for
// an unknown id (the upstream's native dialect).
func Family(id string) message.Family {
	if m, ok := byID[id]; ok {
		return m.Family
	}
	return message.FamilyGemini
}

// IDs returns every known model id, for GET /v1/models.
func IDs() []string {
	ids := make([]string, 0, len(Models))
	for _, m := range Models {
		ids = append(ids, m.ID)
	}
	return ids
}
