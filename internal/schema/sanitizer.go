// Package schema sanitizes client-supplied JSON Schema tool declarations
// into the subset the upstream Cloud Code service accepts. See spec.md
// section 4.1 for the exhaustive rule list.
package schema

import "sort"

// allowedFormats is the set of "format" values the upstream tolerates on a
// string schema. Anything else is dropped rather than rejected outright,
// since format is advisory.
var allowedFormats = map[string]struct{}{
	"date-time": {},
	"date":      {},
	"time":      {},
	"duration":  {},
	"email":     {},
	"uri":       {},
	"uuid":      {},
}

// droppedKeywords are stripped unconditionally at every level of the
// schema tree: the upstream either rejects them or silently ignores them,
// and passing them through only risks a 400 from a stricter deployment.
var droppedKeywords = map[string]struct{}{
	"$schema": {},
	"$id":     {},
}

// Sanitize walks a JSON Schema object (as produced by encoding/json
// unmarshaling into map[string]any) and returns a copy the upstream
// accepts. Sanitize is pure and idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s map[string]any) map[string]any {
	if s == nil {
		return nil
	}
	defs := collectDefs(s)
	out := sanitizeNode(s, defs)
	if m, ok := out.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func collectDefs(s map[string]any) map[string]any {
	defs := map[string]any{}
	for _, key := range []string{"$defs", "definitions"} {
		if raw, ok := s[key].(map[string]any); ok {
			for name, def := range raw {
				defs[name] = def
			}
		}
	}
	return defs
}

func sanitizeNode(node any, defs map[string]any) any {
	switch v := node.(type) {
	case map[string]any:
		return sanitizeObject(v, defs)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeNode(item, defs)
		}
		return out
	default:
		return v
	}
}

func sanitizeObject(obj map[string]any, defs map[string]any) any {
	if ref, ok := obj["$ref"].(string); ok {
		if inlined, ok := inlineRef(ref, defs); ok {
			return sanitizeNode(inlined, defs)
		}
		// External or unresolvable $ref: drop it, leaving whatever sibling
		// keywords remain (usually none — an empty schema accepts anything).
		delete(obj, "$ref")
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		switch k {
		case "$schema", "$id", "$defs", "definitions":
			continue
		case "format":
			if str, ok := v.(string); ok {
				if _, allowed := allowedFormats[str]; !allowed {
					continue
				}
			}
			out[k] = v
		case "exclusiveMinimum", "exclusiveMaximum":
			// Boolean-form exclusiveMinimum/Maximum (draft-04 style) isn't
			// accepted upstream; numeric form is left as-is.
			if _, isBool := v.(bool); isBool {
				continue
			}
			out[k] = sanitizeNode(v, defs)
		case "additionalProperties":
			if !additionalPropertiesAllowed(obj) {
				continue
			}
			out[k] = sanitizeNode(v, defs)
		case "properties":
			out[k] = sanitizePropertiesField(v, defs)
		case "type":
			out[k] = sanitizeType(v)
		case "anyOf", "oneOf":
			collapsed := sanitizeUnion(v, defs)
			if collapsed == nil {
				continue
			}
			if single, ok := collapsed.(map[string]any); ok {
				// A single-element union collapses into the parent schema
				// instead of staying wrapped.
				mergeInto(out, single)
				continue
			}
			out[k] = collapsed
		default:
			out[k] = sanitizeNode(v, defs)
		}
	}
	return out
}

// additionalPropertiesAllowed reports whether the upstream accepts
// additionalProperties on this schema node. It disallows it on anything
// that isn't declared (or defaulted) to an object type, matching the
// upstream's rejection of additionalProperties on scalar/array schemas.
func additionalPropertiesAllowed(obj map[string]any) bool {
	t, ok := obj["type"]
	if !ok {
		return true
	}
	switch tv := t.(type) {
	case string:
		return tv == "object"
	case []any:
		for _, item := range tv {
			if s, ok := item.(string); ok && s == "object" {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// sanitizePropertiesField forces "properties" to be a JSON object, never
// an array (some clients erroneously emit []). An array with no keys
// becomes an empty object.
func sanitizePropertiesField(v any, defs map[string]any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = sanitizeNode(child, defs)
		}
		return out
	default:
		return map[string]any{}
	}
}

// sanitizeType collapses an array-form "type" (e.g. ["string", "null"]) to
// a single string, preferring the first non-null entry. The field becomes
// implicitly optional to the caller since the upstream has no concept of
// a nullable type; dropping "null" is the closest accepted meaning.
func sanitizeType(v any) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "null" {
			return s
		}
	}
	if len(arr) > 0 {
		return arr[0]
	}
	return v
}

// sanitizeUnion sanitizes each branch of an anyOf/oneOf list and, if only
// one branch remains, signals the caller to collapse it into the parent
// schema rather than keep a single-element union.
func sanitizeUnion(v any, defs map[string]any) any {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	sanitized := make([]any, 0, len(arr))
	for _, item := range arr {
		sanitized = append(sanitized, sanitizeNode(item, defs))
	}
	if len(sanitized) == 1 {
		return sanitized[0]
	}
	return sanitized
}

func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

// inlineRef resolves a "#/$defs/Name" or "#/definitions/Name" pointer
// against the locally collected defs. External URIs (anything not
// starting with "#/$defs/" or "#/definitions/") are left unresolved.
func inlineRef(ref string, defs map[string]any) (any, bool) {
	const defsPrefix = "#/$defs/"
	const definitionsPrefix = "#/definitions/"
	var name string
	switch {
	case len(ref) > len(defsPrefix) && ref[:len(defsPrefix)] == defsPrefix:
		name = ref[len(defsPrefix):]
	case len(ref) > len(definitionsPrefix) && ref[:len(definitionsPrefix)] == definitionsPrefix:
		name = ref[len(definitionsPrefix):]
	default:
		return nil, false
	}
	def, ok := defs[name]
	return def, ok
}

// UsedDefNames returns the sorted list of $defs/definitions names actually
// referenced anywhere under s, for callers that want to report which
// defs were dropped as unreferenced.
func UsedDefNames(s map[string]any) []string {
	seen := map[string]struct{}{}
	collectRefs(s, seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectRefs(node any, seen map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			if _, name, ok := splitRef(ref); ok {
				seen[name] = struct{}{}
			}
		}
		for _, child := range v {
			collectRefs(child, seen)
		}
	case []any:
		for _, child := range v {
			collectRefs(child, seen)
		}
	}
}

func splitRef(ref string) (prefix, name string, ok bool) {
	const defsPrefix = "#/$defs/"
	const definitionsPrefix = "#/definitions/"
	if len(ref) > len(defsPrefix) && ref[:len(defsPrefix)] == defsPrefix {
		return defsPrefix, ref[len(defsPrefix):], true
	}
	if len(ref) > len(definitionsPrefix) && ref[:len(definitionsPrefix)] == definitionsPrefix {
		return definitionsPrefix, ref[len(definitionsPrefix):], true
	}
	return "", "", false
}
