package convert

import (
	"encoding/json"
	"testing"
)

func TestStripUndefined_RemovesNullAndUndefinedLiterals(t *testing.T) {
	in := `{
		"a": null,
		"b": "undefined",
		"c": "[undefined]",
		"d": "keep",
		"e": {"nested": null, "kept": 1}
	}`
	out := StripUndefined([]byte(in))

	var parsed map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("StripUndefined produced invalid JSON: %v (%s)", err, out)
	}
	for _, key := range []string{"a", "b", "c"} {
		if _, ok := parsed[key]; ok {
			t.Errorf("key %q should have been stripped, got %v", key, parsed)
		}
	}
	if parsed["d"] != "keep" {
		t.Errorf("key d = %v, want keep", parsed["d"])
	}
	nested, ok := parsed["e"].(map[string]any)
	if !ok {
		t.Fatalf("e = %v, want a nested object", parsed["e"])
	}
	if _, ok := nested["nested"]; ok {
		t.Error("e.nested should have been stripped")
	}
	if nested["kept"] != float64(1) {
		t.Errorf("e.kept = %v, want 1", nested["kept"])
	}
}

func TestStripUndefined_RemovesFromArrays(t *testing.T) {
	in := `{"items": [1, null, "undefined", 2, "[undefined]", 3]}`
	out := StripUndefined([]byte(in))

	var parsed map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	items, ok := parsed["items"].([]any)
	if !ok {
		t.Fatalf("items = %v, want an array", parsed["items"])
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (1, 2, 3 kept)", len(items))
	}
	for i, want := range []float64{1, 2, 3} {
		if items[i] != want {
			t.Errorf("items[%d] = %v, want %v", i, items[i], want)
		}
	}
}

func TestStripUndefined_InvalidJSONPassesThrough(t *testing.T) {
	in := []byte("not json")
	if out := StripUndefined(in); string(out) != string(in) {
		t.Errorf("StripUndefined(invalid) = %s, want unchanged", out)
	}
}

func TestStripUndefined_Idempotent(t *testing.T) {
	in := []byte(`{"a": null, "b": [1, null, 2]}`)
	once := StripUndefined(in)
	twice := StripUndefined(once)
	if string(once) != string(twice) {
		t.Errorf("StripUndefined is not idempotent:\nonce:  %s\ntwice: %s", once, twice)
	}
}
