package gwlog

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactJSON_RedactsSensitiveKeys(t *testing.T) {
	in := []byte(`{"access_token":"secret-value","email":"a@example.com"}`)
	out := RedactJSON(in)

	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if v["access_token"] != redactedValue {
		t.Errorf("access_token = %v, want redacted", v["access_token"])
	}
	if v["email"] != "a@example.com" {
		t.Errorf("email was redacted unexpectedly: %v", v["email"])
	}
}

func TestRedactJSON_NestedObjectsAndArrays(t *testing.T) {
	in := []byte(`{"accounts":[{"refreshToken":"rt-1"},{"refreshToken":"rt-2"}]}`)
	out := RedactJSON(in)
	if strings.Contains(string(out), "rt-1") || strings.Contains(string(out), "rt-2") {
		t.Errorf("nested refresh tokens were not redacted: %s", out)
	}
}

func TestRedactJSON_NonJSONPassesThrough(t *testing.T) {
	in := []byte("plain text, not json")
	out := RedactJSON(in)
	if string(out) != string(in) {
		t.Errorf("non-JSON body was modified")
	}
}

func TestMaskQuery_RedactsSensitiveParams(t *testing.T) {
	got := MaskQuery("key=sk-abc123&model=gemini-2.5-pro")
	if strings.Contains(got, "sk-abc123") {
		t.Errorf("MaskQuery did not redact key param: %s", got)
	}
	if !strings.Contains(got, "model=gemini-2.5-pro") {
		t.Errorf("MaskQuery altered a non-sensitive param: %s", got)
	}
}

func TestMaskQuery_EmptyStringPassesThrough(t *testing.T) {
	if got := MaskQuery(""); got != "" {
		t.Errorf("MaskQuery(\"\") = %q, want empty", got)
	}
}
