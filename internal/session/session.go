// Package session derives the stable conversation identifier described in
// spec.md section 3: a SHA-256 digest of the first user message's text,
// used both to pick a sticky account (internal/accountpool) and as the
// upstream session id so prompt caching hits.
package session

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/message"
)

// DeriveID returns the hex-encoded SHA-256 digest of the concatenated text
// parts of the first user message in req. It returns "" if there is no
// user message, or the first user message carries no text (e.g. an
// image-only turn) — callers should fall back to round-robin selection in
// that case rather than treat "" as a valid sticky key.
func DeriveID(req *message.Request) string {
	for _, m := range req.Messages {
		if m.Role != message.RoleUser {
			continue
		}
		text := firstUserText(m.Content)
		if text == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(text))
		return hex.EncodeToString(sum[:])
	}
	return ""
}

func firstUserText(content []message.Content) string {
	var text string
	for _, c := range content {
		if c.Text != nil {
			text += c.Text.Text
		}
	}
	return text
}

// DeriveIDFromGoogleRequest is DeriveID's equivalent for a caller that
// submitted the upstream's native dialect directly (the Google handler
// skips internal-representation translation, so it has no message.Request
// to derive from).
func DeriveIDFromGoogleRequest(req *convert.GoogleRequest) string {
	for _, content := range req.Contents {
		if content.Role != "user" {
			continue
		}
		var text string
		for _, p := range content.Parts {
			text += p.Text
		}
		if text == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(text))
		return hex.EncodeToString(sum[:])
	}
	return ""
}
