package session

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/brightloop/antigravity-gateway/internal/message"
)

func userMsg(text string) message.Message {
	return message.Message{Role: message.RoleUser, Content: []message.Content{{Text: &message.TextContent{Text: text}}}}
}

func TestDeriveID_MatchesSHA256OfFirstUserMessage(t *testing.T) {
	req := &message.Request{Messages: []message.Message{userMsg("hello there")}}
	sum := sha256.Sum256([]byte("hello there"))
	want := hex.EncodeToString(sum[:])

	if got := DeriveID(req); got != want {
		t.Errorf("DeriveID() = %q, want %q", got, want)
	}
}

func TestDeriveID_StableAcrossLaterTurns(t *testing.T) {
	req1 := &message.Request{Messages: []message.Message{userMsg("hello there")}}
	req2 := &message.Request{Messages: []message.Message{
		userMsg("hello there"),
		{Role: message.RoleAssistant, Content: []message.Content{{Text: &message.TextContent{Text: "hi"}}}},
		userMsg("follow up"),
	}}
	if DeriveID(req1) != DeriveID(req2) {
		t.Error("DeriveID should depend only on the first user message, not later turns")
	}
}

func TestDeriveID_IgnoresSystemAndAssistantMessages(t *testing.T) {
	req := &message.Request{Messages: []message.Message{
		{Role: message.RoleAssistant, Content: []message.Content{{Text: &message.TextContent{Text: "ignored"}}}},
		userMsg("actual first user text"),
	}}
	sum := sha256.Sum256([]byte("actual first user text"))
	want := hex.EncodeToString(sum[:])
	if got := DeriveID(req); got != want {
		t.Errorf("DeriveID() = %q, want %q", got, want)
	}
}

func TestDeriveID_NoUserMessageReturnsEmpty(t *testing.T) {
	req := &message.Request{Messages: []message.Message{
		{Role: message.RoleAssistant, Content: []message.Content{{Text: &message.TextContent{Text: "hi"}}}},
	}}
	if got := DeriveID(req); got != "" {
		t.Errorf("DeriveID() = %q, want empty", got)
	}
}

func TestDeriveID_ImageOnlyFirstUserTurnReturnsEmpty(t *testing.T) {
	req := &message.Request{Messages: []message.Message{
		{Role: message.RoleUser, Content: []message.Content{{Image: &message.ImageContent{MimeType: "image/png", Data: []byte("x")}}}},
	}}
	if got := DeriveID(req); got != "" {
		t.Errorf("DeriveID() = %q, want empty for an image-only first turn", got)
	}
}
