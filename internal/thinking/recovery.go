package thinking

import "github.com/brightloop/antigravity-gateway/internal/message"

// PlaceholderToolResultText is the content placed in a synthesized
// tool_result when recovering an interrupted tool loop across a
// Gemini-to-Claude model switch (spec.md section 4.2).
const PlaceholderToolResultText = "[tool result unavailable after model switch]"

// ApplyCrossModelPolicy mutates a copy of req's messages in place to
// satisfy spec.md section 4.2's cross-model policy and returns it:
//
//   - target family Gemini: a thinking signature is kept only if the
//     cache says it belongs to Gemini; otherwise it is dropped and the
//     enclosing tool_use's ThoughtSignature is set to SkipSentinel.
//   - target family Claude: signatures pass through unchanged.
//   - Gemini→Claude switch with an interrupted tool loop: a synthetic
//     user turn with a placeholder tool_result is appended for every open
//     tool_use, so the Claude upstream sees a well-formed transcript.
func ApplyCrossModelPolicy(cache *Cache, sessionID string, req *message.Request) {
	if req == nil {
		return
	}

	switch req.TargetModel {
	case message.FamilyGemini:
		scrubNonGeminiSignatures(cache, sessionID, req)
	case message.FamilyClaude:
		if cache.HasFamily(sessionID, message.FamilyGemini) {
			recoverInterruptedToolLoop(req)
		}
	}
}

func scrubNonGeminiSignatures(cache *Cache, sessionID string, req *message.Request) {
	for mi := range req.Messages {
		msg := &req.Messages[mi]
		if msg.Role != message.RoleAssistant {
			continue
		}
		var pendingSignature string
		for ci := range msg.Content {
			c := &msg.Content[ci]
			if c.Thinking != nil {
				pendingSignature = c.Thinking.Signature
				continue
			}
			if c.ToolUse == nil {
				continue
			}
			sig := c.ToolUse.ThoughtSignature
			if sig == "" {
				sig = pendingSignature
			}
			pendingSignature = ""
			if sig != "" && cache.Lookup(sessionID, sig) == message.FamilyGemini {
				c.ToolUse.ThoughtSignature = sig
			} else {
				c.ToolUse.ThoughtSignature = SkipSentinel
			}
		}
	}
}

// recoverInterruptedToolLoop appends a synthesized user turn containing a
// placeholder tool_result for every tool_use left open at the end of the
// transcript, and strips any Gemini-family thinking blocks left in
// history (the target is Claude; Gemini reasoning text has no valid
// Claude-side meaning once its signature has been invalidated by the
// switch).
func recoverInterruptedToolLoop(req *message.Request) {
	open := req.HasOpenToolUse()
	if len(open) == 0 {
		return
	}
	content := make([]message.Content, 0, len(open))
	for _, tu := range open {
		content = append(content, message.Content{
			ToolResult: &message.ToolResultContent{
				ToolUseID: tu.ID,
				Content: []message.Content{
					{Text: &message.TextContent{Text: PlaceholderToolResultText}},
				},
			},
		})
	}
	req.Messages = append(req.Messages, message.Message{
		Role:    message.RoleUser,
		Content: content,
	})
}
