package convert

import (
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
)

// SkipSignatureSentinel mirrors thinking.SkipSentinel without importing the
// thinking package (which imports nothing from convert); internal/upstream
// wires the concrete value, but convert must recognize it as non-recoverable
// when rebuilding thinking blocks on the reverse path.
const SkipSignatureSentinel = "skip_thought_signature_validator"

func googleRole(r message.Role) string {
	if r == message.RoleAssistant {
		return "model"
	}
	return "user"
}

// contentToGoogleParts converts one turn's content parts to Google parts.
// Thinking parts are never emitted on the wire; their signature is folded
// into the immediately following tool_use's ThoughtSignature unless one is
// already set there (spec.md section 4.3).
func contentToGoogleParts(content []message.Content) ([]GooglePart, error) {
	parts := make([]GooglePart, 0, len(content))
	var pendingSignature string

	for _, c := range content {
		switch {
		case c.Text != nil:
			parts = append(parts, GooglePart{Text: c.Text.Text})

		case c.Image != nil:
			data := c.Image.Data
			parts = append(parts, GooglePart{InlineData: &GoogleInlineData{
				MimeType: c.Image.MimeType,
				Data:     string(data),
			}})

		case c.Thinking != nil:
			pendingSignature = c.Thinking.Signature

		case c.ToolUse != nil:
			sig := c.ToolUse.ThoughtSignature
			if sig == "" {
				sig = pendingSignature
			}
			pendingSignature = ""
			args := c.ToolUse.Input
			if args == nil {
				args = map[string]any{}
			}
			parts = append(parts, GooglePart{
				FunctionCall:     &GoogleFunctionCall{Name: c.ToolUse.Name, Args: args},
				ThoughtSignature: sig,
			})

		case c.ToolResult != nil:
			parts = append(parts, toolResultToGooglePart(*c.ToolResult))

		default:
			return nil, gwerr.Translation("content", "empty content part")
		}
	}
	return parts, nil
}

// toolResultToGooglePart flattens a tool_result's nested content into a
// single response object; Google's functionResponse.response is an object,
// not an arbitrary content list, so text parts are concatenated and a
// non-text part (e.g. an image result) is carried under "content" verbatim.
func toolResultToGooglePart(tr message.ToolResultContent) GooglePart {
	response := map[string]any{}
	var text string
	for _, c := range tr.Content {
		if c.Text != nil {
			text += c.Text.Text
		}
	}
	if tr.IsError {
		response["error"] = text
	} else {
		response["output"] = text
	}
	return GooglePart{FunctionResponse: &GoogleFunctionResponse{
		Name:     tr.ToolUseID,
		Response: response,
	}}
}

// googlePartsToContent is the reverse of contentToGoogleParts for one
// candidate's parts, reconstructing preceding thinking blocks from
// thought-marked parts and from a bare thoughtSignature on a functionCall.
func googlePartsToContent(parts []GooglePart) []message.Content {
	out := make([]message.Content, 0, len(parts))
	var textRun *message.TextContent

	flushText := func() {
		if textRun != nil {
			out = append(out, message.Content{Text: textRun})
			textRun = nil
		}
	}

	for _, p := range parts {
		switch {
		case p.Thought:
			flushText()
			out = append(out, message.Content{Thinking: &message.ThinkingContent{
				Text:      p.Text,
				Signature: p.ThoughtSignature,
			}})

		case p.FunctionCall != nil:
			flushText()
			if p.ThoughtSignature != "" && p.ThoughtSignature != SkipSignatureSentinel {
				if !precededByThought(out) {
					out = append(out, message.Content{Thinking: &message.ThinkingContent{
						Signature: p.ThoughtSignature,
					}})
				}
			}
			out = append(out, message.Content{ToolUse: &message.ToolUseContent{
				Name:             p.FunctionCall.Name,
				Input:            p.FunctionCall.Args,
				ThoughtSignature: p.ThoughtSignature,
			}})

		case p.FunctionResponse != nil:
			flushText()
			out = append(out, message.Content{ToolResult: &message.ToolResultContent{
				ToolUseID: p.FunctionResponse.Name,
				Content: []message.Content{
					{Text: &message.TextContent{Text: responseText(p.FunctionResponse.Response)}},
				},
			}})

		case p.InlineData != nil:
			flushText()
			out = append(out, message.Content{Image: &message.ImageContent{
				MimeType: p.InlineData.MimeType,
				Data:     []byte(p.InlineData.Data),
			}})

		default:
			if textRun == nil {
				textRun = &message.TextContent{}
			}
			textRun.Text += p.Text
		}
	}
	flushText()
	return out
}

func precededByThought(out []message.Content) bool {
	if len(out) == 0 {
		return false
	}
	return out[len(out)-1].Thinking != nil
}

func responseText(response map[string]any) string {
	if response == nil {
		return ""
	}
	if s, ok := response["output"].(string); ok {
		return s
	}
	if s, ok := response["error"].(string); ok {
		return s
	}
	return ""
}
