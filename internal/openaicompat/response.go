package openaicompat

import (
	"encoding/json"

	"github.com/brightloop/antigravity-gateway/internal/message"
)

// FromInternalMessage builds a non-streaming chat-completion response from
// one assistant message, per spec.md section 4.4's reverse direction:
// text parts join into a plain string, tool_use parts become tool_calls,
// and any thinking text is surfaced under the reasoning_content vendor
// field.
func FromInternalMessage(msg message.Message, model, id string, finishReason string) Response {
	return Response{
		ID:     id,
		Object: "chat.completion",
		Model:  model,
		Choices: []Choice{{
			Index:        0,
			Message:      toResponseMessage(msg),
			FinishReason: finishReason,
		}},
	}
}

func toResponseMessage(msg message.Message) ResponseMessage {
	out := ResponseMessage{Role: "assistant"}
	for _, c := range msg.Content {
		switch {
		case c.Text != nil:
			out.Content += c.Text.Text
		case c.Thinking != nil:
			out.ReasoningContent += c.Thinking.Text
		case c.ToolUse != nil:
			out.ToolCalls = append(out.ToolCalls, toolCallFromInternal(*c.ToolUse))
		}
	}
	return out
}

func toolCallFromInternal(tu message.ToolUseContent) ToolCall {
	args := "{}"
	if b, err := marshalArgs(tu.Input); err == nil {
		args = b
	}
	return ToolCall{
		ID:   tu.ID,
		Type: "function",
		Function: ToolCallFunction{
			Name:      tu.Name,
			Arguments: args,
		},
	}
}

// DeltaFromContent converts one incremental batch of internal content parts
// (typically everything carried by a single upstream SSE chunk, after
// internal/convert.FromGoogleResponse) into an OpenAI streaming delta.
func DeltaFromContent(content []message.Content) Delta {
	var d Delta
	for _, c := range content {
		switch {
		case c.Text != nil:
			d.Content += c.Text.Text
		case c.Thinking != nil:
			d.ReasoningContent += c.Thinking.Text
		case c.ToolUse != nil:
			d.ToolCalls = append(d.ToolCalls, toolCallFromInternal(*c.ToolUse))
		}
	}
	return d
}

// NewStreamChunk wraps a delta in the standard "chat.completion.chunk"
// envelope.
func NewStreamChunk(id, model string, delta Delta, finishReason string) StreamChunk {
	return StreamChunk{
		ID:     id,
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []DeltaChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
}

func marshalArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
