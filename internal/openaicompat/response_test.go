package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/brightloop/antigravity-gateway/internal/message"
)

func TestFromInternalMessage_TextOnly(t *testing.T) {
	msg := message.Message{Role: message.RoleAssistant, Content: []message.Content{
		{Text: &message.TextContent{Text: "pong"}},
	}}
	resp := FromInternalMessage(msg, "claude-sonnet-4-5", "resp_1", "stop")
	if resp.Choices[0].Message.Content != "pong" {
		t.Errorf("Content = %q, want pong", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].Message.Role != "assistant" {
		t.Errorf("Role = %q, want assistant", resp.Choices[0].Message.Role)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.Choices[0].FinishReason)
	}
}

func TestFromInternalMessage_ToolUseBecomesToolCallWithJSONArguments(t *testing.T) {
	msg := message.Message{Role: message.RoleAssistant, Content: []message.Content{
		{ToolUse: &message.ToolUseContent{ID: "call_1", Name: "get_time", Input: map[string]any{"tz": "UTC"}}},
	}}
	resp := FromInternalMessage(msg, "m", "id", "tool_calls")
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "get_time" {
		t.Fatalf("ToolCalls = %+v, want one get_time call", calls)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(calls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["tz"] != "UTC" {
		t.Errorf("arguments = %v, want tz=UTC", args)
	}
}

func TestFromInternalMessage_ThinkingSurfacesAsReasoningContent(t *testing.T) {
	msg := message.Message{Role: message.RoleAssistant, Content: []message.Content{
		{Thinking: &message.ThinkingContent{Text: "because X"}},
		{Text: &message.TextContent{Text: "answer"}},
	}}
	resp := FromInternalMessage(msg, "m", "id", "stop")
	if resp.Choices[0].Message.ReasoningContent != "because X" {
		t.Errorf("ReasoningContent = %q, want 'because X'", resp.Choices[0].Message.ReasoningContent)
	}
	if resp.Choices[0].Message.Content != "answer" {
		t.Errorf("Content = %q, want answer", resp.Choices[0].Message.Content)
	}
}

func TestDeltaFromContent_TextDelta(t *testing.T) {
	d := DeltaFromContent([]message.Content{{Text: &message.TextContent{Text: "po"}}})
	if d.Content != "po" {
		t.Errorf("Content = %q, want po", d.Content)
	}
}

func TestStreamingTwoChunksProduceTwoDeltas(t *testing.T) {
	chunk1 := DeltaFromContent([]message.Content{{Text: &message.TextContent{Text: "po"}}})
	chunk2 := DeltaFromContent([]message.Content{{Text: &message.TextContent{Text: "ng"}}})

	sc1 := NewStreamChunk("id", "m", chunk1, "")
	sc2 := NewStreamChunk("id", "m", chunk2, "stop")

	if sc1.Object != "chat.completion.chunk" {
		t.Errorf("Object = %q, want chat.completion.chunk", sc1.Object)
	}
	if sc1.Choices[0].Delta.Content != "po" || sc2.Choices[0].Delta.Content != "ng" {
		t.Errorf("deltas = %q, %q, want po then ng", sc1.Choices[0].Delta.Content, sc2.Choices[0].Delta.Content)
	}
	if sc2.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop on the final chunk", sc2.Choices[0].FinishReason)
	}
}
