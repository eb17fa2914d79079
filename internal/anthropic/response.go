package anthropic

import "github.com/brightloop/antigravity-gateway/internal/message"

// FromInternalMessage builds a non-streaming Messages response.
func FromInternalMessage(msg message.Message, model, id, stopReason string, usage Usage) Response {
	resp := Response{
		ID:         id,
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		StopReason: stopReason,
		Usage:      usage,
	}
	for _, c := range msg.Content {
		resp.Content = append(resp.Content, fromInternalContent(c))
	}
	return resp
}

func fromInternalContent(c message.Content) ContentBlock {
	switch {
	case c.Text != nil:
		return ContentBlock{Type: "text", Text: c.Text.Text}
	case c.Thinking != nil:
		return ContentBlock{Type: "thinking", Text: c.Thinking.Text, Signature: c.Thinking.Signature}
	case c.ToolUse != nil:
		return ContentBlock{Type: "tool_use", ID: c.ToolUse.ID, Name: c.ToolUse.Name, Input: c.ToolUse.Input}
	case c.Image != nil:
		return ContentBlock{Type: "image", Source: &ImageSource{Type: "base64", MediaType: c.Image.MimeType, Data: string(c.Image.Data)}}
	default:
		return ContentBlock{Type: "text"}
	}
}

// --- Streaming ---
//
// The Messages streaming protocol emits a fixed envelope
// (message_start, ping, content_block_start/delta/stop*, message_delta,
// message_stop) rather than OpenAI's uniform chunk shape, so the internal
// representation is walked into discrete index-addressed blocks instead of
// one flat delta struct, following the named-event pattern in
// tokligence-tokligence-gateway's httpserver/anthropic stream writer.

// MessageStartPayload is the "message_start" event's data field.
type MessageStartPayload struct {
	Type    string          `json:"type"`
	Message MessageStartMsg `json:"message"`
}

// MessageStartMsg is the near-empty message shell that opens a stream.
type MessageStartMsg struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Model   string         `json:"model"`
	Content []ContentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
}

// ContentBlockStartPayload opens one content block at Index.
type ContentBlockStartPayload struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaPayload appends to the block at Index.
type ContentBlockDeltaPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta Delta  `json:"delta"`
}

// Delta is the incremental payload within a content_block_delta event; the
// active field depends on Type.
type Delta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// ContentBlockStopPayload closes the block at Index.
type ContentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaPayload carries the terminal stop_reason and running usage.
type MessageDeltaPayload struct {
	Type  string            `json:"type"`
	Delta MessageDeltaFields `json:"delta"`
	Usage Usage             `json:"usage"`
}

// MessageDeltaFields is the delta object within a message_delta event.
type MessageDeltaFields struct {
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// MessageStopPayload closes the stream.
type MessageStopPayload struct {
	Type string `json:"type"`
}

// NewMessageStart builds the opening event of a stream.
func NewMessageStart(id, model string) Event {
	return Event{Type: "message_start", Data: MessageStartPayload{
		Type: "message_start",
		Message: MessageStartMsg{
			ID:      id,
			Type:    "message",
			Role:    "assistant",
			Model:   model,
			Content: []ContentBlock{},
		},
	}}
}

// NewContentBlockStart opens a block of the given internal content's kind at
// index; for text/thinking blocks the text itself is carried by a following
// delta rather than this event, matching the wire protocol's convention of
// starting blocks empty.
func NewContentBlockStart(index int, c message.Content) Event {
	block := ContentBlock{Type: blockType(c)}
	if c.ToolUse != nil {
		block.ID = c.ToolUse.ID
		block.Name = c.ToolUse.Name
		block.Input = map[string]any{}
	}
	return Event{Type: "content_block_start", Data: ContentBlockStartPayload{
		Type: "content_block_start", Index: index, ContentBlock: block,
	}}
}

func blockType(c message.Content) string {
	switch {
	case c.Text != nil:
		return "text"
	case c.Thinking != nil:
		return "thinking"
	case c.ToolUse != nil:
		return "tool_use"
	default:
		return "text"
	}
}

// NewTextDelta emits an incremental text_delta for a text block.
func NewTextDelta(index int, text string) Event {
	return Event{Type: "content_block_delta", Data: ContentBlockDeltaPayload{
		Type: "content_block_delta", Index: index,
		Delta: Delta{Type: "text_delta", Text: text},
	}}
}

// NewThinkingDelta emits an incremental thinking_delta for a thinking block.
func NewThinkingDelta(index int, text string) Event {
	return Event{Type: "content_block_delta", Data: ContentBlockDeltaPayload{
		Type: "content_block_delta", Index: index,
		Delta: Delta{Type: "thinking_delta", Thinking: text},
	}}
}

// NewSignatureDelta emits the signature that closes a thinking block.
func NewSignatureDelta(index int, signature string) Event {
	return Event{Type: "content_block_delta", Data: ContentBlockDeltaPayload{
		Type: "content_block_delta", Index: index,
		Delta: Delta{Type: "signature_delta", Signature: signature},
	}}
}

// NewInputJSONDelta emits an incremental input_json_delta for a tool_use
// block; callers accumulate these into the block's final Input.
func NewInputJSONDelta(index int, partialJSON string) Event {
	return Event{Type: "content_block_delta", Data: ContentBlockDeltaPayload{
		Type: "content_block_delta", Index: index,
		Delta: Delta{Type: "input_json_delta", PartialJSON: partialJSON},
	}}
}

// NewContentBlockStop closes the block at index.
func NewContentBlockStop(index int) Event {
	return Event{Type: "content_block_stop", Data: ContentBlockStopPayload{Type: "content_block_stop", Index: index}}
}

// NewMessageDelta reports the terminal stop reason and usage.
func NewMessageDelta(stopReason string, usage Usage) Event {
	return Event{Type: "message_delta", Data: MessageDeltaPayload{
		Type:  "message_delta",
		Delta: MessageDeltaFields{StopReason: stopReason},
		Usage: usage,
	}}
}

// NewMessageStop closes the stream.
func NewMessageStop() Event {
	return Event{Type: "message_stop", Data: MessageStopPayload{Type: "message_stop"}}
}

// NewPing keeps an idle connection alive, per the protocol's periodic ping.
func NewPing() Event {
	return Event{Type: "ping", Data: struct {
		Type string `json:"type"`
	}{Type: "ping"}}
}
