// Package message defines the dialect-neutral representation that the
// translators in internal/convert and internal/openaicompat read and
// produce. A Message carries an ordered list of Content parts; Content is
// a closed tagged union with one concrete type per wire variant described
// in spec.md section 3.
package message

// Role identifies who produced a message. Tool results are folded into
// RoleUser by the converters before a Message is constructed.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Family identifies which upstream model family a request or a cached
// reasoning signature belongs to.
type Family string

const (
	FamilyClaude Family = "claude"
	FamilyGemini Family = "gemini"
)

// Message is one turn of a conversation in the internal representation.
type Message struct {
	Role    Role
	Content []Content
}

// Content is a tagged variant over the content-part shapes in spec.md
// section 3. Exactly one of the pointer fields is non-nil.
type Content struct {
	Text       *TextContent
	Image      *ImageContent
	ToolUse    *ToolUseContent
	ToolResult *ToolResultContent
	Thinking   *ThinkingContent
}

// TextContent is a plain text segment.
type TextContent struct {
	Text string
}

// ImageContent is inline image data or a URL reference.
type ImageContent struct {
	MimeType string
	Data     []byte // decoded bytes; empty when URL is set
	URL      string
}

// ToolUseContent is a model-issued tool invocation.
type ToolUseContent struct {
	ID    string
	Name  string
	Input map[string]any

	// ThoughtSignature carries the Gemini-side reasoning signature attached
	// to this call, when one preceded it. Empty when none applies.
	ThoughtSignature string
}

// ToolResultContent is the caller's answer to a prior ToolUseContent.
type ToolResultContent struct {
	ToolUseID string
	Content   []Content
	IsError   bool
}

// ThinkingContent is a Claude-style reasoning block. Signature is opaque
// and must round-trip unmodified; see internal/thinking for the cache that
// governs whether it may cross a model-family boundary.
type ThinkingContent struct {
	Text      string
	Signature string
}

// Tool declaration, per spec.md section 3: name, description, and a
// JSON-Schema input object (sanitized before upstream use by
// internal/schema).
type ToolDeclaration struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolChoice mirrors the caller's tool_choice / toolConfig selection.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceAny      ToolChoiceMode = "any"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceSpecific ToolChoiceMode = "specific"
)

type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // set when Mode == ToolChoiceSpecific
}

// GenerationParams holds the sampling parameters that map onto Google's
// generationConfig (spec.md section 4.3's translation table).
type GenerationParams struct {
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	StopSequences   []string
}

// Request is the internal, dialect-neutral representation of a whole
// chat-completion request, built from the Anthropic wire shape and
// translated to/from Google's by internal/convert.
type Request struct {
	Model       string
	System      []Content // top-level system prompt parts
	Messages    []Message
	Tools       []ToolDeclaration
	ToolChoice  *ToolChoice
	Params      GenerationParams
	Stream      bool
	ThinkingOn  bool
	TargetModel Family
}

// HasOpenToolUse reports whether the last message is an assistant turn
// ending on one or more tool_use parts with no matching tool_result in a
// following user turn — the "interrupted tool loop" spec.md section 4.2
// refers to.
func (r *Request) HasOpenToolUse() []ToolUseContent {
	if len(r.Messages) == 0 {
		return nil
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	var open []ToolUseContent
	for _, c := range last.Content {
		if c.ToolUse != nil {
			open = append(open, *c.ToolUse)
		}
	}
	return open
}
