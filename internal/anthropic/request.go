package anthropic

import (
	"encoding/json"
	"strconv"

	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
)

// ToInternalRequest translates a decoded Messages request to the internal
// representation. Unlike openaicompat's translation, this is close to
// identity: message.Request is modeled directly on this wire shape, so the
// only real work is resolving the polymorphic string-or-blocks fields and
// folding thinking blocks and tool_result turns into the tagged union.
func ToInternalRequest(req *Request) (*message.Request, error) {
	out := &message.Request{
		Model:  req.Model,
		Stream: req.Stream,
		Params: message.GenerationParams{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			TopK:            req.TopK,
			StopSequences:   req.StopSequences,
			MaxOutputTokens: &req.MaxTokens,
		},
	}

	if len(req.System) > 0 {
		sys, err := contentBlocks(req.System)
		if err != nil {
			return nil, gwerr.Translation("system", err.Error())
		}
		out.System = sys
	}

	for i, m := range req.Messages {
		idx := strconv.Itoa(i)
		role, err := internalRole(m.Role)
		if err != nil {
			return nil, gwerr.Translation("messages["+idx+"].role", err.Error())
		}
		content, err := contentBlocks(m.Content)
		if err != nil {
			return nil, gwerr.Translation("messages["+idx+"].content", err.Error())
		}
		out.Messages = append(out.Messages, message.Message{Role: role, Content: content})
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, message.ToolDeclaration{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	if req.ToolChoice != nil {
		tc, err := internalToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolChoice = tc
	}

	return out, nil
}

func internalRole(role string) (message.Role, error) {
	switch role {
	case "user":
		return message.RoleUser, nil
	case "assistant":
		return message.RoleAssistant, nil
	default:
		return "", errInvalidRole(role)
	}
}

type errInvalidRole string

func (e errInvalidRole) Error() string { return "unknown role: " + string(e) }

// contentBlocks resolves a string-or-[]ContentBlock polymorphic field into
// internal content parts.
func contentBlocks(raw json.RawMessage) ([]message.Content, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []message.Content{{Text: &message.TextContent{Text: s}}}, nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, errMalformedContent
	}
	out := make([]message.Content, 0, len(blocks))
	for _, b := range blocks {
		c, err := toInternalContent(b)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var errMalformedContent = gwerr.Translation("content", "content must be a string or an array of content blocks")

func toInternalContent(b ContentBlock) (message.Content, error) {
	switch b.Type {
	case "text":
		return message.Content{Text: &message.TextContent{Text: b.Text}}, nil
	case "thinking":
		return message.Content{Thinking: &message.ThinkingContent{Text: b.Text, Signature: b.Signature}}, nil
	case "image":
		if b.Source == nil {
			return message.Content{}, gwerr.Translation("content", "image block missing source")
		}
		img := &message.ImageContent{MimeType: b.Source.MediaType, URL: b.Source.URL}
		if b.Source.Type == "base64" {
			img.Data = []byte(b.Source.Data)
		}
		return message.Content{Image: img}, nil
	case "tool_use":
		return message.Content{ToolUse: &message.ToolUseContent{
			ID:    b.ID,
			Name:  b.Name,
			Input: b.Input,
		}}, nil
	case "tool_result":
		inner, err := contentBlocks(b.Content)
		if err != nil {
			return message.Content{}, err
		}
		return message.Content{ToolResult: &message.ToolResultContent{
			ToolUseID: b.ToolUseID,
			Content:   inner,
			IsError:   b.IsError,
		}}, nil
	default:
		return message.Content{}, gwerr.Translation("content", "unknown content block type: "+b.Type)
	}
}

func internalToolChoice(tc *ToolChoice) (*message.ToolChoice, error) {
	switch tc.Type {
	case "auto", "":
		return &message.ToolChoice{Mode: message.ToolChoiceAuto}, nil
	case "any":
		return &message.ToolChoice{Mode: message.ToolChoiceAny}, nil
	case "none":
		return &message.ToolChoice{Mode: message.ToolChoiceNone}, nil
	case "tool":
		if tc.Name == "" {
			return nil, gwerr.Translation("tool_choice.name", "tool_choice type \"tool\" requires a name")
		}
		return &message.ToolChoice{Mode: message.ToolChoiceSpecific, Name: tc.Name}, nil
	default:
		return nil, gwerr.Translation("tool_choice.type", "unknown tool_choice type: "+tc.Type)
	}
}
