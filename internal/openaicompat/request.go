package openaicompat

import (
	"encoding/json"

	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
)

// ToInternalRequest translates an OpenAI chat-completion request to the
// internal representation, per spec.md section 4.4:
//   - system messages concatenate into the top-level system prompt.
//   - tool messages become a user turn carrying a tool_result.
//   - assistant tool_calls become tool_use parts.
//   - functions (legacy) translate to tools.
func ToInternalRequest(req *Request) (*message.Request, error) {
	out := &message.Request{
		Model:  req.Model,
		Stream: req.Stream,
		Params: message.GenerationParams{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if s, ok := req.Stop.(string); ok && s != "" {
		out.Params.StopSequences = []string{s}
	} else if arr, ok := req.Stop.([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out.Params.StopSequences = append(out.Params.StopSequences, s)
			}
		}
	}

	var systemText string
	for _, m := range req.Messages {
		if m.Role != "system" {
			continue
		}
		text, err := contentText(m.Content)
		if err != nil {
			return nil, err
		}
		systemText += text
	}
	if systemText != "" {
		out.System = []message.Content{{Text: &message.TextContent{Text: systemText}}}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			continue
		case "tool":
			content, err := toolResultContent(m)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, message.Message{Role: message.RoleUser, Content: content})
		case "user":
			content, err := userContent(m.Content)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, message.Message{Role: message.RoleUser, Content: content})
		case "assistant":
			content, err := assistantContent(m)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, message.Message{Role: message.RoleAssistant, Content: content})
		default:
			return nil, gwerr.Translation("messages[].role", "unknown role: "+m.Role)
		}
	}

	tools, err := toInternalTools(req.Tools, req.Functions)
	if err != nil {
		return nil, err
	}
	out.Tools = tools

	if req.ToolChoice != nil {
		tc, err := toInternalToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolChoice = tc
	}

	return out, nil
}

func contentText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", gwerr.Translation("content", "content must be a string or an array of content parts")
	}
	var text string
	for _, p := range parts {
		if p.Type == "text" {
			text += p.Text
		}
	}
	return text, nil
}

func userContent(raw json.RawMessage) ([]message.Content, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []message.Content{{Text: &message.TextContent{Text: s}}}, nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, gwerr.Translation("content", "content must be a string or an array of content parts")
	}
	content := make([]message.Content, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			content = append(content, message.Content{Text: &message.TextContent{Text: p.Text}})
		case "image_url":
			if p.ImageURL == nil {
				return nil, gwerr.Translation("content", "image_url part missing image_url")
			}
			content = append(content, message.Content{Image: &message.ImageContent{URL: p.ImageURL.URL}})
		default:
			return nil, gwerr.Translation("content", "unknown content part type: "+p.Type)
		}
	}
	return content, nil
}

func assistantContent(m Message) ([]message.Content, error) {
	content, err := userContent(m.Content)
	if err != nil {
		return nil, err
	}
	for _, tc := range m.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, gwerr.Translation("tool_calls[].function.arguments", "arguments must be a JSON object")
			}
		}
		content = append(content, message.Content{ToolUse: &message.ToolUseContent{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: args,
		}})
	}
	return content, nil
}

func toolResultContent(m Message) ([]message.Content, error) {
	if m.ToolCallID == "" {
		return nil, gwerr.Translation("tool_call_id", "tool message missing tool_call_id")
	}
	text, err := contentText(m.Content)
	if err != nil {
		return nil, err
	}
	return []message.Content{{ToolResult: &message.ToolResultContent{
		ToolUseID: m.ToolCallID,
		Content:   []message.Content{{Text: &message.TextContent{Text: text}}},
	}}}, nil
}

func toInternalTools(tools []Tool, functions []Function) ([]message.ToolDeclaration, error) {
	var out []message.ToolDeclaration
	for _, t := range tools {
		if t.Type != "" && t.Type != "function" {
			return nil, gwerr.Translation("tools[].type", "unsupported tool type: "+t.Type)
		}
		out = append(out, message.ToolDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	for _, f := range functions {
		out = append(out, message.ToolDeclaration{
			Name:        f.Name,
			Description: f.Description,
			InputSchema: f.Parameters,
		})
	}
	return out, nil
}

func toInternalToolChoice(raw any) (*message.ToolChoice, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "auto":
			return &message.ToolChoice{Mode: message.ToolChoiceAuto}, nil
		case "none":
			return &message.ToolChoice{Mode: message.ToolChoiceNone}, nil
		case "required":
			return &message.ToolChoice{Mode: message.ToolChoiceAny}, nil
		default:
			return nil, gwerr.Translation("tool_choice", "unknown tool_choice: "+v)
		}
	case map[string]any:
		fn, _ := v["function"].(map[string]any)
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, gwerr.Translation("tool_choice.function.name", "tool_choice object missing function.name")
		}
		return &message.ToolChoice{Mode: message.ToolChoiceSpecific, Name: name}, nil
	default:
		return nil, gwerr.Translation("tool_choice", "unsupported tool_choice shape")
	}
}
