package convert

import (
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
	"github.com/brightloop/antigravity-gateway/internal/schema"
)

// SystemSentinel is the literal text that must already be present in a
// request's system instruction for ToGoogleRequest to skip re-prepending
// the configured gateway instruction (spec.md section 3's invariant).
const SystemSentinel = "You are Antigravity"

// ToGoogleRequest translates req into the upstream's native dialect.
// gatewayInstruction, when non-empty, is prepended to the system
// instruction unless it is already present textually.
func ToGoogleRequest(req *message.Request, gatewayInstruction string) (*GoogleRequest, error) {
	out := &GoogleRequest{}

	sysParts, err := contentToGoogleParts(req.System)
	if err != nil {
		return nil, err
	}
	sysText := concatText(sysParts)
	if gatewayInstruction != "" && !containsText(sysText, gatewayInstruction) {
		sysParts = append([]GooglePart{{Text: gatewayInstruction}}, sysParts...)
	}
	if len(sysParts) > 0 {
		out.SystemInstruction = &GoogleContent{Role: "user", Parts: sysParts}
	}

	contents := make([]GoogleContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts, err := contentToGoogleParts(m.Content)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, GoogleContent{Role: googleRole(m.Role), Parts: parts})
	}
	out.Contents = contents

	if len(req.Tools) > 0 {
		decls := make([]GoogleFunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			d := GoogleFunctionDeclaration{Name: t.Name, Description: t.Description}
			sanitized := schema.Sanitize(t.InputSchema)
			if req.TargetModel == message.FamilyClaude {
				d.ParametersJSONSchema = sanitized
			} else {
				d.Parameters = sanitized
			}
			decls = append(decls, d)
		}
		out.Tools = []GoogleTool{{FunctionDeclarations: decls}}
	}

	if req.ToolChoice != nil {
		tc, err := toGoogleToolConfig(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolConfig = tc
	} else if len(req.Tools) > 0 {
		out.ToolConfig = &GoogleToolConfig{FunctionCallingConfig: GoogleFunctionCallingConfig{Mode: "VALIDATED"}}
	}

	out.GenerationConfig = toGoogleGenerationConfig(req.Params)

	return out, nil
}

func toGoogleToolConfig(tc message.ToolChoice) (*GoogleToolConfig, error) {
	cfg := GoogleFunctionCallingConfig{}
	switch tc.Mode {
	case message.ToolChoiceAuto:
		cfg.Mode = "AUTO"
	case message.ToolChoiceAny:
		cfg.Mode = "ANY"
	case message.ToolChoiceNone:
		cfg.Mode = "NONE"
	case message.ToolChoiceSpecific:
		cfg.Mode = "ANY"
		if tc.Name == "" {
			return nil, gwerr.Translation("tool_choice.name", "specific tool_choice requires a name")
		}
		cfg.AllowedFunctionNames = []string{tc.Name}
	default:
		return nil, gwerr.Translation("tool_choice.mode", "unknown tool_choice mode")
	}
	return &GoogleToolConfig{FunctionCallingConfig: cfg}, nil
}

// toGoogleGenerationConfig never sets CandidateCount: the upstream envelope
// strips it for non-Claude targets and the gateway never requests more than
// one candidate in the first place (spec.md section 4.3).
func toGoogleGenerationConfig(p message.GenerationParams) *GoogleGenerationConfig {
	if p.Temperature == nil && p.TopP == nil && p.TopK == nil && p.MaxOutputTokens == nil && len(p.StopSequences) == 0 {
		return nil
	}
	return &GoogleGenerationConfig{
		Temperature:     p.Temperature,
		TopP:            p.TopP,
		TopK:            p.TopK,
		MaxOutputTokens: p.MaxOutputTokens,
		StopSequences:   p.StopSequences,
	}
}

func concatText(parts []GooglePart) string {
	s := ""
	for _, p := range parts {
		s += p.Text
	}
	return s
}

func containsText(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
