package convert

import (
	"testing"

	"github.com/brightloop/antigravity-gateway/internal/message"
)

func TestToGoogleRequest_SystemAndMessages(t *testing.T) {
	req := &message.Request{
		System: []message.Content{{Text: &message.TextContent{Text: "Be terse."}}},
		Messages: []message.Message{
			{Role: message.RoleUser, Content: []message.Content{{Text: &message.TextContent{Text: "ping"}}}},
			{Role: message.RoleAssistant, Content: []message.Content{{Text: &message.TextContent{Text: "pong"}}}},
		},
	}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SystemInstruction == nil || out.SystemInstruction.Parts[0].Text != "Be terse." {
		t.Errorf("SystemInstruction = %+v, want 'Be terse.'", out.SystemInstruction)
	}
	if len(out.Contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(out.Contents))
	}
	if out.Contents[0].Role != "user" {
		t.Errorf("Contents[0].Role = %q, want user", out.Contents[0].Role)
	}
	if out.Contents[1].Role != "model" {
		t.Errorf("Contents[1].Role = %q, want model", out.Contents[1].Role)
	}
}

func TestToGoogleRequest_PrependsGatewayInstructionWhenAbsent(t *testing.T) {
	req := &message.Request{System: []message.Content{{Text: &message.TextContent{Text: "Be terse."}}}}
	out, err := ToGoogleRequest(req, "You are Antigravity.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.SystemInstruction.Parts) != 2 {
		t.Fatalf("got %d system parts, want 2 (gateway instruction + original)", len(out.SystemInstruction.Parts))
	}
	if out.SystemInstruction.Parts[0].Text != "You are Antigravity." {
		t.Errorf("Parts[0].Text = %q, want the gateway instruction first", out.SystemInstruction.Parts[0].Text)
	}
}

func TestToGoogleRequest_SkipsGatewayInstructionWhenAlreadyPresent(t *testing.T) {
	req := &message.Request{System: []message.Content{{Text: &message.TextContent{Text: "You are Antigravity. Be terse."}}}}
	out, err := ToGoogleRequest(req, "You are Antigravity.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.SystemInstruction.Parts) != 1 {
		t.Fatalf("got %d system parts, want 1 (no duplicate prepended)", len(out.SystemInstruction.Parts))
	}
}

func TestToGoogleRequest_ToolsSanitizedAndRemappedPerTargetFamily(t *testing.T) {
	schemaWithJunk := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
	}
	req := &message.Request{
		TargetModel: message.FamilyClaude,
		Tools: []message.ToolDeclaration{
			{Name: "get_time", Description: "returns time", InputSchema: schemaWithJunk},
		},
	}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decl := out.Tools[0].FunctionDeclarations[0]
	if decl.ParametersJSONSchema == nil {
		t.Fatal("expected parametersJsonSchema to be populated for a Claude target")
	}
	if decl.Parameters != nil {
		t.Error("expected parameters to be unset for a Claude target")
	}
	if _, ok := decl.ParametersJSONSchema["$schema"]; ok {
		t.Error("$schema should have been sanitized out")
	}
}

func TestToGoogleRequest_GeminiTargetUsesParametersField(t *testing.T) {
	req := &message.Request{
		TargetModel: message.FamilyGemini,
		Tools:       []message.ToolDeclaration{{Name: "f", InputSchema: map[string]any{"type": "object"}}},
	}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decl := out.Tools[0].FunctionDeclarations[0]
	if decl.Parameters == nil {
		t.Fatal("expected parameters to be populated for a Gemini target")
	}
	if decl.ParametersJSONSchema != nil {
		t.Error("expected parametersJsonSchema to be unset for a Gemini target")
	}
}

func TestToGoogleRequest_DefaultToolConfigModeIsValidated(t *testing.T) {
	req := &message.Request{Tools: []message.ToolDeclaration{{Name: "f", InputSchema: map[string]any{}}}}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ToolConfig == nil || out.ToolConfig.FunctionCallingConfig.Mode != "VALIDATED" {
		t.Errorf("ToolConfig = %+v, want default mode VALIDATED", out.ToolConfig)
	}
}

func TestToGoogleRequest_SpecificToolChoiceRequiresName(t *testing.T) {
	req := &message.Request{ToolChoice: &message.ToolChoice{Mode: message.ToolChoiceSpecific}}
	_, err := ToGoogleRequest(req, "")
	if err == nil {
		t.Fatal("expected an error for a specific tool_choice with no name")
	}
}

func TestToGoogleRequest_GenerationConfigOmittedWhenEmpty(t *testing.T) {
	req := &message.Request{}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GenerationConfig != nil {
		t.Errorf("GenerationConfig = %+v, want nil when no params set", out.GenerationConfig)
	}
}

func TestToGoogleRequest_GenerationConfigNeverSetsCandidateCount(t *testing.T) {
	temp := 0.5
	req := &message.Request{Params: message.GenerationParams{Temperature: &temp}}
	out, err := ToGoogleRequest(req, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GenerationConfig.CandidateCount != nil {
		t.Error("CandidateCount should never be set by the converter")
	}
}
