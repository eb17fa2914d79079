// Package convert implements lossless bidirectional translation between the
// Anthropic-shaped internal representation (internal/message) and the
// upstream's Google generative-content wire dialect, plus the structural
// repairs and purity filtering spec.md section 4.3 requires before dispatch.
package convert

// GoogleRequest is the body sent to the upstream's
// v1internal:streamGenerateContent endpoint (unwrapped; the envelope fields
// project/model/userAgent/requestId/requestType are added by internal/upstream).
type GoogleRequest struct {
	SystemInstruction *GoogleContent          `json:"systemInstruction,omitempty"`
	Contents          []GoogleContent         `json:"contents"`
	Tools             []GoogleTool            `json:"tools,omitempty"`
	ToolConfig        *GoogleToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *GoogleGenerationConfig `json:"generationConfig,omitempty"`
}

type GoogleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GooglePart `json:"parts"`
}

type GooglePart struct {
	Text             string                  `json:"text,omitempty"`
	Thought          bool                    `json:"thought,omitempty"`
	ThoughtSignature string                  `json:"thoughtSignature,omitempty"`
	InlineData       *GoogleInlineData       `json:"inlineData,omitempty"`
	FunctionCall     *GoogleFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *GoogleFunctionResponse `json:"functionResponse,omitempty"`
}

type GoogleInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GoogleFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type GoogleFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type GoogleTool struct {
	FunctionDeclarations []GoogleFunctionDeclaration `json:"functionDeclarations"`
}

// GoogleFunctionDeclaration uses Claude's parametersJsonSchema key when
// TargetIsClaude and parameters otherwise, per the upstream envelope remap
// (spec.md section 4.5); the two fields are mutually exclusive on the wire,
// so only one is ever populated at marshal time by internal/upstream.
type GoogleFunctionDeclaration struct {
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	Parameters          map[string]any `json:"parameters,omitempty"`
	ParametersJSONSchema map[string]any `json:"parametersJsonSchema,omitempty"`
}

type GoogleToolConfig struct {
	FunctionCallingConfig GoogleFunctionCallingConfig `json:"functionCallingConfig"`
}

type GoogleFunctionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type GoogleGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	CandidateCount  *int     `json:"candidateCount,omitempty"`
}

// GoogleResponse is one decoded SSE datum's unwrapped "response" field, or
// the whole body for a non-streaming call.
type GoogleResponse struct {
	Candidates    []GoogleCandidate   `json:"candidates"`
	UsageMetadata *GoogleUsageMetadata `json:"usageMetadata,omitempty"`
}

type GoogleCandidate struct {
	Content      GoogleContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index,omitempty"`
}

type GoogleUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}
