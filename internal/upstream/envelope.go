// Package upstream dispatches translated requests to the Cloud Code
// generative-content service: request wrapping, endpoint fallback,
// SSE streaming with peek-and-retry, and non-streaming chunk merging,
// per spec.md section 4.5.
package upstream

import (
	"strings"

	"github.com/google/uuid"

	"github.com/brightloop/antigravity-gateway/internal/convert"
)

const userAgent = "antigravity"

// requestType selects the wrapper envelope's requestType field: image-
// generating Gemini models are "image_gen", every other model is the
// general-purpose "agent" type.
func requestType(model string) string {
	m := strings.ToLower(model)
	if strings.Contains(m, "image") {
		return "image_gen"
	}
	return "agent"
}

// envelope is the wrapper every upstream call is wrapped in.
type envelope struct {
	Project     string                 `json:"project,omitempty"`
	Model       string                 `json:"model"`
	Request     *convert.GoogleRequest `json:"request"`
	UserAgent   string                 `json:"userAgent"`
	RequestID   string                 `json:"requestId"`
	RequestType string                 `json:"requestType"`
}

func newEnvelope(project, model string, body *convert.GoogleRequest) envelope {
	rt := requestType(model)
	return envelope{
		Project:     project,
		Model:       model,
		Request:     body,
		UserAgent:   userAgent,
		RequestID:   rt + "-" + uuid.NewString(),
		RequestType: rt,
	}
}
