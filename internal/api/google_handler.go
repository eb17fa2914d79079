package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/fallback"
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/schema"
	"github.com/brightloop/antigravity-gateway/internal/session"
)

// dispatchGoogleRoute resolves the colon-suffixed method on
// /v1beta/models/{model}:generateContent|streamGenerateContent — Gin's
// router splits path segments on "/", not ":", so both verbs arrive
// through one route bound to a single ":modelAndMethod" parameter.
func (h *Handlers) dispatchGoogleRoute() gin.HandlerFunc {
	generate := h.googleGenerateContent()
	return func(c *gin.Context) {
		raw := c.Param("modelAndMethod")
		model, method, ok := strings.Cut(raw, ":")
		if !ok {
			h.writeError(c, gwerr.Translation("model", "expected {model}:generateContent or {model}:streamGenerateContent"))
			return
		}
		switch method {
		case "generateContent", "streamGenerateContent":
			c.Params = append(c.Params, gin.Param{Key: "model", Value: model})
			c.Params = append(c.Params, gin.Param{Key: "method", Value: method})
			generate(c)
		default:
			h.writeError(c, gwerr.Translation("model", "unknown method: "+method))
		}
	}
}

// googleGenerateContent implements POST /v1beta/models/{model}:generateContent
// and :streamGenerateContent. The caller's body is already the upstream's
// native dialect, so no internal/convert request translation runs; the
// only normalization is sanitizing caller-supplied tool schemas the same
// way internal/convert.ToGoogleRequest does for the other two dialects.
func (h *Handlers) googleGenerateContent() gin.HandlerFunc {
	return func(c *gin.Context) {
		model := c.Param("model")
		streaming := c.Param("method") == "streamGenerateContent"

		var body convert.GoogleRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			h.writeError(c, gwerr.Translation("body", "malformed request body: "+err.Error()))
			return
		}
		normalizeGoogleRequest(&body)

		sessionID := session.DeriveIDFromGoogleRequest(&body)

		if streaming || c.Query("alt") == "sse" {
			h.streamGoogle(c, model, &body, sessionID)
			return
		}

		client := h.requestClient()
		resp, err := fallback.Dispatch(model, h.fallbackEnabled(), func(attemptModel string, allowFallback bool) (*convert.GoogleResponse, error) {
			return client.Generate(c.Request.Context(), attemptModel, sessionID, &body)
		})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// normalizeGoogleRequest applies the same request-time rules the other two
// dialects get from internal/convert.ToGoogleRequest, since this path
// passes the caller's body straight through without building one: tool
// schemas are sanitized, and candidateCount is stripped from the
// generation config before dispatch (spec.md section 4.3 — this gateway
// never serves more than one candidate).
func normalizeGoogleRequest(body *convert.GoogleRequest) {
	for i := range body.Tools {
		for j := range body.Tools[i].FunctionDeclarations {
			d := &body.Tools[i].FunctionDeclarations[j]
			if d.Parameters != nil {
				d.Parameters = schema.Sanitize(d.Parameters)
			}
			if d.ParametersJSONSchema != nil {
				d.ParametersJSONSchema = schema.Sanitize(d.ParametersJSONSchema)
			}
		}
	}
	if body.GenerationConfig != nil {
		body.GenerationConfig.CandidateCount = nil
	}
}

func (h *Handlers) streamGoogle(c *gin.Context, model string, body *convert.GoogleRequest, sessionID string) {
	client := h.requestClient()
	result, err := fallback.Dispatch(model, h.fallbackEnabled(), func(attemptModel string, allowFallback bool) (streamResult, error) {
		chunks, err := client.StreamGenerate(c.Request.Context(), attemptModel, sessionID, body)
		if err != nil {
			return streamResult{}, err
		}
		return streamResult{Chunks: chunks, Model: attemptModel}, nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case chunk, ok := <-result.Chunks:
			if !ok {
				return false
			}
			if chunk.Err != nil {
				h.logger().WithError(chunk.Err).Warn("google stream: upstream error mid-stream")
				return false
			}
			b, err := json.Marshal(struct {
				Response *convert.GoogleResponse `json:"response"`
			}{Response: chunk.Response})
			if err != nil {
				return false
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(b)
			_, _ = w.Write([]byte("\n\n"))
			return true
		}
	})
}
