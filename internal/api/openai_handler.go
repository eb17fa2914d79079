package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
	"github.com/brightloop/antigravity-gateway/internal/openaicompat"
)

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handlers) ChatCompletions() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.writeError(c, gwerr.Translation("body", "failed to read request body"))
			return
		}
		raw = convert.StripUndefined(raw)

		var owReq openaicompat.Request
		if err := json.Unmarshal(raw, &owReq); err != nil {
			h.writeError(c, gwerr.Translation("body", "malformed request body: "+err.Error()))
			return
		}

		req, err := openaicompat.ToInternalRequest(&owReq)
		if err != nil {
			h.writeError(c, err)
			return
		}
		sessionID := h.normalize(req)
		id := "chatcmpl-" + uuid.NewString()

		if req.Stream {
			h.streamOpenAI(c, req, sessionID, id)
			return
		}

		result, err := h.dispatch(c.Request.Context(), req, sessionID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		msg := convert.FromGoogleResponse(result.Response)
		assignToolCallIDs(&msg)
		finish := finishReason(result.Response)
		resp := openaicompat.FromInternalMessage(msg, result.Model, id, finish)
		if result.Response.UsageMetadata != nil {
			resp.Usage = &openaicompat.Usage{
				PromptTokens:     result.Response.UsageMetadata.PromptTokenCount,
				CompletionTokens: result.Response.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      result.Response.UsageMetadata.TotalTokenCount,
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func finishReason(resp *convert.GoogleResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "stop"
	}
	switch resp.Candidates[0].FinishReason {
	case "", "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	default:
		return "stop"
	}
}

// streamOpenAI writes a "chat.completion.chunk" SSE stream, flushing after
// every data line, and terminates with the DoneSentinel per the OpenAI
// streaming protocol.
func (h *Handlers) streamOpenAI(c *gin.Context, req *message.Request, sessionID, id string) {
	result, err := h.dispatchStream(c.Request.Context(), req, sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	done := false
	c.Stream(func(w io.Writer) bool {
		if done {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case chunk, ok := <-result.Chunks:
			if !ok {
				writeSSELine(w, openaicompat.DoneSentinel)
				return false
			}
			if chunk.Err != nil {
				h.logger().WithError(chunk.Err).Warn("openai stream: upstream error mid-stream")
				writeSSELine(w, openaicompat.DoneSentinel)
				return false
			}
			msg := convert.FromGoogleResponse(chunk.Response)
			assignToolCallIDs(&msg)
			delta := openaicompat.DeltaFromContent(msg.Content)
			finish := ""
			if chunk.Response != nil && len(chunk.Response.Candidates) > 0 && chunk.Response.Candidates[0].FinishReason != "" {
				finish = finishReason(chunk.Response)
			}
			out := openaicompat.NewStreamChunk(id, result.Model, delta, finish)
			b, err := json.Marshal(out)
			if err != nil {
				return false
			}
			writeSSELine(w, string(b))
			return true
		}
	})
}

func writeSSELine(w io.Writer, data string) {
	_, _ = io.WriteString(w, "data: "+data+"\n\n")
}
