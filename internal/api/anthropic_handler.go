package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightloop/antigravity-gateway/internal/anthropic"
	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/message"
)

// Messages handles POST /v1/messages.
func (h *Handlers) Messages() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.writeError(c, gwerr.Translation("body", "failed to read request body"))
			return
		}
		raw = convert.StripUndefined(raw)

		var wire anthropic.Request
		if err := json.Unmarshal(raw, &wire); err != nil {
			h.writeError(c, gwerr.Translation("body", "malformed request body: "+err.Error()))
			return
		}

		req, err := anthropic.ToInternalRequest(&wire)
		if err != nil {
			h.writeError(c, err)
			return
		}
		sessionID := h.normalize(req)
		id := "msg_" + uuid.NewString()

		if req.Stream {
			h.streamAnthropic(c, req, sessionID, id)
			return
		}

		result, err := h.dispatch(c.Request.Context(), req, sessionID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		msg := convert.FromGoogleResponse(result.Response)
		assignToolCallIDs(&msg)

		resp := anthropic.FromInternalMessage(msg, result.Model, id, anthropicStopReason(result.Response), anthropicUsage(result.Response))
		c.JSON(http.StatusOK, resp)
	}
}

func anthropicStopReason(resp *convert.GoogleResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "end_turn"
	}
	switch resp.Candidates[0].FinishReason {
	case "", "STOP":
		return "end_turn"
	case "MAX_TOKENS":
		return "max_tokens"
	default:
		return "end_turn"
	}
}

func anthropicUsage(resp *convert.GoogleResponse) anthropic.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return anthropic.Usage{}
	}
	return anthropic.Usage{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}
}

// streamAnthropic writes the named-event Messages streaming protocol:
// message_start once, then per content block content_block_start/delta(s)
// /stop as each arrives, and message_delta/message_stop to close.
func (h *Handlers) streamAnthropic(c *gin.Context, req *message.Request, sessionID, id string) {
	result, err := h.dispatchStream(c.Request.Context(), req, sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	started := false
	index := 0
	var lastFinish string
	var usage anthropic.Usage
	closed := false

	c.Stream(func(w io.Writer) bool {
		if closed {
			return false
		}
		if !started {
			_ = anthropic.WriteEvent(w, anthropic.NewMessageStart(id, result.Model))
			started = true
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case chunk, ok := <-result.Chunks:
			if !ok {
				_ = anthropic.WriteEvent(w, anthropic.NewMessageDelta(lastFinish, usage))
				_ = anthropic.WriteEvent(w, anthropic.NewMessageStop())
				closed = true
				return true
			}
			if chunk.Err != nil {
				h.logger().WithError(chunk.Err).Warn("anthropic stream: upstream error mid-stream")
				_ = anthropic.WriteEvent(w, anthropic.NewMessageDelta("end_turn", usage))
				_ = anthropic.WriteEvent(w, anthropic.NewMessageStop())
				closed = true
				return true
			}
			if chunk.Response != nil && chunk.Response.UsageMetadata != nil {
				usage = anthropicUsage(chunk.Response)
			}
			if chunk.Response != nil && len(chunk.Response.Candidates) > 0 && chunk.Response.Candidates[0].FinishReason != "" {
				lastFinish = anthropicStopReason(chunk.Response)
			}
			msg := convert.FromGoogleResponse(chunk.Response)
			assignToolCallIDs(&msg)
			writeAnthropicContentEvents(w, &index, msg.Content)
			return true
		}
	})
}

// writeAnthropicContentEvents emits one complete content_block_start/
// delta/stop triple per content part in this chunk. Google never splits a
// single part across chunks at a finer grain than this gateway observes
// it, so each part is its own block rather than an accumulated delta run.
func writeAnthropicContentEvents(w io.Writer, index *int, content []message.Content) {
	for _, c := range content {
		i := *index
		*index++
		_ = anthropic.WriteEvent(w, anthropic.NewContentBlockStart(i, c))
		switch {
		case c.Text != nil:
			_ = anthropic.WriteEvent(w, anthropic.NewTextDelta(i, c.Text.Text))
		case c.Thinking != nil:
			_ = anthropic.WriteEvent(w, anthropic.NewThinkingDelta(i, c.Thinking.Text))
			if c.Thinking.Signature != "" {
				_ = anthropic.WriteEvent(w, anthropic.NewSignatureDelta(i, c.Thinking.Signature))
			}
		case c.ToolUse != nil:
			if b, err := json.Marshal(c.ToolUse.Input); err == nil {
				_ = anthropic.WriteEvent(w, anthropic.NewInputJSONDelta(i, string(b)))
			}
		}
		_ = anthropic.WriteEvent(w, anthropic.NewContentBlockStop(i))
	}
}
