package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/fallback"
	"github.com/brightloop/antigravity-gateway/internal/message"
	"github.com/brightloop/antigravity-gateway/internal/registry"
	"github.com/brightloop/antigravity-gateway/internal/session"
	"github.com/brightloop/antigravity-gateway/internal/thinking"
	"github.com/brightloop/antigravity-gateway/internal/upstream"
)

// requestClient returns an *upstream.Client sharing the pool and HTTP
// transport but carrying a snapshot of the current endpoint order. A
// concurrent config reload swaps h.Watcher's live view, not this
// snapshot, so one request's endpoint fallback order never changes
// mid-flight (SPEC_FULL.md testable property 8).
func (h *Handlers) requestClient() *upstream.Client {
	snapshot := *h.Client
	snapshot.Endpoints = h.Watcher.Current().Endpoints
	return &snapshot
}

// normalize applies the mutations that must happen exactly once, before
// any fallback attempt, on a request already in the internal
// representation: target family, tool-result ordering repair, and the
// session id used for sticky account selection and prompt caching.
func (h *Handlers) normalize(req *message.Request) string {
	req.TargetModel = registry.Family(req.Model)
	convert.RepairToolResultOrdering(req)
	return session.DeriveID(req)
}

// dispatchResult carries the response actually served alongside the model
// id that produced it, since a fallback attempt may have served an
// alternate model from the one the caller requested.
type dispatchResult struct {
	Response *convert.GoogleResponse
	Model    string
}

// dispatch runs one non-streaming round trip: cross-model thinking policy,
// translation to the upstream dialect, and fallback-aware delivery via
// internal/upstream. thinking.ApplyCrossModelPolicy is re-applied per
// fallback attempt because it depends on TargetModel, which changes
// between the primary and the alternate model.
func (h *Handlers) dispatch(ctx context.Context, req *message.Request, sessionID string) (dispatchResult, error) {
	client := h.requestClient()
	resp, err := fallback.Dispatch(req.Model, h.fallbackEnabled(), func(model string, allowFallback bool) (dispatchResult, error) {
		attempt := *req
		attempt.Model = model
		attempt.TargetModel = registry.Family(model)
		thinking.ApplyCrossModelPolicy(h.Thinking, sessionID, &attempt)

		gReq, err := convert.ToGoogleRequest(&attempt, h.GatewayConfig.Get().SystemInstruction)
		if err != nil {
			return dispatchResult{}, err
		}
		gResp, err := client.Generate(ctx, model, sessionID, gReq)
		if err != nil {
			return dispatchResult{}, err
		}
		h.rememberSignatures(sessionID, attempt.TargetModel, gResp)
		return dispatchResult{Response: gResp, Model: model}, nil
	})
	return resp, err
}

// streamResult is one upstream chunk alongside the model id it was served
// by, for the same fallback-model-identity reason as dispatchResult.
type streamResult struct {
	Chunks <-chan upstream.Chunk
	Model  string
}

// dispatchStream is dispatch's streaming counterpart: internal/upstream's
// peek-and-retry already validates the first chunk before this call
// returns, so fallback.Dispatch's ErrNoAccount/retry-once contract applies
// identically to the streaming and non-streaming paths.
func (h *Handlers) dispatchStream(ctx context.Context, req *message.Request, sessionID string) (streamResult, error) {
	client := h.requestClient()
	return fallback.Dispatch(req.Model, h.fallbackEnabled(), func(model string, allowFallback bool) (streamResult, error) {
		attempt := *req
		attempt.Model = model
		attempt.TargetModel = registry.Family(model)
		thinking.ApplyCrossModelPolicy(h.Thinking, sessionID, &attempt)

		gReq, err := convert.ToGoogleRequest(&attempt, h.GatewayConfig.Get().SystemInstruction)
		if err != nil {
			return streamResult{}, err
		}
		chunks, err := client.StreamGenerate(ctx, model, sessionID, gReq)
		if err != nil {
			return streamResult{}, err
		}
		return streamResult{Chunks: h.rememberingChunks(ctx, sessionID, attempt.TargetModel, chunks), Model: model}, nil
	})
}

// rememberingChunks forwards each chunk unchanged but binds any thought
// signature it carries into the cache first, so a streamed turn's
// signatures are available to the next request's
// thinking.ApplyCrossModelPolicy just as a non-streaming turn's are via
// dispatch's call to rememberSignatures. Every forward races against
// ctx.Done() so a caller that stops draining (the request was cancelled or
// the client disconnected) lets this goroutine exit instead of blocking on
// the send forever, which would otherwise leak both the goroutine and the
// upstream stream it is draining.
func (h *Handlers) rememberingChunks(ctx context.Context, sessionID string, family message.Family, in <-chan upstream.Chunk) <-chan upstream.Chunk {
	out := make(chan upstream.Chunk)
	go func() {
		defer close(out)
		for chunk := range in {
			if chunk.Err == nil {
				h.rememberSignatures(sessionID, family, chunk.Response)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// rememberSignatures binds every thought signature in a completed response
// to the family that produced it, so a later request whose history crosses
// a model-family boundary can apply thinking.ApplyCrossModelPolicy
// correctly (spec.md section 4.2).
func (h *Handlers) rememberSignatures(sessionID string, family message.Family, resp *convert.GoogleResponse) {
	if resp == nil || len(resp.Candidates) == 0 {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.ThoughtSignature != "" {
			h.Thinking.Remember(sessionID, part.ThoughtSignature, family)
		}
	}
}

// assignToolCallIDs fills in an id for every tool_use part the upstream
// left unidentified: Google's functionCall carries no call id of its own,
// but both OpenAI's tool_calls[].id and Anthropic's tool_use.id are
// required on the wire.
func assignToolCallIDs(msg *message.Message) {
	for i := range msg.Content {
		if tu := msg.Content[i].ToolUse; tu != nil && tu.ID == "" {
			tu.ID = "toolu_" + uuid.NewString()
		}
	}
}
