package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/brightloop/antigravity-gateway/internal/accountpool"
	"github.com/brightloop/antigravity-gateway/internal/convert"
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
	"github.com/brightloop/antigravity-gateway/internal/ratelimit"
)

// streamPath is the only upstream path this client calls: spec.md section
// 4.5 always issues the streaming endpoint, even for non-streaming
// callers, because the non-streaming path carries tighter quotas.
const streamPath = "/v1internal:streamGenerateContent?alt=sse"

// MinCooldown is the floor applied to a parsed retry delay.
const MinCooldown = 5 * time.Second

// MaxAccountAttempts bounds the peek-and-retry loop (spec.md section 4.5:
// "up to 3 attempts total").
const MaxAccountAttempts = 3

// peekTimeout bounds how long the client waits for a first, validated,
// non-empty SSE chunk before discarding the stream and retrying with a
// different account.
const peekTimeout = 30 * time.Second

// Client dispatches translated requests to the Cloud Code upstream.
type Client struct {
	// Endpoints is the ordered list of upstream hosts; the primary is
	// always attempted first.
	Endpoints []string

	HTTPClient *http.Client
	Pool       *accountpool.Pool
}

// Chunk is one unwrapped, translated-ready Google response frame read off
// the upstream SSE stream.
type Chunk struct {
	Response *convert.GoogleResponse
	Err      error
}

// StreamGenerate dispatches body for model, returning a channel of
// unwrapped response chunks in arrival order. The channel is closed when
// the upstream stream ends or the context is cancelled.
func (c *Client) StreamGenerate(ctx context.Context, model, sessionID string, body *convert.GoogleRequest) (<-chan Chunk, error) {
	var lastErr error

	for attempt := 0; attempt < MaxAccountAttempts; attempt++ {
		account, err := c.Pool.Pick(model, sessionID)
		if err != nil {
			return nil, err
		}
		token, err := c.Pool.GetToken(ctx, account)
		if err != nil {
			return nil, err
		}

		httpResp, err := c.doWithEndpointFallback(ctx, account, token, model, body)
		if err != nil {
			if rl, ok := err.(*rateLimitedErr); ok {
				c.Pool.RecordRateLimit(account, model, rl.delay)
				lastErr = rl.err
				continue
			}
			return nil, err
		}

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

		first, ok, err := readFirstChunk(scanner, peekTimeout)
		if err != nil || !ok {
			_ = httpResp.Body.Close()
			if err != nil {
				lastErr = err
			} else {
				lastErr = gwerr.Empty("upstream returned an empty response")
			}
			continue
		}

		c.Pool.BindSession(account, sessionID)
		return c.forward(ctx, httpResp.Body, scanner, first), nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, gwerr.Upstream(http.StatusServiceUnavailable, "no upstream account available after retries", nil)
}

// Generate performs a non-streaming call by issuing the streaming
// request and merging all chunks into a single response frame, per
// spec.md section 4.5.
func (c *Client) Generate(ctx context.Context, model, sessionID string, body *convert.GoogleRequest) (*convert.GoogleResponse, error) {
	stream, err := c.StreamGenerate(ctx, model, sessionID, body)
	if err != nil {
		return nil, err
	}
	var chunks []*convert.GoogleResponse
	for chunk := range stream {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		chunks = append(chunks, chunk.Response)
	}
	if len(chunks) == 0 {
		return nil, gwerr.Empty("upstream produced no response chunks")
	}
	return convert.MergeStreamChunks(chunks), nil
}

// rateLimitedErr distinguishes a 429 that should rotate accounts (the
// common case) from other upstream failures.
type rateLimitedErr struct {
	err   error
	delay time.Duration
}

func (e *rateLimitedErr) Error() string { return e.err.Error() }

// doWithEndpointFallback iterates c.Endpoints on network errors, 404 (the
// model is unknown at that endpoint), and an endpoint-scoped 429, per
// spec.md section 4.5's endpoint policy.
func (c *Client) doWithEndpointFallback(ctx context.Context, account *accountpool.Account, token, model string, body *convert.GoogleRequest) (*http.Response, error) {
	env := newEnvelope(account.ProjectID, model, body)
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, gwerr.Translation("request", "failed to marshal upstream envelope")
	}
	// Invariant 1 (spec.md section 4.3): the dispatched request carries no
	// null/undefined at any depth, regardless of which dialect it came from
	// — a translated body's own purity pass doesn't catch nulls nested
	// inside a raw tool-call-argument string or a Google-native passthrough.
	payload = convert.StripUndefined(payload)

	var lastErr error
	for i, host := range c.Endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(host, "/")+streamPath, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header = buildHeaders(token, model, true)

		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = err
			if i+1 < len(c.Endpoints) {
				continue
			}
			return nil, gwerr.Transport(fmt.Sprintf("upstream request failed: %v", err), err)
		}

		if resp.StatusCode == http.StatusNotFound && i+1 < len(c.Endpoints) {
			_ = resp.Body.Close()
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			bodyBytes, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if isEndpointScopedQuota(bodyBytes) && i+1 < len(c.Endpoints) {
				continue
			}
			delay := ratelimit.ParseRetryDelay(resp.Header, bodyBytes, MinCooldown)
			return nil, &rateLimitedErr{
				err:   gwerr.RateLimit("rate limited by upstream", errors.New(string(bodyBytes))),
				delay: delay,
			}
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			bodyBytes, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, gwerr.Upstream(resp.StatusCode, "upstream error", bodyBytes)
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, gwerr.Transport(fmt.Sprintf("upstream request failed: %v", lastErr), lastErr)
	}
	return nil, gwerr.Upstream(http.StatusServiceUnavailable, "no upstream endpoint configured", nil)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// isEndpointScopedQuota reports whether a 429 body describes a per-
// endpoint/location quota rather than a per-account quota. Upstream does
// not document a stable discriminator; this gateway treats any mention
// of a location- or endpoint-scoped violation as endpoint-scoped and
// everything else as account-scoped.
func isEndpointScopedQuota(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "location") || strings.Contains(lower, "per-endpoint") || strings.Contains(lower, "regional")
}

// readFirstChunk implements the peek half of peek-and-retry: it reads one
// SSE data line off scanner, racing against timeout, and reports whether
// it decoded to a non-empty response frame. scanner is reused by forward
// on success, since a bufio.Scanner buffers ahead of the line it
// returns — starting a second Scanner over the same body would silently
// drop whatever it had already buffered.
func readFirstChunk(scanner *bufio.Scanner, timeout time.Duration) (*convert.GoogleResponse, bool, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			ch <- result{line: append([]byte(nil), line...)}
			return
		}
		ch <- result{err: scanner.Err()}
	}()

	select {
	case <-time.After(timeout):
		return nil, false, nil
	case r := <-ch:
		if r.err != nil {
			return nil, false, r.err
		}
		if r.line == nil {
			return nil, false, nil
		}
		resp, ok := decodeSSELine(r.line)
		if !ok || isEmptyResponse(resp) {
			return nil, false, nil
		}
		return resp, true, nil
	}
}

// forward streams remaining chunks after the validated first chunk,
// without further peeking, per spec.md section 4.5. It continues reading
// from the same scanner readFirstChunk used. Every send races against
// ctx.Done() so a caller that stops draining the channel (the request was
// cancelled or the client disconnected) lets this goroutine exit and
// close body instead of blocking on the send forever (spec.md section 5).
func (c *Client) forward(ctx context.Context, body io.ReadCloser, scanner *bufio.Scanner, first *convert.GoogleResponse) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer body.Close()

		if !sendChunk(ctx, out, Chunk{Response: first}) {
			return
		}

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			resp, ok := decodeSSELine(line)
			if !ok {
				continue
			}
			if !sendChunk(ctx, out, Chunk{Response: resp}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sendChunk(ctx, out, Chunk{Err: gwerr.Transport("upstream stream read failed", err)})
		}
	}()
	return out
}

// sendChunk sends chunk on out, or reports false without blocking further if
// ctx is cancelled first.
func sendChunk(ctx context.Context, out chan<- Chunk, chunk Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeSSELine unwraps the envelope's "response" field from one SSE
// data line (an "data: {...}" prefix is stripped if present).
func decodeSSELine(line []byte) (*convert.GoogleResponse, bool) {
	trimmed := bytes.TrimPrefix(line, []byte("data:"))
	trimmed = bytes.TrimSpace(trimmed)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, false
	}
	responseNode := gjson.GetBytes(trimmed, "response")
	raw := trimmed
	if responseNode.Exists() {
		raw = []byte(responseNode.Raw)
	}
	var resp convert.GoogleResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func isEmptyResponse(resp *convert.GoogleResponse) bool {
	if resp == nil || len(resp.Candidates) == 0 {
		return true
	}
	return len(resp.Candidates[0].Content.Parts) == 0
}
