package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brightloop/antigravity-gateway/internal/accountpool"
	"github.com/brightloop/antigravity-gateway/internal/convert"
)

func freshAccount(email string) *accountpool.Account {
	return &accountpool.Account{
		Email:             email,
		AccessToken:       "tok-" + email,
		AccessTokenExpiry: time.Now().Add(time.Hour),
		Limits:            map[string]*accountpool.ModelLimit{},
	}
}

func TestGenerate_SingleChunkReturnsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"pong"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":5}}}`+"\n")
	}))
	defer srv.Close()

	pool := accountpool.New([]*accountpool.Account{freshAccount("a")}, accountpool.Config{})
	client := &Client{Endpoints: []string{srv.URL}, Pool: pool}

	resp, err := client.Generate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].Content.Parts[0].Text != "pong" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGenerate_MergesMultipleChunks(t *testing.T) {
	lines := []string{
		`{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"pa"}]}}]}}`,
		`{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"rt"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":9}}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	defer srv.Close()

	pool := accountpool.New([]*accountpool.Account{freshAccount("a")}, accountpool.Config{})
	client := &Client{Endpoints: []string{srv.URL}, Pool: pool}

	resp, err := client.Generate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Candidates[0].Content.Parts) < 1 {
		t.Errorf("expected merged parts, got %+v", resp)
	}
}

func TestStreamGenerate_FallsBackToNextEndpointOn404(t *testing.T) {
	var secondCalled int32
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondCalled, 1)
		fmt.Fprint(w, `{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}}`+"\n")
	}))
	defer second.Close()

	pool := accountpool.New([]*accountpool.Account{freshAccount("a")}, accountpool.Config{})
	client := &Client{Endpoints: []string{first.URL, second.URL}, Pool: pool}

	_, err := client.Generate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if atomic.LoadInt32(&secondCalled) != 1 {
		t.Errorf("second endpoint was not called after a 404 from the first")
	}
}

func TestStreamGenerate_RotatesAccountOnAccountScopedRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "Bearer tok-a" {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"quota exceeded for this account"}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}}`+"\n")
	}))
	defer srv.Close()

	accA := freshAccount("a")
	accB := freshAccount("b")
	pool := accountpool.New([]*accountpool.Account{accA, accB}, accountpool.Config{})
	client := &Client{Endpoints: []string{srv.URL}, Pool: pool}

	_, err := client.Generate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if accA.Limits["claude-sonnet-4-5"] == nil || accA.Limits["claude-sonnet-4-5"].Consecutive429s != 1 {
		t.Errorf("expected account a to record a rate limit, got %+v", accA.Limits)
	}
}

func TestStreamGenerate_PeekAndRetrySkipsEmptyFirstChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "Bearer tok-a" {
			// Silent failure: stream closes with no usable first chunk.
			return
		}
		fmt.Fprint(w, `{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}}`+"\n")
	}))
	defer srv.Close()

	accA := freshAccount("a")
	accB := freshAccount("b")
	pool := accountpool.New([]*accountpool.Account{accA, accB}, accountpool.Config{})
	client := &Client{Endpoints: []string{srv.URL}, Pool: pool}

	resp, err := client.Generate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Candidates[0].Content.Parts[0].Text != "ok" {
		t.Errorf("expected retried account's response, got %+v", resp)
	}
}

func TestStreamGenerate_NoAccountsReturnsError(t *testing.T) {
	pool := accountpool.New(nil, accountpool.Config{})
	client := &Client{Endpoints: []string{"http://example.invalid"}, Pool: pool}

	_, err := client.StreamGenerate(context.Background(), "claude-sonnet-4-5", "sess-1", &convert.GoogleRequest{})
	if err == nil {
		t.Fatal("expected an error when the pool has no accounts")
	}
}
