package accountpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubRefresher struct {
	calls      int32
	delay      time.Duration
	err        error
	accessTok  string
	expiryFrom time.Duration
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return s.accessTok, time.Now().Add(s.expiryFrom), nil
}

func TestGetToken_ReturnsCachedTokenWhenFresh(t *testing.T) {
	a := &Account{Email: "a@example.com", AccessToken: "cached", AccessTokenExpiry: time.Now().Add(time.Hour)}
	p := New([]*Account{a}, Config{})
	stub := &stubRefresher{accessTok: "fresh", expiryFrom: time.Hour}
	p.SetRefresher(stub)

	tok, err := p.GetToken(context.Background(), a)
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if tok != "cached" {
		t.Errorf("tok = %q, want cached token", tok)
	}
	if stub.calls != 0 {
		t.Errorf("refresher called %d times, want 0", stub.calls)
	}
}

func TestGetToken_RefreshesWhenWithinSkew(t *testing.T) {
	a := &Account{Email: "a@example.com", RefreshToken: "rt", AccessToken: "stale", AccessTokenExpiry: time.Now().Add(time.Minute)}
	p := New([]*Account{a}, Config{})
	stub := &stubRefresher{accessTok: "refreshed", expiryFrom: time.Hour}
	p.SetRefresher(stub)

	tok, err := p.GetToken(context.Background(), a)
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if tok != "refreshed" {
		t.Errorf("tok = %q, want refreshed token", tok)
	}
	if a.AccessToken != "refreshed" {
		t.Errorf("account access token not updated")
	}
}

func TestGetToken_NoRefreshTokenReturnsAuthError(t *testing.T) {
	a := &Account{Email: "a@example.com", AccessTokenExpiry: time.Now().Add(-time.Hour)}
	p := New([]*Account{a}, Config{})
	p.SetRefresher(&stubRefresher{accessTok: "x", expiryFrom: time.Hour})

	_, err := p.GetToken(context.Background(), a)
	if err == nil {
		t.Fatal("expected an error for an account with no refresh token")
	}
}

func TestGetToken_NoRefresherConfiguredReturnsAuthError(t *testing.T) {
	a := &Account{Email: "a@example.com", RefreshToken: "rt", AccessTokenExpiry: time.Now().Add(-time.Hour)}
	p := New([]*Account{a}, Config{})

	_, err := p.GetToken(context.Background(), a)
	if err == nil {
		t.Fatal("expected an error when no refresher is configured")
	}
}

func TestGetToken_PropagatesRefreshFailure(t *testing.T) {
	a := &Account{Email: "a@example.com", RefreshToken: "rt", AccessTokenExpiry: time.Now().Add(-time.Hour)}
	p := New([]*Account{a}, Config{})
	p.SetRefresher(&stubRefresher{err: context.DeadlineExceeded})

	_, err := p.GetToken(context.Background(), a)
	if err == nil {
		t.Fatal("expected refresh failure to propagate")
	}
}

func TestGetToken_ConcurrentCallsDedupeIntoOneRefresh(t *testing.T) {
	a := &Account{Email: "a@example.com", RefreshToken: "rt", AccessTokenExpiry: time.Now().Add(-time.Hour)}
	p := New([]*Account{a}, Config{})
	stub := &stubRefresher{accessTok: "refreshed", expiryFrom: time.Hour, delay: 50 * time.Millisecond}
	p.SetRefresher(stub)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.GetToken(context.Background(), a); err != nil {
				t.Errorf("GetToken returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if stub.calls != 1 {
		t.Errorf("refresher called %d times, want exactly 1 (deduplicated)", stub.calls)
	}
}

func TestGetToken_OnChangeFiresAfterRefresh(t *testing.T) {
	a := &Account{Email: "a@example.com", RefreshToken: "rt", AccessTokenExpiry: time.Now().Add(-time.Hour)}
	p := New([]*Account{a}, Config{})
	p.SetRefresher(&stubRefresher{accessTok: "refreshed", expiryFrom: time.Hour})

	var notified bool
	p.OnChange(func(accounts []*Account) { notified = true })

	if _, err := p.GetToken(context.Background(), a); err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if !notified {
		t.Errorf("onChange hook did not fire after refresh")
	}
}
