package accountpool

import (
	"errors"
	"testing"
	"time"

	"github.com/brightloop/antigravity-gateway/internal/fallback"
)

func newAccount(email string) *Account {
	return &Account{Email: email, Limits: map[string]*ModelLimit{}}
}

func TestPick_StickyAccountPreferredWhenNotCoolingDown(t *testing.T) {
	a := newAccount("a@example.com")
	b := newAccount("b@example.com")
	a.LastSessionID = "sess-1"
	p := New([]*Account{a, b}, Config{})

	got, err := p.Pick("claude-sonnet-4-5", "sess-1")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if got != a {
		t.Errorf("got %s, want sticky account a", got.Email)
	}
}

func TestPick_SkipsStickyAccountCoolingDown(t *testing.T) {
	a := newAccount("a@example.com")
	b := newAccount("b@example.com")
	a.LastSessionID = "sess-1"
	a.Limits["claude-sonnet-4-5"] = &ModelLimit{CooldownUntil: time.Now().Add(time.Hour)}
	p := New([]*Account{a, b}, Config{})

	got, err := p.Pick("claude-sonnet-4-5", "sess-1")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if got != b {
		t.Errorf("got %s, want round-robin fallback to b", got.Email)
	}
}

func TestPick_RoundRobinsAcrossCalls(t *testing.T) {
	a := newAccount("a@example.com")
	b := newAccount("b@example.com")
	p := New([]*Account{a, b}, Config{})

	first, err := p.Pick("claude-sonnet-4-5", "")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	second, err := p.Pick("claude-sonnet-4-5", "")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if first == second {
		t.Errorf("expected round-robin to alternate accounts, got %s twice", first.Email)
	}
}

func TestPick_BriefBlipToleranceServesStickyWhenAllCoolingDown(t *testing.T) {
	a := newAccount("a@example.com")
	b := newAccount("b@example.com")
	a.LastSessionID = "sess-1"
	now := time.Now()
	a.Limits["claude-sonnet-4-5"] = &ModelLimit{
		CooldownUntil: now.Add(time.Hour),
		Last429At:     now.Add(-30 * time.Second),
	}
	b.Limits["claude-sonnet-4-5"] = &ModelLimit{CooldownUntil: now.Add(time.Hour)}
	p := New([]*Account{a, b}, Config{})

	got, err := p.Pick("claude-sonnet-4-5", "sess-1")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if got != a {
		t.Errorf("got %s, want brief-blip-tolerance sticky account a", got.Email)
	}
}

func TestPick_ExhaustedReturnsErrNoAccount(t *testing.T) {
	a := newAccount("a@example.com")
	a.LastSessionID = "sess-1"
	now := time.Now()
	a.Limits["claude-sonnet-4-5"] = &ModelLimit{
		CooldownUntil: now.Add(time.Hour),
		Last429At:     now.Add(-time.Hour),
	}
	p := New([]*Account{a}, Config{})

	_, err := p.Pick("claude-sonnet-4-5", "sess-1")
	if !errors.Is(err, fallback.ErrNoAccount) {
		t.Fatalf("err = %v, want fallback.ErrNoAccount", err)
	}
}

func TestPick_EmptyPoolReturnsErrNoAccount(t *testing.T) {
	p := New(nil, Config{})
	_, err := p.Pick("claude-sonnet-4-5", "sess-1")
	if !errors.Is(err, fallback.ErrNoAccount) {
		t.Fatalf("err = %v, want fallback.ErrNoAccount", err)
	}
}

func TestRecordRateLimit_AdvancesCooldownAndCounter(t *testing.T) {
	a := newAccount("a@example.com")
	p := New([]*Account{a}, Config{})

	p.RecordRateLimit(a, "claude-sonnet-4-5", 30*time.Second)
	lim := a.Limits["claude-sonnet-4-5"]
	if lim.Consecutive429s != 1 {
		t.Errorf("Consecutive429s = %d, want 1", lim.Consecutive429s)
	}
	if !lim.CooldownUntil.After(time.Now()) {
		t.Errorf("CooldownUntil not in the future")
	}

	p.RecordRateLimit(a, "claude-sonnet-4-5", 30*time.Second)
	if lim.Consecutive429s != 2 {
		t.Errorf("Consecutive429s = %d, want 2 after second 429", lim.Consecutive429s)
	}
}

func TestSnapshot_ExcludesExpiredCooldowns(t *testing.T) {
	a := newAccount("a@example.com")
	now := time.Now()
	a.Limits["claude-sonnet-4-5"] = &ModelLimit{CooldownUntil: now.Add(-time.Minute)}
	a.Limits["gemini-2.5-pro"] = &ModelLimit{CooldownUntil: now.Add(time.Minute)}
	p := New([]*Account{a}, Config{})

	views := p.Snapshot()
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1 (expired cooldown excluded)", len(views))
	}
	if views[0].Model != "gemini-2.5-pro" {
		t.Errorf("got model %s, want gemini-2.5-pro", views[0].Model)
	}
}

func TestBindSession_SetsStickyCandidateForFutureRequests(t *testing.T) {
	a := newAccount("a@example.com")
	b := newAccount("b@example.com")
	p := New([]*Account{a, b}, Config{})

	p.BindSession(b, "sess-2")
	got, err := p.Pick("claude-sonnet-4-5", "sess-2")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if got != b {
		t.Errorf("got %s, want bound sticky account b", got.Email)
	}
}

func TestOnChange_FiresAfterMutation(t *testing.T) {
	a := newAccount("a@example.com")
	p := New([]*Account{a}, Config{})

	var notified []*Account
	p.OnChange(func(accounts []*Account) { notified = accounts })

	p.RecordRateLimit(a, "claude-sonnet-4-5", time.Second)
	if len(notified) != 1 || notified[0].Email != "a@example.com" {
		t.Errorf("onChange hook did not fire with expected snapshot")
	}
}

func TestLen_ReportsAccountCount(t *testing.T) {
	p := New([]*Account{newAccount("a"), newAccount("b")}, Config{})
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}
