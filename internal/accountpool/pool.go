package accountpool

import (
	"sync"
	"time"

	"github.com/brightloop/antigravity-gateway/internal/fallback"
)

// BlipTolerance is how young a cooldown must be for the pool to serve the
// sticky account anyway when every account is cooling down
// (spec.md section 3's invariant).
const BlipTolerance = 2 * time.Minute

// Config tunes the pool's cooldown and tolerance windows; zero values fall
// back to the package defaults.
type Config struct {
	BlipTolerance time.Duration
}

// Pool is the process-wide account pool. All mutations are serialized by
// mu, satisfying spec.md section 5's ordering guarantee: an observer that
// sees a post-update read never sees a pre-update selection.
type Pool struct {
	mu            sync.Mutex
	accounts      []*Account
	blipTolerance time.Duration
	rrCursor      int
	onChange      func([]*Account)
	tokens        *tokenState
}

// New constructs a Pool over accounts (read at startup by internal/store;
// an empty slice is valid and simply never selects).
func New(accounts []*Account, cfg Config) *Pool {
	tolerance := cfg.BlipTolerance
	if tolerance <= 0 {
		tolerance = BlipTolerance
	}
	return &Pool{accounts: accounts, blipTolerance: tolerance}
}

// OnChange registers a hook invoked after any mutation with the full
// current account slice, so a caller can wire atomic persistence
// (internal/store) without the pool depending on a storage format.
func (p *Pool) OnChange(fn func([]*Account)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

func (p *Pool) notifyLocked() {
	if p.onChange != nil {
		snapshot := make([]*Account, len(p.accounts))
		copy(snapshot, p.accounts)
		p.onChange(snapshot)
	}
}

// Pick implements the selection policy from spec.md section 4.6:
//  1. the sticky candidate (last used for sessionID) if not cooling down.
//  2. otherwise round-robin, skipping accounts cooling down for model.
//  3. otherwise, if every account is cooling down but the sticky
//     candidate's cooldown for model is younger than BlipTolerance,
//     serve it anyway.
//
// Returns fallback.ErrNoAccount when no account can serve the request.
func (p *Pool) Pick(model, sessionID string) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.accounts) == 0 {
		return nil, fallback.ErrNoAccount
	}
	now := time.Now()

	var sticky *Account
	if sessionID != "" {
		for _, a := range p.accounts {
			if a.LastSessionID == sessionID {
				sticky = a
				break
			}
		}
	}
	if sticky != nil && !sticky.isCoolingDown(model, now) {
		sticky.LastUsed = now
		return sticky, nil
	}

	n := len(p.accounts)
	for i := 0; i < n; i++ {
		idx := (p.rrCursor + i) % n
		a := p.accounts[idx]
		if !a.isCoolingDown(model, now) {
			p.rrCursor = idx + 1
			a.LastUsed = now
			return a, nil
		}
	}

	if sticky != nil {
		lim := sticky.Limits[model]
		if lim != nil && now.Sub(lim.Last429At) < p.blipTolerance {
			sticky.LastUsed = now
			return sticky, nil
		}
	}

	return nil, fallback.ErrNoAccount
}

// BindSession records that acct served sessionID, making it the sticky
// candidate for future requests sharing that session id.
func (p *Pool) BindSession(acct *Account, sessionID string) {
	if acct == nil || sessionID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	acct.LastSessionID = sessionID
	p.notifyLocked()
}

// RecordRateLimit applies a 429 observed against acct for model: it
// increments the consecutive-429 counter, advances the cooldown by
// delay scaled by the backoff multiplier, and persists the new state.
func (p *Pool) RecordRateLimit(acct *Account, model string, delay time.Duration) {
	if acct == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	lim := acct.limitFor(model)
	lim.Consecutive429s++
	lim.Last429At = time.Now()
	lim.CooldownUntil = lim.Last429At.Add(delay)
	p.notifyLocked()
}

// Snapshot returns the current per-account, per-model limits view for
// GET /account-limits. Expired cooldowns are never reported as active
// (SPEC_FULL.md testable property 7): an entry is included only while its
// cooldown is still in the future.
func (p *Pool) Snapshot() []LimitsView {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var views []LimitsView
	for _, a := range p.accounts {
		for model, lim := range a.Limits {
			if !now.Before(lim.CooldownUntil) {
				continue
			}
			views = append(views, LimitsView{
				Email:           a.Email,
				Model:           model,
				CooldownUntil:   lim.CooldownUntil,
				Consecutive429s: lim.Consecutive429s,
			})
		}
	}
	return views
}

// Len reports the number of accounts in the pool, for GET /health.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}
