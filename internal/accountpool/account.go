// Package accountpool implements multi-credential selection, per-model
// rate-limit state, cooldowns, and token refresh, per spec.md section 4.6.
package accountpool

import "time"

// ModelLimit is the per-account, per-model rate-limit state from
// spec.md section 3.
type ModelLimit struct {
	CooldownUntil   time.Time `json:"cooldownUntil"`
	Last429At       time.Time `json:"last429At"`
	Consecutive429s int       `json:"consecutive429s"`
}

// Account is one stored credential, per spec.md section 3.
type Account struct {
	Email             string                 `json:"email"`
	RefreshToken      string                 `json:"refreshToken"`
	AccessToken       string                 `json:"accessToken"`
	AccessTokenExpiry time.Time              `json:"accessTokenExpiry"`
	ProjectID         string                 `json:"projectId"`
	Limits            map[string]*ModelLimit `json:"limits"`
	LastUsed          time.Time              `json:"lastUsed"`

	// LastSessionID is the session id this account was last picked for;
	// the sticky-selection candidate for a future request sharing it.
	LastSessionID string `json:"lastSessionId"`
}

func (a *Account) limitFor(model string) *ModelLimit {
	if a.Limits == nil {
		a.Limits = make(map[string]*ModelLimit)
	}
	lim, ok := a.Limits[model]
	if !ok {
		lim = &ModelLimit{}
		a.Limits[model] = lim
	}
	return lim
}

func (a *Account) isCoolingDown(model string, now time.Time) bool {
	lim, ok := a.Limits[model]
	return ok && now.Before(lim.CooldownUntil)
}

// LimitsView is the read model behind GET /account-limits
// (SPEC_FULL.md section 3).
type LimitsView struct {
	Email           string    `json:"email"`
	Model           string    `json:"model"`
	CooldownUntil   time.Time `json:"cooldownUntil"`
	Consecutive429s int       `json:"consecutive429s"`
}
