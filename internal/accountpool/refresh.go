package accountpool

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/brightloop/antigravity-gateway/internal/gwerr"
)

// TokenSkew is how far in advance of expiry a token is considered stale
// and due for refresh (spec.md section 4.6: "expires more than a skew
// window in the future").
const TokenSkew = 2 * time.Minute

// Refresher performs the OAuth refresh-token exchange. Concrete instances
// wrap an *oauth2.Config for the upstream's token endpoint; tests supply a
// stub.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiry time.Time, err error)
}

// OAuthRefresher adapts an *oauth2.Config to Refresher.
type OAuthRefresher struct {
	Config *oauth2.Config
}

func (r OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	ts := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.AccessToken, tok.Expiry, nil
}

// tokenRefresher is installed on a Pool via SetRefresher; a Pool with none
// configured fails open with a gwerr.Auth error rather than panicking.
type tokenState struct {
	refresher Refresher
	sf        singleflight.Group
}

// SetRefresher wires the OAuth refresh implementation. Must be called
// before GetToken is used for any account with an expired access token.
func (p *Pool) SetRefresher(r Refresher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokens == nil {
		p.tokens = &tokenState{}
	}
	p.tokens.refresher = r
}

// GetToken returns acct's current access token, refreshing it first if it
// expires within TokenSkew. Concurrent callers for the same account share
// one refresh (spec.md section 4.6).
func (p *Pool) GetToken(ctx context.Context, acct *Account) (string, error) {
	p.mu.Lock()
	if acct.AccessToken != "" && time.Until(acct.AccessTokenExpiry) > TokenSkew {
		token := acct.AccessToken
		p.mu.Unlock()
		return token, nil
	}
	tokens := p.tokens
	p.mu.Unlock()

	if tokens == nil || tokens.refresher == nil {
		return "", gwerr.Auth("no token refresher configured", nil)
	}
	if acct.RefreshToken == "" {
		return "", gwerr.Auth("account has no refresh token", nil)
	}

	v, err, _ := tokens.sf.Do(acct.Email, func() (any, error) {
		accessToken, expiry, err := tokens.refresher.Refresh(ctx, acct.RefreshToken)
		if err != nil {
			return "", gwerr.Auth("token refresh failed for "+acct.Email, err)
		}
		p.mu.Lock()
		acct.AccessToken = accessToken
		acct.AccessTokenExpiry = expiry
		p.notifyLocked()
		p.mu.Unlock()
		return accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
