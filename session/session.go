package session

import (
	"time"

	"github.com/rentdesk/rentdesk/roles"
)

// Storage keys inside the local key-value store. Kept as the names the
// original portal wrote to browser storage so a migrated store stays readable.
const (
	KeyTokens = "oauth_tokens"
	KeyState  = "oauth_state"
	KeyFlags  = "session_flags"
)

// DefaultExpiresIn is assumed when the token endpoint omits expires_in.
const DefaultExpiresIn = 3600 * time.Second

// ExpiryLeeway is the clock-skew margin applied when deciding whether an
// access token is still usable. A token inside the margin is treated as
// expired so it gets refreshed instead of sent to the backend.
const ExpiryLeeway = 30 * time.Second

// Tokens is the persisted token record. It is overwritten wholesale on every
// successful exchange or refresh and deleted on logout; there is no merge and
// no versioning.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewTokens builds a token record from token-endpoint fields, applying the
// expires_in default and computing the absolute expiry from now.
func NewTokens(accessToken, refreshToken string, expiresIn int, now time.Time) Tokens {
	if expiresIn <= 0 {
		expiresIn = int(DefaultExpiresIn.Seconds())
	}
	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Expired reports whether the access token should no longer be used.
func (t Tokens) Expired(now time.Time) bool {
	return !now.Add(ExpiryLeeway).Before(t.ExpiresAt)
}

// Flags are the derived session flags read by the route guards on every
// navigation. Authenticated == true implies a non-expired or refreshable
// token record exists; a consumer that finds a dead token must treat the
// session as unauthenticated regardless of this flag.
type Flags struct {
	Authenticated bool       `json:"authenticated"`
	Role          roles.Role `json:"role"`
	DisplayName   string     `json:"display_name"`
	Email         string     `json:"email"`
}
