package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/rentdesk/rentdesk/backend"
	"github.com/rentdesk/rentdesk/internal/config"
	"github.com/rentdesk/rentdesk/internal/utils"
	"github.com/rentdesk/rentdesk/roles"
	"github.com/rentdesk/rentdesk/session"
)

// SessionManager owns the authorization-code flow against the document
// backend and the session state derived from it: token acquisition, refresh,
// the profile fetch, and the single place session flags get written.
type SessionManager struct {
	store        session.Repo     // Local key-value store for tokens, nonce, and flags
	backend      *backend.Client  // Document backend the tokens are issued by
	nowTime      func() time.Time // nowTime function (injectable for testing)
	refreshGroup singleflight.Group

	bypassEmail string
	bypassHash  string
}

// Option defines a function type to modify the SessionManager instance.
type Option func(*SessionManager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *SessionManager) {
		m.nowTime = nowFunc
	}
}

// New initializes a SessionManager with required dependencies. The bypass
// credential from config is hashed once here; an empty bypass password
// disables the bypass entirely.
func New(store session.Repo, backendClient *backend.Client, cfg config.BackendConfig, options ...Option) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("[auth.New] session repo is required")
	}
	if backendClient == nil {
		return nil, errors.New("[auth.New] backend client is required")
	}

	m := &SessionManager{
		store:       store,
		backend:     backendClient,
		nowTime:     time.Now,
		bypassEmail: cfg.GetLoginBypassEmail(),
	}

	if password := cfg.GetLoginBypassPassword(); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "[auth.New] hash bypass password")
		}
		m.bypassHash = string(hash)
	}

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// AuthURL generates a fresh state nonce, persists it, and returns the
// authorization-request URL. Every call produces a new nonce; the store is
// last-write-wins, so a second call invalidates the first URL's state.
func (m *SessionManager) AuthURL() (string, error) {
	nonce := uuid.NewString()
	if err := m.store.SetState(nonce); err != nil {
		return "", errors.Wrap(err, "[AuthURL] SetState")
	}
	// prompt=login forces re-authentication at the identity provider even
	// when a provider-side session exists.
	return m.backend.OAuth2Config().AuthCodeURL(nonce, oauth2.SetAuthURLParam("prompt", "login")), nil
}

// HandleCallback validates the echoed state against the stored nonce,
// exchanges the authorization code, and persists the token triple. The nonce
// is consumed whether or not the exchange succeeds.
func (m *SessionManager) HandleCallback(ctx context.Context, code, state string) error {
	stored, err := m.store.GetState()
	if err != nil || stored != state {
		return errors.Wrap(StateMismatchErr, "[HandleCallback]")
	}
	if err := m.store.ClearState(); err != nil {
		return errors.Wrap(err, "[HandleCallback] ClearState")
	}

	tokenResponse, err := m.backend.ExchangeCode(ctx, code)
	if err != nil {
		return errors.Wrap(err, "[HandleCallback] ExchangeCode")
	}

	if raw := utils.Value(tokenResponse.IdToken); raw != "" {
		if email, name := idTokenHint(raw); email != "" {
			log.Debug().Str("email", email).Str("name", name).Msg("id_token claims")
		}
	}

	tokens := session.NewTokens(
		utils.Value(tokenResponse.AccessToken),
		utils.Value(tokenResponse.RefreshToken),
		tokenResponse.ExpiresIn,
		m.nowTime(),
	)
	return errors.Wrap(m.store.SetTokens(tokens), "[HandleCallback] SetTokens")
}

// Refresh exchanges the stored refresh token for a new token triple.
// Concurrent callers share a single exchange. Without a stored refresh token
// it fails before any network call; on any exchange failure the whole store
// is cleared and the session is deauthenticated.
func (m *SessionManager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *SessionManager) refresh(ctx context.Context) error {
	tokens, err := m.store.GetTokens()
	if err != nil || tokens.RefreshToken == "" {
		return errors.Wrap(NoRefreshTokenErr, "[Refresh]")
	}

	tokenResponse, err := m.backend.RefreshGrant(ctx, tokens.RefreshToken)
	if err != nil {
		if clearErr := m.store.ClearTokens(); clearErr != nil {
			log.Error().Err(clearErr).Msg("failed clearing tokens after refresh failure")
		}
		if clearErr := m.store.ClearFlags(); clearErr != nil {
			log.Error().Err(clearErr).Msg("failed clearing flags after refresh failure")
		}
		return errors.Wrap(err, "[Refresh] RefreshGrant")
	}

	newTokens := session.NewTokens(
		utils.Value(tokenResponse.AccessToken),
		utils.Value(tokenResponse.RefreshToken),
		tokenResponse.ExpiresIn,
		m.nowTime(),
	)
	return errors.Wrap(m.store.SetTokens(newTokens), "[Refresh] SetTokens")
}

// Profile returns the authenticated user's merged profile. An expired token
// gets exactly one refresh attempt first; a failed refresh surfaces
// AuthExpiredErr without touching the profile endpoint. The merged object is
// the user record overlaid with the OpenID profile, with role claims always
// taken from the profile response.
func (m *SessionManager) Profile(ctx context.Context) (map[string]any, error) {
	tokens, err := m.store.GetTokens()
	if err != nil || tokens.Expired(m.nowTime()) {
		if refreshErr := m.Refresh(ctx); refreshErr != nil {
			return nil, errors.Wrapf(AuthExpiredErr, "[Profile] %v", refreshErr)
		}
		tokens, err = m.store.GetTokens()
		if err != nil {
			return nil, errors.Wrap(AuthExpiredErr, "[Profile]")
		}
	}

	profile, err := m.backend.OpenIDProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Profile] OpenIDProfile")
	}

	email := utils.String(profile, "email")
	if email == "" {
		return nil, errors.Wrap(MissingEmailErr, "[Profile]")
	}

	record, err := m.backend.UserRecord(ctx, tokens.AccessToken, email)
	if err != nil {
		return nil, errors.Wrap(err, "[Profile] UserRecord")
	}

	merged := make(map[string]any, len(record)+len(profile))
	for k, v := range record {
		merged[k] = v
	}
	for k, v := range profile {
		merged[k] = v
	}
	if claims, ok := profile["roles"]; ok {
		merged["roles"] = claims
	} else {
		delete(merged, "roles")
	}
	return merged, nil
}

// EstablishSession fetches the profile, resolves the application role, and
// writes all session flags in one atomic overwrite. This is the only writer
// of session flags.
func (m *SessionManager) EstablishSession(ctx context.Context) (session.Flags, error) {
	profile, err := m.Profile(ctx)
	if err != nil {
		return session.Flags{}, errors.Wrap(err, "[EstablishSession] Profile")
	}

	claims, _ := profile["roles"].([]any)
	flags := session.Flags{
		Authenticated: true,
		Role:          roles.Resolve(utils.ToStringSlice(claims)),
		DisplayName:   displayName(profile),
		Email:         utils.String(profile, "email"),
	}

	if err := m.store.SetFlags(flags); err != nil {
		return session.Flags{}, errors.Wrap(err, "[EstablishSession] SetFlags")
	}
	return flags, nil
}

// Login handles the credential form. Other than the single bypass credential
// the submitted password is discarded: authentication happens at the
// backend's identity provider, so the caller redirects to the returned
// authorization URL. A bypassed login returns bypassed == true with the
// session flags already written.
func (m *SessionManager) Login(ctx context.Context, email, password string) (redirectURL string, bypassed bool, err error) {
	if m.bypassHash != "" && email == m.bypassEmail &&
		bcrypt.CompareHashAndPassword([]byte(m.bypassHash), []byte(password)) == nil {
		flags := session.Flags{
			Authenticated: true,
			Role:          roles.Resolve([]string{roles.ClaimSystemManager}),
			DisplayName:   "Demo Administrator",
			Email:         email,
		}
		if err := m.store.SetFlags(flags); err != nil {
			return "", false, errors.Wrap(err, "[Login] SetFlags")
		}
		log.Warn().Str("email", email).Msg("login bypass used, session holds no backend tokens")
		return "", true, nil
	}

	redirectURL, err = m.AuthURL()
	if err != nil {
		return "", false, errors.Wrap(err, "[Login] AuthURL")
	}
	return redirectURL, false, nil
}

// Logout clears all local session state. No backend revocation call is made.
func (m *SessionManager) Logout() error {
	if err := m.store.ClearTokens(); err != nil {
		return errors.Wrap(err, "[Logout] ClearTokens")
	}
	if err := m.store.ClearFlags(); err != nil {
		return errors.Wrap(err, "[Logout] ClearFlags")
	}
	return errors.Wrap(m.store.ClearState(), "[Logout] ClearState")
}

// idTokenHint peeks at id_token claims without verifying the signature.
// Display hints only; identity comes from the profile endpoint.
func idTokenHint(raw string) (email, name string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", ""
	}
	email, _ = claims["email"].(string)
	name, _ = claims["name"].(string)
	return email, name
}

func displayName(profile map[string]any) string {
	for _, key := range []string{"name", "full_name", "first_name"} {
		if v := utils.String(profile, key); v != "" {
			return v
		}
	}
	return ""
}
