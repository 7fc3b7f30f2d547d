package config

// BackendConfig describes how to reach the document backend that owns all
// business data, and the OAuth client this gateway presents to it.
type BackendConfig interface {
	GetBackendURL() string
	GetOAuthClientID() string
	GetOAuthRedirectURI() string
	GetOAuthScope() string
	GetLoginBypassEmail() string
	GetLoginBypassPassword() string
}

const (
	backendURLVar       = "BACKEND_URL"
	oauthClientIDVar    = "OAUTH_CLIENT_ID"
	oauthRedirectURIVar = "OAUTH_REDIRECT_URI"
	oauthScopeVar       = "OAUTH_SCOPE"
	bypassEmailVar      = "LOGIN_BYPASS_EMAIL"
	bypassPasswordVar   = "LOGIN_BYPASS_PASSWORD"
)

type Backend struct{}

var _ BackendConfig = Backend{}

// GetBackendURL returns the base URL of the document backend
// (e.g. "https://erp.example.com")
func (Backend) GetBackendURL() string {
	return GetEnv(backendURLVar, "http://localhost:8000")
}

func (Backend) GetOAuthClientID() string {
	return GetEnv(oauthClientIDVar, "rentdesk-portal")
}

func (Backend) GetOAuthRedirectURI() string {
	return GetEnv(oauthRedirectURIVar, "http://localhost:8080/callback")
}

func (Backend) GetOAuthScope() string {
	return GetEnv(oauthScopeVar, "all openid")
}

// GetLoginBypassEmail returns the single credential pair accepted by the
// local login form without going through the backend's authorization flow.
// Setting the password to "" disables the bypass.
func (Backend) GetLoginBypassEmail() string {
	return GetEnv(bypassEmailVar, "demo@rentdesk.local")
}

func (Backend) GetLoginBypassPassword() string {
	return GetEnv(bypassPasswordVar, "")
}
