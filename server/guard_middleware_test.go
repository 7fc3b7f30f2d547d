package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/config"
	"github.com/rentdesk/rentdesk/roles"
	"github.com/rentdesk/rentdesk/server"
	"github.com/rentdesk/rentdesk/session"
)

type testServerConfig struct {
	config.Cors
	url string
}

func (c testServerConfig) GetPort() string               { return ":0" }
func (c testServerConfig) GetAppName() string            { return "RentDesk" }
func (c testServerConfig) GetDataFolder() string         { return "./data" }
func (c testServerConfig) GetEnv() string                { return "TEST" }
func (c testServerConfig) GetBackendURL() string         { return c.url }
func (c testServerConfig) GetOAuthClientID() string      { return "test-client" }
func (c testServerConfig) GetOAuthRedirectURI() string   { return "http://localhost:8080/callback" }
func (c testServerConfig) GetOAuthScope() string         { return "all openid" }
func (c testServerConfig) GetLoginBypassEmail() string   { return "demo@rentdesk.local" }
func (c testServerConfig) GetLoginBypassPassword() string { return "" }

// documentBackend fakes the token, profile, and resource surfaces the server
// orchestrates against.
type documentBackend struct {
	failTokenGrant bool
	profileRoles   []string
	rentals        []map[string]any
}

func (b *documentBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/method/frappe.integrations.oauth2.get_token":
		if b.failTokenGrant {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "A",
			"refresh_token": "R",
			"expires_in":    3600,
		})
	case r.URL.Path == "/api/method/frappe.integrations.oauth2.openid_profile":
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{
			"email": "jane@example.com",
			"name":  "Jane Doe",
			"roles": b.profileRoles,
		}})
	case strings.HasPrefix(r.URL.Path, "/api/resource/User/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"email": "jane@example.com"}})
	case r.URL.Path == "/api/resource/Rental":
		_ = json.NewEncoder(w).Encode(map[string]any{"data": b.rentals})
	case strings.HasPrefix(r.URL.Path, "/api/resource/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	default:
		http.NotFound(w, r)
	}
}

func newTestServer(t *testing.T, fake *documentBackend) (*server.Server, session.Repo) {
	t.Helper()

	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	store := session.NewInMemoryRepo()
	srv, err := server.New(testServerConfig{url: ts.URL}, store)
	require.NoError(t, err)
	return srv, store
}

func get(srv *server.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	result := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func setTenantSession(t *testing.T, store session.Repo) {
	t.Helper()
	require.NoError(t, store.SetFlags(session.Flags{
		Authenticated: true,
		Role:          roles.RoleTenant,
		DisplayName:   "Jane Doe",
		Email:         "jane@example.com",
	}))
	require.NoError(t, store.SetTokens(session.NewTokens("A", "R", 3600, time.Now())))
}

func setAdminSession(t *testing.T, store session.Repo) {
	t.Helper()
	require.NoError(t, store.SetFlags(session.Flags{
		Authenticated: true,
		Role:          roles.RoleAdmin,
		DisplayName:   "Site Admin",
		Email:         "admin@example.com",
	}))
	require.NoError(t, store.SetTokens(session.NewTokens("A", "R", 3600, time.Now())))
}

func TestGuardsRedirectUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t, &documentBackend{})

	for _, path := range []string{
		server.RouteAdminDashboard,
		server.RouteTenantDashboard,
		server.RouteAPIProperties,
		server.RouteAPIMyRental,
	} {
		rec := get(srv, path)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
		require.Equal(t, server.RouteAuth, rec.Header().Get("Location"), path)
	}
}

func TestAdminGateRedirectsTenant(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})
	setTenantSession(t, store)

	rec := get(srv, server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteTenantDashboard, rec.Header().Get("Location"))
}

func TestTenantGateRedirectsAdmin(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})
	setAdminSession(t, store)

	rec := get(srv, server.RouteTenantDashboard)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteAdminDashboard, rec.Header().Get("Location"))
}

func TestDashboardsServeMatchingRole(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})

	setAdminSession(t, store)
	rec := get(srv, server.RouteAdminDashboard)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.Equal(t, true, result["success"])
	data := result["data"].(map[string]any)
	require.Equal(t, "admin", data["role"])

	setTenantSession(t, store)
	rec = get(srv, server.RouteTenantDashboard)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeResult(t, rec)["data"].(map[string]any)
	require.Equal(t, "tenant", data["role"])
	require.Equal(t, "Jane Doe", data["display_name"])
}

func TestSessionEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})

	// No session yet: authenticated false, no error surfaced
	result := decodeResult(t, get(srv, server.RouteSession))
	require.Equal(t, true, result["success"])
	data := result["data"].(map[string]any)
	require.Equal(t, false, data["authenticated"])

	setTenantSession(t, store)
	data = decodeResult(t, get(srv, server.RouteSession))["data"].(map[string]any)
	require.Equal(t, true, data["authenticated"])
	require.Equal(t, "tenant", data["role"])
	require.Equal(t, "jane@example.com", data["email"])
}

func TestLoginSurfaceReturnsAuthURL(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})

	rec := get(srv, server.RouteAuth+"?error=session+expired")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.Equal(t, true, result["success"])
	require.Equal(t, "session expired", result["error"])

	authURL := result["data"].(map[string]any)["auth_url"].(string)
	require.Contains(t, authURL, "response_type=code")
	require.Contains(t, authURL, "prompt=login")

	// The state in the URL is the one persisted for the callback check
	stored, err := store.GetState()
	require.NoError(t, err)
	require.Contains(t, authURL, "state="+stored)
}

func TestCallbackEstablishesTenantSession(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{profileRoles: []string{"Tenant"}})
	require.NoError(t, store.SetState("nonce-1"))

	rec := get(srv, server.RouteCallback+"?code=validcode&state=nonce-1")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteTenantDashboard, rec.Header().Get("Location"))

	flags, err := store.GetFlags()
	require.NoError(t, err)
	require.True(t, flags.Authenticated)
	require.Equal(t, roles.RoleTenant, flags.Role)
	require.Equal(t, "jane@example.com", flags.Email)

	tokens, err := store.GetTokens()
	require.NoError(t, err)
	require.Equal(t, "A", tokens.AccessToken)
}

func TestCallbackStateMismatchReturnsToLogin(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{profileRoles: []string{"Tenant"}})
	require.NoError(t, store.SetState("nonce-1"))

	rec := get(srv, server.RouteCallback+"?code=validcode&state=tampered")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), server.RouteAuth+"?error="))
}

func TestCallbackProviderErrorReturnsToLogin(t *testing.T) {
	srv, _ := newTestServer(t, &documentBackend{})

	rec := get(srv, server.RouteCallback+"?error=access_denied&error_description=user+cancelled")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.Contains(t, location, server.RouteAuth+"?error=")
	require.Contains(t, location, "access_denied")
}

func TestCallbackMissingParams(t *testing.T) {
	srv, _ := newTestServer(t, &documentBackend{})

	rec := get(srv, server.RouteCallback+"?state=nonce-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackPlainUserBlocked(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{profileRoles: []string{}})
	require.NoError(t, store.SetState("nonce-1"))

	rec := get(srv, server.RouteCallback+"?code=validcode&state=nonce-1")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), server.RouteAuth+"?error=")
}

func TestMyRentalFiltersBySessionEmail(t *testing.T) {
	fake := &documentBackend{rentals: []map[string]any{{"name": "RENT-0001", "tenant_email": "jane@example.com"}}}
	srv, store := newTestServer(t, fake)
	setTenantSession(t, store)

	rec := get(srv, server.RouteAPIMyRental)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResult(t, rec)["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "RENT-0001", data[0].(map[string]any)["name"])
}

func TestExpiredSessionAPIReturnsUnauthorized(t *testing.T) {
	fake := &documentBackend{failTokenGrant: true}
	srv, store := newTestServer(t, fake)
	setAdminSession(t, store)

	// Expired access token and a refresh grant the backend rejects
	require.NoError(t, store.SetTokens(session.NewTokens("stale-A", "R", 10, time.Now().Add(-time.Hour))))

	rec := get(srv, server.RouteAPIProperties)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	result := decodeResult(t, rec)
	require.Equal(t, false, result["success"])
	require.NotEmpty(t, result["error"])

	// The failed refresh tore the session down
	_, err := store.GetFlags()
	require.Error(t, err)
}

func TestLogoutClearsSessionAndRedirects(t *testing.T) {
	srv, store := newTestServer(t, &documentBackend{})
	setTenantSession(t, store)

	rec := get(srv, server.RouteAuthLogout)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteAuth, rec.Header().Get("Location"))

	_, err := store.GetFlags()
	require.Error(t, err)
	_, err = store.GetTokens()
	require.Error(t, err)
}

func TestPaymentDraftForcesDraftStatus(t *testing.T) {
	received := make(chan map[string]any, 1)
	fake := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.EscapedPath() == "/api/resource/Payment%20Entry" {
			payload := map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			received <- payload
			payload["name"] = "PAY-0001"
			_ = json.NewEncoder(w).Encode(map[string]any{"data": payload})
			return
		}
		(&documentBackend{}).ServeHTTP(w, r)
	})

	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	store := session.NewInMemoryRepo()
	srv, err := server.New(testServerConfig{url: ts.URL}, store)
	require.NoError(t, err)
	setAdminSession(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, server.RouteAPIPayments, strings.NewReader(`{"amount":1200,"docstatus":1}`))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	payload := <-received
	require.EqualValues(t, 0, payload["docstatus"])
	require.EqualValues(t, 1200, payload["amount"])
}
