package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/rentdesk/rentdesk/roles"
	"github.com/rentdesk/rentdesk/session"
)

const contentTypeJSON = "application/json; charset=utf-8"

// apiResult is the tagged result shape every API response uses. Handlers
// never surface raw errors; callers branch on success and show error.
type apiResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResult{Success: false, Error: message})
}

// LoginSurfaceHandler is the login entry point. It hands the SPA a fresh
// authorization URL (each call generates and stores a new state nonce) and
// echoes back any error message a failed flow redirected here with.
func (s *Server) LoginSurfaceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.auth.AuthURL()
		if err != nil {
			log.Error().Err(err).Msg("failed building authorization URL")
			writeFailure(w, http.StatusInternalServerError, "failed to start login")
			return
		}
		writeJSON(w, http.StatusOK, apiResult{
			Success: true,
			Error:   r.URL.Query().Get("error"),
			Data:    map[string]any{"auth_url": authURL},
		})
	}
}

// LoginSubmissionHandler handles the credential form POST. Except for the
// bypass credential the submitted password is discarded and the browser is
// redirected to the authorization endpoint.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}

		redirectURL, bypassed, err := s.auth.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
		if err != nil {
			log.Error().Err(err).Msg("login failed")
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}

		if bypassed {
			flags, _ := s.store.GetFlags()
			http.Redirect(w, r, dashboardRoute(flags.Role), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

// OAuthCallbackHandler completes the authorization-code flow: state check,
// code exchange, profile fetch, role resolution, then redirect to the
// resolved role's dashboard. Failures are non-fatal and return the browser
// to the login surface with a message.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Authorization server reported failure
		if errorParam != "" {
			s.redirectToLogin(w, r, errorParam+": "+errorDesc)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		if err := s.auth.HandleCallback(r.Context(), code, state); err != nil {
			log.Error().Err(err).Msg("callback token exchange failed")
			s.redirectToLogin(w, r, err.Error())
			return
		}

		flags, err := s.auth.EstablishSession(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed establishing session")
			s.redirectToLogin(w, r, err.Error())
			return
		}

		if flags.Role == roles.RoleUser {
			// No dashboard for this account; block navigation with a message
			s.redirectToLogin(w, r, "account has no dashboard access")
			return
		}

		http.Redirect(w, r, dashboardRoute(flags.Role), http.StatusSeeOther)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(); err != nil {
			log.Error().Err(err).Msg("logout failed")
		}
		http.Redirect(w, r, RouteAuth, http.StatusSeeOther)
	}
}

// SessionHandler reports the current session flags; the SPA reads this on
// boot to decide where to route.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flags, err := s.store.GetFlags()
		if err != nil {
			writeJSON(w, http.StatusOK, apiResult{Success: true, Data: session.Flags{}})
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: flags})
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, RouteAuth+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

func dashboardRoute(role roles.Role) string {
	switch role {
	case roles.RoleTenant:
		return RouteTenantDashboard
	case roles.RoleAdmin:
		return RouteAdminDashboard
	default:
		return RouteAuth
	}
}
