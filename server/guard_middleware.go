package server

import (
	"context"
	"net/http"

	"github.com/rentdesk/rentdesk/roles"
	"github.com/rentdesk/rentdesk/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyFlags stores the current session flags for downstream handlers
const ContextKeyFlags ContextKey = "session_flags"

// FlagsFromContext returns the session flags injected by RequireSession.
func FlagsFromContext(ctx context.Context) (session.Flags, bool) {
	flags, ok := ctx.Value(ContextKeyFlags).(session.Flags)
	return flags, ok
}

// RequireSession is the authenticated-only gate. It re-reads the persisted
// session flags on every request (no caching of the decision) and redirects
// unauthenticated navigation to the login surface.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			flags, err := s.store.GetFlags()
			if err != nil || !flags.Authenticated {
				http.Redirect(w, r, RouteAuth, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyFlags, flags)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin gates admin-only routes. Non-admin sessions are redirected to
// the tenant dashboard rather than an error page, so misauthorized
// navigation always lands on some valid dashboard. Chain after
// RequireSession.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			flags, ok := FlagsFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, RouteAuth, http.StatusSeeOther)
				return
			}
			if flags.Role != roles.RoleAdmin {
				http.Redirect(w, r, RouteTenantDashboard, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}

// RequireTenant gates tenant-only routes, redirecting non-tenants to the
// admin dashboard. Chain after RequireSession.
func (s *Server) RequireTenant() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			flags, ok := FlagsFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, RouteAuth, http.StatusSeeOther)
				return
			}
			if flags.Role != roles.RoleTenant {
				http.Redirect(w, r, RouteAdminDashboard, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}
