package server

import "net/http"

// AdminDashboardHandler returns the landlord/administrator dashboard
// payload. The SPA renders the views; this names what the session may see.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flags, _ := FlagsFromContext(r.Context())
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: map[string]any{
			"role":         flags.Role,
			"display_name": flags.DisplayName,
			"email":        flags.Email,
			"sections": []string{
				RouteAPIProperties,
				RouteAPIRentals,
				RouteAPIPayments,
				RouteAPITenants,
				RouteAPIReportSummary,
			},
		}})
	}
}

// TenantDashboardHandler returns the tenant dashboard payload.
func (s *Server) TenantDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flags, _ := FlagsFromContext(r.Context())
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: map[string]any{
			"role":         flags.Role,
			"display_name": flags.DisplayName,
			"email":        flags.Email,
			"sections": []string{
				RouteAPIMyRental,
				RouteAPIMyPayments,
			},
		}})
	}
}
