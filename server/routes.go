package server

import "net/http"

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteFunc("GET "+RouteAuth, s.LoginSurfaceHandler())
	s.RegisterRouteFunc("POST "+RouteAuthLogin, s.LoginSubmissionHandler())
	s.RegisterRouteFunc("GET "+RouteAuthLogout, s.LogoutHandler())
	s.RegisterRouteFunc("GET "+RouteCallback, s.OAuthCallbackHandler())
	s.RegisterRouteFunc("GET "+RouteSession, s.SessionHandler())

	// Dashboards
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.APIMiddleware(s.RequireSession(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+RouteTenantDashboard, ChainMiddleware(s.TenantDashboardHandler(), s.APIMiddleware(s.RequireSession(), s.RequireTenant())...))

	// Properties (admin)
	s.RegisterRouteHandler("GET "+RouteAPIProperties, s.adminAPI(s.ListDocsHandler(DoctypeProperty)))
	s.RegisterRouteHandler("POST "+RouteAPIProperties, s.adminAPI(s.CreateDocHandler(DoctypeProperty)))
	s.RegisterRouteHandler("GET "+RouteAPIProperty, s.adminAPI(s.GetDocHandler(DoctypeProperty)))
	s.RegisterRouteHandler("PUT "+RouteAPIProperty, s.adminAPI(s.UpdateDocHandler(DoctypeProperty)))
	s.RegisterRouteHandler("DELETE "+RouteAPIProperty, s.adminAPI(s.DeleteDocHandler(DoctypeProperty)))

	// Rentals (admin) and the tenant's own rental
	s.RegisterRouteHandler("GET "+RouteAPIRentals, s.adminAPI(s.ListDocsHandler(DoctypeRental)))
	s.RegisterRouteHandler("POST "+RouteAPIRentals, s.adminAPI(s.CreateDocHandler(DoctypeRental)))
	s.RegisterRouteHandler("GET "+RouteAPIRental, s.adminAPI(s.GetDocHandler(DoctypeRental)))
	s.RegisterRouteHandler("PUT "+RouteAPIRental, s.adminAPI(s.UpdateDocHandler(DoctypeRental)))
	s.RegisterRouteHandler("GET "+RouteAPIMyRental, s.tenantAPI(s.MyRentalHandler()))

	// Payments: draft on create, submitted through the submit route
	s.RegisterRouteHandler("GET "+RouteAPIPayments, s.adminAPI(s.ListDocsHandler(DoctypePayment)))
	s.RegisterRouteHandler("POST "+RouteAPIPayments, s.adminAPI(s.PaymentDraftHandler()))
	s.RegisterRouteHandler("POST "+RouteAPIPaymentSubmit, s.adminAPI(s.PaymentSubmitHandler()))
	s.RegisterRouteHandler("GET "+RouteAPIMyPayments, s.tenantAPI(s.MyPaymentsHandler()))

	// Tenants (admin)
	s.RegisterRouteHandler("GET "+RouteAPITenants, s.adminAPI(s.ListDocsHandler(DoctypeTenant)))
	s.RegisterRouteHandler("POST "+RouteAPITenants, s.adminAPI(s.CreateDocHandler(DoctypeTenant)))
	s.RegisterRouteHandler("GET "+RouteAPITenant, s.adminAPI(s.GetDocHandler(DoctypeTenant)))

	// Reports (admin)
	s.RegisterRouteHandler("GET "+RouteAPIReportSummary, s.adminAPI(s.ReportSummaryHandler()))
}

func (s *Server) adminAPI(handler http.HandlerFunc) http.HandlerFunc {
	return ChainMiddleware(handler, s.APIMiddleware(s.RequireSession(), s.RequireAdmin())...)
}

func (s *Server) tenantAPI(handler http.HandlerFunc) http.HandlerFunc {
	return ChainMiddleware(handler, s.APIMiddleware(s.RequireSession(), s.RequireTenant())...)
}
