package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuth       = "/auth"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteCallback   = "/callback"
	RouteSession    = "/session"

	// Dashboard Routes
	RouteAdminDashboard  = "/admin-dashboard"
	RouteTenantDashboard = "/tenant-dashboard"

	// Property Routes (admin)
	RouteAPIProperties = "/api/properties"
	RouteAPIProperty   = "/api/properties/{name}"

	// Rental Routes
	RouteAPIRentals  = "/api/rentals"
	RouteAPIRental   = "/api/rentals/{name}"
	RouteAPIMyRental = "/api/my/rental"

	// Payment Routes
	RouteAPIPayments      = "/api/payments"
	RouteAPIPaymentSubmit = "/api/payments/{name}/submit"
	RouteAPIMyPayments    = "/api/my/payments"

	// Tenant Routes (admin)
	RouteAPITenants = "/api/tenants"
	RouteAPITenant  = "/api/tenants/{name}"

	// Report Routes (admin)
	RouteAPIReportSummary = "/api/reports/summary"
)

// Doctype names on the document backend
const (
	DoctypeProperty = "Property"
	DoctypeRental   = "Rental"
	DoctypePayment  = "Payment Entry"
	DoctypeTenant   = "Tenant"
)
