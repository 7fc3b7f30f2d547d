package roles

// Role is the application-level role a signed-in user lands on. The backend
// asserts free-form role claims; this package collapses them to the closed
// set the dashboards are built around.
type Role string

const (
	RoleAdmin  Role = "admin"  // Landlord / system manager dashboard
	RoleTenant Role = "tenant" // Tenant dashboard
	RoleUser   Role = "user"   // No dashboard access
)

// Role claims asserted by the backend's profile endpoint.
const (
	ClaimSystemManager = "System Manager"
	ClaimLandlord      = "Landlord"
	ClaimTenant        = "Tenant"
)

// Resolve maps a claim set to an application role using fixed precedence:
//
//  1. System Manager combined with Tenant resolves to tenant — a tenant who
//     also holds elevated claims lands on the tenant experience.
//  2. Any elevated claim (Landlord or System Manager) resolves to admin.
//  3. Tenant alone resolves to tenant.
//  4. Anything else resolves to user.
//
// Reordering these rules changes real users' landing experience; every entry
// point that derives a role must go through this function.
func Resolve(claims []string) Role {
	hasSystemManager := has(claims, ClaimSystemManager)
	hasLandlord := has(claims, ClaimLandlord)
	hasTenant := has(claims, ClaimTenant)

	switch {
	case hasSystemManager && hasTenant:
		return RoleTenant
	case hasSystemManager || hasLandlord:
		return RoleAdmin
	case hasTenant:
		return RoleTenant
	default:
		return RoleUser
	}
}

// Parse converts a stored role string back to a Role, defaulting to user.
func Parse(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleTenant:
		return Role(s)
	default:
		return RoleUser
	}
}

func has(claims []string, claim string) bool {
	for _, c := range claims {
		if c == claim {
			return true
		}
	}
	return false
}
