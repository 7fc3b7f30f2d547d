package roles_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/roles"
)

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		claims []string
		want   roles.Role
	}{
		{
			name:   "system manager with tenant lands on tenant experience",
			claims: []string{"System Manager", "Tenant"},
			want:   roles.RoleTenant,
		},
		{
			name:   "landlord alone is admin",
			claims: []string{"Landlord"},
			want:   roles.RoleAdmin,
		},
		{
			name:   "system manager alone is admin",
			claims: []string{"System Manager"},
			want:   roles.RoleAdmin,
		},
		{
			name:   "landlord with tenant is admin",
			claims: []string{"Landlord", "Tenant"},
			want:   roles.RoleAdmin,
		},
		{
			name:   "tenant alone is tenant",
			claims: []string{"Tenant"},
			want:   roles.RoleTenant,
		},
		{
			name:   "no claims is user",
			claims: []string{},
			want:   roles.RoleUser,
		},
		{
			name:   "unknown claims are user",
			claims: []string{"Guest", "Blogger"},
			want:   roles.RoleUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, roles.Resolve(tt.claims))
		})
	}
}

func TestParse(t *testing.T) {
	require.Equal(t, roles.RoleAdmin, roles.Parse("admin"))
	require.Equal(t, roles.RoleTenant, roles.Parse("tenant"))
	require.Equal(t, roles.RoleUser, roles.Parse("user"))
	require.Equal(t, roles.RoleUser, roles.Parse("superuser"))
	require.Equal(t, roles.RoleUser, roles.Parse(""))
}
