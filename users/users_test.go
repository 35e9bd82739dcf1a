package users_test

import (
	"testing"
	"time"

	"github.com/raterly/go-raterly/users"
	"github.com/stretchr/testify/require"
)

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		name string
		have users.RoleType
		need users.RoleType
		want bool
	}{
		{"super admin satisfies user", users.RoleSuperAdmin, users.RoleUser, true},
		{"super admin satisfies tenant admin", users.RoleSuperAdmin, users.RoleTenantAdmin, true},
		{"super admin satisfies itself", users.RoleSuperAdmin, users.RoleSuperAdmin, true},
		{"tenant admin satisfies user", users.RoleTenantAdmin, users.RoleUser, true},
		{"tenant admin does not satisfy super admin", users.RoleTenantAdmin, users.RoleSuperAdmin, false},
		{"user satisfies only itself", users.RoleUser, users.RoleUser, true},
		{"user does not satisfy tenant admin", users.RoleUser, users.RoleTenantAdmin, false},
		{"unknown role satisfies nothing", users.RoleType("owner"), users.RoleUser, false},
		{"unknown requirement is unsatisfiable", users.RoleSuperAdmin, users.RoleType("owner"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, users.RoleSatisfies(tc.have, tc.need))
		})
	}
}

func TestEmailVerified(t *testing.T) {
	confirmed := time.Now()

	u := &users.User{ID: "user-1", Email: "john.doe@example.com"}
	require.False(t, u.EmailVerified())

	u.EmailConfirmedAt = &confirmed
	require.True(t, u.EmailVerified())

	var nilUser *users.User
	require.False(t, nilUser.EmailVerified())
}

func TestProfilePredicates(t *testing.T) {
	superAdmin := &users.Profile{ID: "p-1", Role: users.RoleSuperAdmin}
	require.True(t, superAdmin.IsSuperAdmin())
	require.True(t, superAdmin.CanManageTenant("any-tenant"))

	tenantAdmin := &users.Profile{ID: "p-2", Role: users.RoleTenantAdmin, TenantID: "t1"}
	require.False(t, tenantAdmin.IsSuperAdmin())
	require.True(t, tenantAdmin.CanManageTenant("t1"))
	require.False(t, tenantAdmin.CanManageTenant("t2"))

	regular := &users.Profile{ID: "p-3", Role: users.RoleUser, TenantID: "t1"}
	require.False(t, regular.CanManageTenant("t1"))
}

func TestDisplayName(t *testing.T) {
	p := &users.Profile{Email: "jane@tenant-a.com"}
	require.Equal(t, "jane", p.DisplayName())

	p.FullName = "Jane Doe"
	require.Equal(t, "Jane Doe", p.DisplayName())
}

func TestValidatePasswordStrength(t *testing.T) {
	require.Error(t, users.ValidatePasswordStrength("short"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
	require.NoError(t, users.ValidatePasswordStrength("Password123"))
}
