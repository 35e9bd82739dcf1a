package users

// RoleType represents a user role in the platform hierarchy.
type RoleType string

const (
	RoleSuperAdmin  RoleType = "super_admin"  // Platform admin: sees and manages all tenants
	RoleTenantAdmin RoleType = "tenant_admin" // Manages a single tenant's settings and users
	RoleUser        RoleType = "user"         // Regular member of a tenant
)

// roleRank orders roles for the access-check partial order.
// super_admin > tenant_admin > user; unknown roles rank below all.
var roleRank = map[RoleType]int{
	RoleUser:        1,
	RoleTenantAdmin: 2,
	RoleSuperAdmin:  3,
}

// RoleSatisfies reports whether a principal holding `have` meets an access
// requirement of `need`. Unknown roles satisfy nothing and require nothing
// satisfiable.
func RoleSatisfies(have, need RoleType) bool {
	h, ok := roleRank[have]
	if !ok {
		return false
	}
	n, ok := roleRank[need]
	if !ok {
		return false
	}
	return h >= n
}

// ValidRole reports whether the role belongs to the closed role set.
func ValidRole(role RoleType) bool {
	_, ok := roleRank[role]
	return ok
}
