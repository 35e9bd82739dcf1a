package users

import (
	"fmt"
	"strings"
	"time"

	"unicode"
)

// User is the Principal as known by the remote identity service. It is
// created by sign-in or sign-up, cleared on sign-out, and never mutated
// locally.
type User struct {
	ID               string     `json:"id,omitempty"`                 // Unique identifier from the identity service
	Email            string     `json:"email,omitempty"`              // User's email address
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"` // Presence implies the address is verified
	CreatedAt        time.Time  `json:"created_at,omitempty"`         // When the account was registered
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`    // Last successful sign-in
}

// EmailVerified reports whether the identity service has confirmed the
// user's email address.
func (u *User) EmailVerified() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// Profile is the application-level record associated with a Principal.
// It mirrors a remote record keyed by the user's ID and is never created
// by the client.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Role      RoleType  `json:"role"`
	TenantID  string    `json:"tenant_id,omitempty"` // Empty for super admins with no tenant linkage
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsSuperAdmin returns true if the profile carries platform-admin privileges.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// CanManageTenant checks whether the profile may administer the given tenant.
func (p *Profile) CanManageTenant(tenantID string) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleSuperAdmin {
		return true
	}
	return p.Role == RoleTenantAdmin && p.TenantID == tenantID
}

// DisplayName returns the full name, falling back to the email local part.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
