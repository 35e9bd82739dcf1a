package users

import (
	"context"
	"errors"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileUpdates is a partial update; nil fields are left untouched.
type ProfileUpdates struct {
	FullName *string   `json:"full_name,omitempty"`
	Email    *string   `json:"email,omitempty"`
	Role     *RoleType `json:"role,omitempty"`
	TenantID *string   `json:"tenant_id,omitempty"`
}

// ProfileRepo is the remote profile-lookup service consumed by the session
// and tenant stores. Profiles are fetched by principal id; the client never
// originates one.
type ProfileRepo interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, id string, updates ProfileUpdates) error
}
