package session

import (
	"context"

	"github.com/raterly/go-raterly/users"
)

// IdentityResult is the outcome of a successful identity operation: the
// resolved principal together with its session bundle. Both fields are
// always set together.
type IdentityResult struct {
	User    *users.User
	Session *Session
}

// SignUpAttributes carries optional registration attributes.
type SignUpAttributes struct {
	FullName string `json:"full_name,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

// IdentityService is the remote identity provider the store authenticates
// against. Implementations must treat "no session" as a non-error: GetSession
// and RefreshSession return (nil, nil) when the supplied token resolves to
// nothing.
type IdentityService interface {
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (*IdentityResult, error)

	// SignOut revokes the session server-side. Best effort; callers clear
	// local state regardless of the result.
	SignOut(ctx context.Context, accessToken string) error

	// SignUp registers an account. It does not sign the user in.
	SignUp(ctx context.Context, email, password string, attrs SignUpAttributes) (*users.User, error)

	// GetSession re-validates a persisted refresh token.
	GetSession(ctx context.Context, refreshToken string) (*IdentityResult, error)

	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*IdentityResult, error)
}
