// Package session owns the authenticated principal, its credential bundle,
// and the derived application profile. It is the single authority for
// "who is signed in and is their session live".
package session

import "time"

const (
	// SessionTimeout is how long a session is considered live after its
	// last refresh.
	SessionTimeout = 30 * time.Minute

	// ExpiringSoonWindow is the remaining lifetime under which consumers
	// should prompt for a refresh.
	ExpiringSoonWindow = 5 * time.Minute
)

// Session is the credential bundle issued by the remote identity service.
// A non-nil Session always coexists with a non-nil User in the same store
// snapshot: both are set and cleared together.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session's expiry timestamp has passed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TimeUntilExpiry returns the remaining session lifetime, clamped at zero.
func (s *Session) TimeUntilExpiry(now time.Time) time.Duration {
	if s == nil || s.ExpiresAt.IsZero() {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiringSoon reports whether the session is inside the warning window.
func (s *Session) ExpiringSoon(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	remaining := s.TimeUntilExpiry(now)
	return remaining > 0 && remaining <= ExpiringSoonWindow
}
