package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/raterly/go-raterly/snapshot"
	"github.com/raterly/go-raterly/users"
)

const (
	snapshotKey     = "session-store"
	snapshotVersion = 1
)

// Deps holds all remote-service and storage dependencies for the Store.
type Deps struct {
	Identity  IdentityService // Remote identity provider
	Profiles  users.ProfileRepo
	Snapshots snapshot.Store // Durable keyed area for persisted state
}

// Store is the session state container. All state transitions happen through
// its methods; remote calls are always made outside the lock, so concurrent
// operations interleave rather than block each other.
type Store struct {
	deps    Deps
	nowTime func() time.Time // nowTime function (injectable for testing)

	mu sync.RWMutex
	st state
}

type state struct {
	user             *users.User
	sess             *Session
	profile          *users.Profile
	profileFreshness users.Freshness
	lastActivity     time.Time
	loading          bool
	errMsg           string
	initialized      bool

	// Expiry bookkeeping. Refreshed only by session-affecting operations;
	// the store runs no timer of its own.
	expiringSoon    bool
	timeUntilExpiry time.Duration
}

// persistedState is the subset of state that survives process restarts.
type persistedState struct {
	User         *users.User    `json:"user,omitempty"`
	Session      *Session       `json:"session,omitempty"`
	Profile      *users.Profile `json:"profile,omitempty"`
	TenantID     string         `json:"tenant_id,omitempty"`
	LastActivity time.Time      `json:"last_activity,omitempty"`
}

// Snapshot is a point-in-time copy of the store's state plus derived flags.
// Derived flags are computed on read and never stored, so they cannot drift.
type Snapshot struct {
	User                *users.User
	Session             *Session
	Profile             *users.Profile
	ProfileFreshness    users.Freshness
	LastActivity        time.Time
	Loading             bool
	Err                 string
	IsAuthenticated     bool
	IsEmailVerified     bool
	SessionExpiringSoon bool
	TimeUntilExpiry     time.Duration
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New initializes a session Store with required dependencies.
func New(deps Deps, options ...Option) (*Store, error) {
	if deps.Identity == nil {
		return nil, errors.New("[session.New] Identity service is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[session.New] Profiles repo is required")
	}
	if deps.Snapshots == nil {
		return nil, errors.New("[session.New] Snapshots store is required")
	}

	store := &Store{
		deps:    deps,
		nowTime: time.Now,
	}
	store.st.loading = true // uninitialized until Initialize settles

	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Initialize resolves an existing session from the persisted snapshot and the
// remote identity service. Calling it again is a no-op; the guard flag makes
// duplicate concurrent calls idempotent-ish rather than mutually excluded.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.st.initialized {
		s.mu.Unlock()
		return nil
	}
	s.st.initialized = true
	s.st.loading = true
	s.mu.Unlock()

	// The one synchronous, non-suspending step: local snapshot read.
	refreshToken := s.rehydrate()
	if refreshToken == "" {
		s.clearSessionState()
		return nil
	}

	res, err := s.deps.Identity.GetSession(ctx, refreshToken)
	if err != nil {
		s.recordFailure("session check failed: " + err.Error())
		return errors.Wrap(err, "[Store.Initialize] identity.GetSession")
	}
	if res == nil {
		s.clearSessionState()
		return nil
	}

	s.adoptSession(res)
	s.RefreshProfile(ctx)
	s.persist()
	s.settle()
	return nil
}

// SignIn exchanges credentials for a session. On success the profile refresh
// is attempted before returning, so callers never observe a profile left over
// from a previous principal. A rejected sign-in records the error on the
// store as well as returning it.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	s.begin()

	res, err := s.deps.Identity.SignIn(ctx, email, password)
	if err != nil {
		s.recordFailure("sign-in failed: " + err.Error())
		return errors.Wrap(err, "[Store.SignIn] identity.SignIn")
	}

	s.mu.Lock()
	s.st.profile = nil
	s.st.profileFreshness = users.Absent
	s.mu.Unlock()

	s.adoptSession(res)
	s.RefreshProfile(ctx)
	s.persist()
	s.settle()
	return nil
}

// SignOut revokes the session remotely on a best-effort basis and clears
// local state unconditionally: the caller never observes a half-signed-out
// store, whatever the remote call did.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.RLock()
	var token string
	if s.st.sess != nil {
		token = s.st.sess.AccessToken
	}
	s.mu.RUnlock()

	if token != "" {
		if err := s.deps.Identity.SignOut(ctx, token); err != nil {
			log.Err(err).Msg("remote sign-out failed; clearing local session anyway")
		}
	}

	s.mu.Lock()
	initialized := s.st.initialized
	s.st = state{initialized: initialized}
	s.mu.Unlock()

	if err := s.deps.Snapshots.Delete(snapshotKey); err != nil {
		log.Err(err).Msg("failed to delete persisted session snapshot")
	}
}

// SignUp registers a remote account. It does not transition the store to
// authenticated; the caller signs in separately.
func (s *Store) SignUp(ctx context.Context, email, password string, attrs SignUpAttributes) (*users.User, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(ErrWeakPassword, err.Error())
	}

	user, err := s.deps.Identity.SignUp(ctx, email, password, attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.SignUp] identity.SignUp")
	}
	return user, nil
}

// CheckSession re-validates the current session against the identity service,
// updating User/Session in place. Profile is only reset when the check yields
// no session at all.
func (s *Store) CheckSession(ctx context.Context) error {
	return s.revalidate(ctx, s.deps.Identity.GetSession, "[Store.CheckSession] identity.GetSession")
}

// RefreshSession exchanges the refresh token for a new session bundle.
func (s *Store) RefreshSession(ctx context.Context) error {
	return s.revalidate(ctx, s.deps.Identity.RefreshSession, "[Store.RefreshSession] identity.RefreshSession")
}

func (s *Store) revalidate(ctx context.Context, call func(context.Context, string) (*IdentityResult, error), wrapMsg string) error {
	s.mu.RLock()
	var refreshToken string
	if s.st.sess != nil {
		refreshToken = s.st.sess.RefreshToken
	}
	s.mu.RUnlock()

	if refreshToken == "" {
		s.clearSessionState()
		return nil
	}

	s.begin()
	res, err := call(ctx, refreshToken)
	if err != nil {
		// Transient failure: keep the current session rather than kicking
		// the user out of role-gated UI.
		s.recordFailure("session refresh failed: " + err.Error())
		return errors.Wrap(err, wrapMsg)
	}
	if res == nil {
		s.clearSessionState()
		return nil
	}

	s.adoptSession(res)
	s.persist()
	s.settle()
	return nil
}

// RefreshProfile fetches the profile for the current user. It no-ops silently
// without a user, and on remote failure keeps the prior profile value marked
// stale instead of nulling it.
func (s *Store) RefreshProfile(ctx context.Context) {
	s.mu.RLock()
	user := s.st.user
	s.mu.RUnlock()
	if user == nil {
		return
	}

	profile, err := s.deps.Profiles.GetByID(ctx, user.ID)
	if err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("profile refresh failed; keeping previous profile")
		s.mu.Lock()
		if s.st.profile != nil {
			s.st.profileFreshness = users.Stale
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.st.profile = profile
	s.st.profileFreshness = users.Fresh
	s.mu.Unlock()
	s.persist()
}

// UpdateProfile performs a partial remote update and re-fetches the full
// profile on success; the partial payload is never trusted as the new truth.
func (s *Store) UpdateProfile(ctx context.Context, updates users.ProfileUpdates) error {
	s.mu.RLock()
	user := s.st.user
	s.mu.RUnlock()
	if user == nil {
		return ErrNoUser
	}

	if err := s.deps.Profiles.Update(ctx, user.ID, updates); err != nil {
		return errors.Wrap(err, "[Store.UpdateProfile] profiles.Update")
	}

	s.RefreshProfile(ctx)
	return nil
}

// Reset forces the store back to its uninitialized defaults and drops the
// persisted snapshot. Unlike SignOut it performs no remote call.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = state{loading: true}
	s.mu.Unlock()

	if err := s.deps.Snapshots.Delete(snapshotKey); err != nil {
		log.Err(err).Msg("failed to delete persisted session snapshot")
	}
}

// Snapshot returns a copy of the current state with derived flags computed.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		User:                cloneUser(s.st.user),
		Session:             cloneSession(s.st.sess),
		Profile:             cloneProfile(s.st.profile),
		ProfileFreshness:    s.st.profileFreshness,
		LastActivity:        s.st.lastActivity,
		Loading:             s.st.loading,
		Err:                 s.st.errMsg,
		IsAuthenticated:     s.st.user != nil,
		IsEmailVerified:     s.st.user.EmailVerified(),
		SessionExpiringSoon: s.st.expiringSoon,
		TimeUntilExpiry:     s.st.timeUntilExpiry,
	}
}

// IsAuthenticated reports whether a principal is currently set.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.user != nil
}

// UserID returns the current principal's id, or "" when unauthenticated.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.user == nil {
		return ""
	}
	return s.st.user.ID
}

// AccessToken returns the current bearer token, or "" without a session.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.sess == nil {
		return ""
	}
	return s.st.sess.AccessToken
}

// Err returns the recorded store-level error message, if any.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.errMsg
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.loading
}

// --- internals ---

func (s *Store) begin() {
	s.mu.Lock()
	s.st.loading = true
	s.st.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) settle() {
	s.mu.Lock()
	s.st.loading = false
	s.st.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) recordFailure(msg string) {
	s.mu.Lock()
	s.st.errMsg = msg
	s.st.loading = false
	s.mu.Unlock()
}

// clearSessionState moves the store to Unauthenticated: no user, no session,
// no profile, loading settled, no error.
func (s *Store) clearSessionState() {
	s.mu.Lock()
	initialized := s.st.initialized
	s.st = state{initialized: initialized}
	s.mu.Unlock()
}

// adoptSession installs a resolved user/session pair. Both are always set
// together so a non-nil session implies a non-nil user in every snapshot.
func (s *Store) adoptSession(res *IdentityResult) {
	s.mu.Lock()
	s.st.user = res.User
	s.st.sess = res.Session
	s.st.lastActivity = s.nowTime()
	s.recomputeExpiryLocked()
	s.mu.Unlock()
}

func (s *Store) recomputeExpiryLocked() {
	now := s.nowTime()
	s.st.timeUntilExpiry = s.st.sess.TimeUntilExpiry(now)
	s.st.expiringSoon = s.st.sess.ExpiringSoon(now)
}

func (s *Store) persist() {
	s.mu.RLock()
	ps := persistedState{
		User:         cloneUser(s.st.user),
		Session:      cloneSession(s.st.sess),
		Profile:      cloneProfile(s.st.profile),
		LastActivity: s.st.lastActivity,
	}
	if s.st.profile != nil {
		ps.TenantID = s.st.profile.TenantID
	}
	s.mu.RUnlock()

	if err := snapshot.Save(s.deps.Snapshots, snapshotKey, snapshotVersion, ps); err != nil {
		log.Err(err).Msg("failed to persist session state")
	}
}

// rehydrate restores persisted state and returns the refresh token to
// re-validate, or "" when there is nothing to resume.
func (s *Store) rehydrate() string {
	var ps persistedState
	found, err := snapshot.Load(s.deps.Snapshots, snapshotKey, snapshotVersion, &ps)
	if err != nil {
		log.Err(err).Msg("failed to read persisted session state")
		return ""
	}
	if !found || ps.User == nil || ps.Session == nil {
		return ""
	}
	if !ps.LastActivity.IsZero() && s.nowTime().Sub(ps.LastActivity) > SessionTimeout {
		log.Info().Msg("persisted session exceeded inactivity timeout; discarding")
		_ = s.deps.Snapshots.Delete(snapshotKey)
		return ""
	}

	s.mu.Lock()
	s.st.user = ps.User
	s.st.sess = ps.Session
	s.st.profile = ps.Profile
	if ps.Profile != nil {
		// Persisted profiles have not been revalidated against the remote
		// record yet.
		s.st.profileFreshness = users.Stale
	}
	s.st.lastActivity = ps.LastActivity
	s.recomputeExpiryLocked()
	s.mu.Unlock()

	return ps.Session.RefreshToken
}

func cloneUser(u *users.User) *users.User {
	if u == nil {
		return nil
	}
	copied := *u
	return &copied
}

func cloneSession(sess *Session) *Session {
	if sess == nil {
		return nil
	}
	copied := *sess
	return &copied
}

func cloneProfile(p *users.Profile) *users.Profile {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}
