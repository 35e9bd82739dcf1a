package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/raterly/go-raterly/internal/utils"
	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/session/identityfakes"
	snapfakes "github.com/raterly/go-raterly/snapshot/repofakes"
	"github.com/raterly/go-raterly/users"
	profilefakes "github.com/raterly/go-raterly/users/repofakes"
)

const (
	testUserID       = "user-1"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
	testTenantID     = "t1"
	testAccessToken  = "access-token-1"
	testRefreshToken = "refresh-token-1"
)

// testFixture holds all test dependencies
type testFixture struct {
	identity *identityfakes.FakeIdentityService
	profiles *profilefakes.FakeProfileRepo
	snaps    *snapfakes.FakeStore
	store    *session.Store
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	identity := identityfakes.NewFakeIdentityService()
	profiles := profilefakes.NewFakeProfileRepo()
	snaps := snapfakes.NewFakeStore()

	store, err := session.New(session.Deps{
		Identity:  identity,
		Profiles:  profiles,
		Snapshots: snaps,
	}, options...)
	require.NoError(t, err)

	return &testFixture{
		identity: identity,
		profiles: profiles,
		snaps:    snaps,
		store:    store,
	}
}

func (f *testFixture) seedVerifiedUser(t *testing.T, role users.RoleType, tenantID string) *session.IdentityResult {
	t.Helper()

	confirmed := time.Now().Add(-24 * time.Hour)
	result := &session.IdentityResult{
		User: &users.User{
			ID:               testUserID,
			Email:            testUserEmail,
			EmailConfirmedAt: &confirmed,
		},
		Session: &session.Session{
			AccessToken:  testAccessToken,
			RefreshToken: testRefreshToken,
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
	f.identity.SeedAccount(testUserEmail, testUserPassword, result)
	f.profiles.Seed(&users.Profile{
		ID:       testUserID,
		Email:    testUserEmail,
		Role:     role,
		TenantID: tenantID,
	})
	return result
}

func TestSignInResolvesProfileBeforeReturning(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)

	err := f.store.SignIn(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	snap := f.store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.True(t, snap.IsEmailVerified)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Err)
	require.NotNil(t, snap.Profile)
	require.Equal(t, users.RoleUser, snap.Profile.Role)
	require.Equal(t, testTenantID, snap.Profile.TenantID)
	require.Equal(t, users.Fresh, snap.ProfileFreshness)
}

func TestSignInRejectedRecordsError(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)

	err := f.store.SignIn(context.Background(), testUserEmail, "wrong-password")
	require.ErrorIs(t, err, session.ErrInvalidCredentials)

	snap := f.store.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.False(t, snap.Loading)
	require.NotEmpty(t, snap.Err)
}

func TestSignOutClearsStateEvenWhenRemoteFails(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	f.identity.SignOutErr = errors.New("network down")
	f.store.SignOut(context.Background())

	snap := f.store.Snapshot()
	require.Nil(t, snap.User)
	require.Nil(t, snap.Session)
	require.Nil(t, snap.Profile)
	require.False(t, snap.IsAuthenticated)
	require.False(t, f.snaps.Has("session-store"))
}

func TestEmailVerificationTracksConfirmationTimestamp(t *testing.T) {
	f := setupTestFixture(t)
	f.identity.SeedAccount(testUserEmail, testUserPassword, &session.IdentityResult{
		User:    &users.User{ID: testUserID, Email: testUserEmail}, // never confirmed
		Session: &session.Session{AccessToken: testAccessToken, RefreshToken: testRefreshToken, ExpiresAt: time.Now().Add(time.Hour)},
	})
	f.profiles.Seed(&users.Profile{ID: testUserID, Role: users.RoleUser})

	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	snap := f.store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.False(t, snap.IsEmailVerified)
}

func TestInitializeGuardSkipsDuplicateSessionCheck(t *testing.T) {
	first := setupTestFixture(t)
	result := first.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, first.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	// Simulate a reload: a fresh store over the same persisted snapshot.
	identity := identityfakes.NewFakeIdentityService()
	identity.SessionResult = result
	profiles := profilefakes.NewFakeProfileRepo()
	profiles.Seed(&users.Profile{ID: testUserID, Role: users.RoleUser, TenantID: testTenantID})

	store, err := session.New(session.Deps{Identity: identity, Profiles: profiles, Snapshots: first.snaps})
	require.NoError(t, err)

	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Initialize(context.Background()))
	require.Equal(t, 1, identity.GetSessionCalls)
}

func TestRehydrationRoundTrip(t *testing.T) {
	first := setupTestFixture(t)
	result := first.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, first.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	identity := identityfakes.NewFakeIdentityService()
	identity.SessionResult = result
	profiles := profilefakes.NewFakeProfileRepo()
	profiles.Seed(&users.Profile{ID: testUserID, Role: users.RoleUser, TenantID: testTenantID})

	store, err := session.New(session.Deps{Identity: identity, Profiles: profiles, Snapshots: first.snaps})
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))

	snap := store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, testUserID, snap.User.ID)
	require.Equal(t, testAccessToken, snap.Session.AccessToken)
	require.Equal(t, testRefreshToken, snap.Session.RefreshToken)
	require.False(t, snap.Loading)
}

func TestInitializeWithoutPersistedSessionIsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.store.Initialize(context.Background()))

	snap := f.store.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Err)
	require.Equal(t, 0, f.identity.GetSessionCalls)
}

func TestRefreshProfileKeepsStaleValueOnFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleTenantAdmin, testTenantID)
	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	f.profiles.GetErr = errors.New("network down")
	f.store.RefreshProfile(context.Background())

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Profile)
	require.Equal(t, users.RoleTenantAdmin, snap.Profile.Role)
	require.Equal(t, users.Stale, snap.ProfileFreshness)
}

func TestUpdateProfileRequiresUser(t *testing.T) {
	f := setupTestFixture(t)

	err := f.store.UpdateProfile(context.Background(), users.ProfileUpdates{FullName: utils.Ptr("Jane Doe")})
	require.ErrorIs(t, err, session.ErrNoUser)
}

func TestUpdateProfileRefetchesFullRecord(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	err := f.store.UpdateProfile(context.Background(), users.ProfileUpdates{FullName: utils.Ptr("Jane Doe")})
	require.NoError(t, err)

	snap := f.store.Snapshot()
	require.Equal(t, "Jane Doe", snap.Profile.FullName)
	require.Equal(t, users.Fresh, snap.ProfileFreshness)
}

func TestSignUpDoesNotAuthenticate(t *testing.T) {
	f := setupTestFixture(t)

	user, err := f.store.SignUp(context.Background(), "new@example.com", "Password123", session.SignUpAttributes{})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.False(t, f.store.IsAuthenticated())
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.store.SignUp(context.Background(), "new@example.com", "weak", session.SignUpAttributes{})
	require.ErrorIs(t, err, session.ErrWeakPassword)
}

func TestCheckSessionClearsWhenNoSessionFound(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	f.identity.SessionResult = nil // provider no longer recognises the token
	require.NoError(t, f.store.CheckSession(context.Background()))

	snap := f.store.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Nil(t, snap.Session)
	require.Nil(t, snap.Profile)
}

func TestRefreshSessionFailureKeepsCurrentSession(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser(t, users.RoleUser, testTenantID)
	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	f.identity.RefreshErr = errors.New("gateway timeout")
	err := f.store.RefreshSession(context.Background())
	require.Error(t, err)

	snap := f.store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.NotNil(t, snap.Session)
	require.NotEmpty(t, snap.Err)
	require.False(t, snap.Loading)
}

func TestSessionExpiryBookkeeping(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, session.WithNowTime(func() time.Time { return now }))

	confirmed := now.Add(-time.Hour)
	f.identity.SeedAccount(testUserEmail, testUserPassword, &session.IdentityResult{
		User: &users.User{ID: testUserID, Email: testUserEmail, EmailConfirmedAt: &confirmed},
		Session: &session.Session{
			AccessToken:  testAccessToken,
			RefreshToken: testRefreshToken,
			ExpiresAt:    now.Add(3 * time.Minute),
		},
	})
	f.profiles.Seed(&users.Profile{ID: testUserID, Role: users.RoleUser})

	require.NoError(t, f.store.SignIn(context.Background(), testUserEmail, testUserPassword))

	snap := f.store.Snapshot()
	require.True(t, snap.SessionExpiringSoon)
	require.Equal(t, 3*time.Minute, snap.TimeUntilExpiry)
}
