package appstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/raterly/go-raterly/appstate"
	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/session/identityfakes"
	snapfakes "github.com/raterly/go-raterly/snapshot/repofakes"
	"github.com/raterly/go-raterly/tenant"
	tenantfakes "github.com/raterly/go-raterly/tenant/repofakes"
	"github.com/raterly/go-raterly/users"
	profilefakes "github.com/raterly/go-raterly/users/repofakes"
)

const (
	testUserID       = "user-1"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
	testTenantID     = "t1"
)

// testFixture holds all test dependencies
type testFixture struct {
	identity *identityfakes.FakeIdentityService
	profiles *profilefakes.FakeProfileRepo
	tenants  *tenantfakes.FakeTenantRepo
	snaps    *snapfakes.FakeStore
	app      *appstate.App
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		identity: identityfakes.NewFakeIdentityService(),
		profiles: profilefakes.NewFakeProfileRepo(),
		tenants:  tenantfakes.NewFakeTenantRepo(),
		snaps:    snapfakes.NewFakeStore(),
	}

	sessionStore, err := session.New(session.Deps{
		Identity:  f.identity,
		Profiles:  f.profiles,
		Snapshots: f.snaps,
	})
	require.NoError(t, err)

	tenantStore, err := tenant.New(tenant.Deps{
		Tenants:       f.tenants,
		Profiles:      f.profiles,
		CurrentUserID: sessionStore.UserID,
		Snapshots:     f.snaps,
	})
	require.NoError(t, err)

	app, err := appstate.New(sessionStore, tenantStore)
	require.NoError(t, err)

	f.app = app
	return f
}

func (f *testFixture) seedAccount(t *testing.T, role users.RoleType) {
	t.Helper()

	confirmed := time.Now().Add(-24 * time.Hour)
	f.identity.SeedAccount(testUserEmail, testUserPassword, &session.IdentityResult{
		User: &users.User{
			ID:               testUserID,
			Email:            testUserEmail,
			EmailConfirmedAt: &confirmed,
		},
		Session: &session.Session{
			AccessToken:  "access-token-1",
			RefreshToken: "refresh-token-1",
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	})
	f.profiles.Seed(&users.Profile{
		ID:       testUserID,
		Email:    testUserEmail,
		Role:     role,
		TenantID: testTenantID,
	})
	f.tenants.Seed(&tenant.Tenant{
		ID:     testTenantID,
		Name:   "Acme Reviews",
		Status: tenant.StatusActive,
		Plan:   tenant.PlanStarter,
	})
	f.tenants.SeedMembership(testUserID, testTenantID)
}

func TestNewRequiresBothStores(t *testing.T) {
	f := setupTestFixture(t)

	_, err := appstate.New(nil, f.app.Tenants())
	require.Error(t, err)

	_, err = appstate.New(f.app.Sessions(), nil)
	require.Error(t, err)
}

func TestInitializeSettlesBothStores(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.app.Initialize(context.Background()))

	snap := f.app.Snapshot()
	require.False(t, snap.Loading)
	require.Empty(t, snap.Err)
	require.False(t, snap.Session.IsAuthenticated)
	require.Nil(t, snap.Tenant.Current)
}

func TestSignInEstablishesSessionAndTenantScope(t *testing.T) {
	f := setupTestFixture(t)
	f.seedAccount(t, users.RoleUser)
	require.NoError(t, f.app.Initialize(context.Background()))

	require.NoError(t, f.app.SignIn(context.Background(), testUserEmail, testUserPassword))

	snap := f.app.Snapshot()
	require.True(t, snap.Session.IsAuthenticated)
	require.NotNil(t, snap.Tenant.Current)
	require.Equal(t, testTenantID, snap.Tenant.Current.ID)
	require.True(t, snap.Tenant.IsTenantActive)
	require.False(t, snap.Loading)
}

func TestSignInSurvivesTenantRefreshFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.seedAccount(t, users.RoleUser)
	f.tenants.GetForUserErr = errors.New("tenant service down")

	err := f.app.SignIn(context.Background(), testUserEmail, testUserPassword)
	require.Error(t, err)

	snap := f.app.Snapshot()
	require.True(t, snap.Session.IsAuthenticated)
	require.Contains(t, snap.Err, "tenant service down")
}

func TestSignOutClearsBothStores(t *testing.T) {
	f := setupTestFixture(t)
	f.seedAccount(t, users.RoleUser)
	require.NoError(t, f.app.SignIn(context.Background(), testUserEmail, testUserPassword))
	require.True(t, f.snaps.Has("session-store"))
	require.True(t, f.snaps.Has("tenant-store"))

	f.app.SignOut(context.Background())

	require.False(t, f.snaps.Has("session-store"))
	require.False(t, f.snaps.Has("tenant-store"))
	snap := f.app.Snapshot()
	require.False(t, snap.Session.IsAuthenticated)
	require.Nil(t, snap.Tenant.Current)
}

func TestSnapshotSurfacesFirstStoreError(t *testing.T) {
	f := setupTestFixture(t)
	f.seedAccount(t, users.RoleUser)
	require.NoError(t, f.app.SignIn(context.Background(), testUserEmail, testUserPassword))

	f.tenants.MetricsErr = errors.New("metrics backend timeout")
	require.Error(t, f.app.Tenants().RefreshMetrics(context.Background()))

	snap := f.app.Snapshot()
	require.Empty(t, snap.Session.Err)
	require.Contains(t, snap.Err, "metrics backend timeout")
}
