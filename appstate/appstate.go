// Package appstate composes the session and tenant stores behind one facade.
// Callers that do not care which store owns a piece of state initialize,
// observe and tear down both through this type.
package appstate

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/tenant"
)

// App coordinates the two state stores. Initialization order matters only in
// that the tenant store reads the session store's principal at call time, so
// both can safely initialize concurrently.
type App struct {
	sessions *session.Store
	tenants  *tenant.Store
}

// Snapshot merges the per-store snapshots into one application-level view.
type Snapshot struct {
	Session session.Snapshot
	Tenant  tenant.Snapshot

	// Loading is true while either store is busy; Err surfaces the first
	// non-empty store error.
	Loading bool
	Err     string
}

func New(sessions *session.Store, tenants *tenant.Store) (*App, error) {
	if sessions == nil {
		return nil, errors.New("[appstate.New] session store is required")
	}
	if tenants == nil {
		return nil, errors.New("[appstate.New] tenant store is required")
	}
	return &App{sessions: sessions, tenants: tenants}, nil
}

// Initialize brings both stores up concurrently and returns the first error.
// A failed initialization leaves each store in its own settled failure state,
// so the caller can still read snapshots afterwards.
func (a *App) Initialize(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.sessions.Initialize(ctx)
	})
	group.Go(func() error {
		return a.tenants.Initialize(ctx)
	})
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "[App.Initialize]")
	}
	return nil
}

// SignIn authenticates, then scopes the tenant state to the new principal.
// A tenant refresh failure does not undo the established session; the error
// is returned for the caller to decide.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	if err := a.sessions.SignIn(ctx, email, password); err != nil {
		return err
	}
	if err := a.tenants.RefreshTenants(ctx); err != nil {
		return errors.Wrap(err, "[App.SignIn] tenant refresh")
	}
	return nil
}

// SignOut revokes the session and clears all local state, tenant side
// included.
func (a *App) SignOut(ctx context.Context) {
	a.sessions.SignOut(ctx)
	a.tenants.Reset()
}

// Reset returns both stores to their pre-Initialize defaults.
func (a *App) Reset() {
	a.sessions.Reset()
	a.tenants.Reset()
}

// Snapshot reads both stores. The two reads are not atomic with respect to
// each other; each snapshot is internally consistent.
func (a *App) Snapshot() Snapshot {
	sessionSnap := a.sessions.Snapshot()
	tenantSnap := a.tenants.Snapshot()

	errMsg := sessionSnap.Err
	if errMsg == "" {
		errMsg = tenantSnap.Err
	}
	return Snapshot{
		Session: sessionSnap,
		Tenant:  tenantSnap,
		Loading: sessionSnap.Loading || tenantSnap.Loading,
		Err:     errMsg,
	}
}

// Sessions exposes the underlying session store.
func (a *App) Sessions() *session.Store {
	return a.sessions
}

// Tenants exposes the underlying tenant store.
func (a *App) Tenants() *tenant.Store {
	return a.tenants
}
