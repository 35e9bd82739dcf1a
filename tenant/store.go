package tenant

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
	snapshotKey     = "tenant-store"
	snapshotVersion = 1

	// CacheWindow bounds how stale cached tenant data may be before an
	// initialization refetches instead of reusing it.
	CacheWindow = 5 * time.Minute
)

// Deps holds all remote-service and storage dependencies for the Store.
type Deps struct {
	Tenants  Repo
	Profiles users.ProfileRepo

	// CurrentUserID supplies the session store's resolved principal id.
	// Injected as a function to keep the stores decoupled; the store reads
	// it at call time rather than subscribing reactively.
	CurrentUserID func() string

	Snapshots snapshot.Store
}

// Store is the tenant state container, scoped by the session store's
// resolved role at each refresh.
type Store struct {
	deps        Deps
	nowTime     func() time.Time
	cacheWindow time.Duration

	mu sync.RWMutex
	st state
}

type state struct {
	current          *Tenant
	tenants          []*Tenant
	available        []*Tenant
	metrics          *Metrics
	metricsFreshness users.Freshness
	selectedID       string
	lastFetch        time.Time
	loading          bool
	errMsg           string
	initialized      bool
	switching        bool
}

// persistedState is the subset of state that survives process restarts.
// Metrics and the tenant list are deliberately not persisted; they are
// cheap to refetch and quick to go stale.
type persistedState struct {
	Current    *Tenant   `json:"current_tenant,omitempty"`
	SelectedID string    `json:"selected_id,omitempty"`
	LastFetch  time.Time `json:"last_fetch,omitempty"`
}

// Snapshot is a point-in-time copy of the store's state plus derived flags.
type Snapshot struct {
	Current          *Tenant
	Tenants          []*Tenant
	Available        []*Tenant
	Metrics          *Metrics
	MetricsFreshness users.Freshness
	LastFetch        time.Time
	Loading          bool
	Switching        bool
	Err              string
	IsTenantActive   bool
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithCacheWindow overrides the default cache validity window.
func WithCacheWindow(window time.Duration) Option {
	return func(s *Store) {
		s.cacheWindow = window
	}
}

// New initializes a tenant Store with required dependencies.
func New(deps Deps, options ...Option) (*Store, error) {
	if deps.Tenants == nil {
		return nil, errors.New("[tenant.New] Tenants repo is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[tenant.New] Profiles repo is required")
	}
	if deps.CurrentUserID == nil {
		return nil, errors.New("[tenant.New] CurrentUserID func is required")
	}
	if deps.Snapshots == nil {
		return nil, errors.New("[tenant.New] Snapshots store is required")
	}

	store := &Store{
		deps:        deps,
		nowTime:     time.Now,
		cacheWindow: CacheWindow,
	}
	store.st.loading = true

	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Initialize rehydrates persisted state and refreshes the tenant list,
// short-circuiting the refresh while the cache is still valid and at least
// one tenant is already cached. Duplicate calls no-op on the guard flag.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.st.initialized {
		s.mu.Unlock()
		return nil
	}
	s.st.initialized = true
	s.st.loading = true
	s.mu.Unlock()

	s.rehydrate()

	s.mu.Lock()
	if s.isCacheValidLocked() && len(s.st.tenants) > 0 {
		s.st.loading = false
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.RefreshTenants(ctx)
}

// RefreshTenants fetches the principal's tenant and, for platform admins,
// the full tenant list. A principal with no tenant assignment yields empty
// state without an error. No-ops when the session store has no principal.
func (s *Store) RefreshTenants(ctx context.Context) error {
	userID := s.deps.CurrentUserID()
	if userID == "" {
		// Nothing to scope to yet; settle rather than spin.
		s.mu.Lock()
		s.st.loading = false
		s.mu.Unlock()
		return nil
	}
	s.begin()

	// Role scope comes from a fresh remote profile lookup at call time;
	// a later role change only takes effect on the next refresh.
	role := s.resolveRole(ctx, userID)

	current, err := s.deps.Tenants.GetForUser(ctx, userID)
	switch {
	case errors.Is(err, ErrNoTenantAssigned):
		current = nil
	case err != nil:
		s.recordFailure("tenant fetch failed: " + err.Error())
		return errors.Wrap(err, "[Store.RefreshTenants] tenants.GetForUser")
	}

	if role == users.RoleSuperAdmin {
		all, err := s.deps.Tenants.List(ctx)
		if err != nil {
			s.recordFailure("tenant list fetch failed: " + err.Error())
			return errors.Wrap(err, "[Store.RefreshTenants] tenants.List")
		}

		s.mu.Lock()
		s.st.tenants = all
		s.st.available = all
		s.st.current = pickCurrent(current, all, s.st.selectedID)
		s.st.lastFetch = s.nowTime()
		s.st.loading = false
		s.st.errMsg = ""
		s.mu.Unlock()
		s.persist()
		return nil
	}

	if current == nil {
		// Valid empty state, not a failure.
		s.mu.Lock()
		s.st.current = nil
		s.st.tenants = nil
		s.st.available = nil
		s.st.metrics = nil
		s.st.metricsFreshness = users.Absent
		s.st.selectedID = ""
		s.st.lastFetch = s.nowTime()
		s.st.loading = false
		s.st.errMsg = ""
		s.mu.Unlock()
		s.persist()
		return nil
	}

	s.mu.Lock()
	s.st.tenants = []*Tenant{current}
	s.st.available = []*Tenant{current}
	s.st.current = current
	s.st.lastFetch = s.nowTime()
	s.st.loading = false
	s.st.errMsg = ""
	s.mu.Unlock()
	s.persist()
	return nil
}

// SwitchTenant activates a tenant that is already in the cached list.
// Switching among uncached tenants requires a RefreshTenants first; no
// remote lookup happens here. On success a metrics refresh is triggered for
// the new tenant.
func (s *Store) SwitchTenant(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	var target *Tenant
	for _, t := range s.st.tenants {
		if t.ID == tenantID {
			target = t
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrTenantNotFound
	}
	s.st.current = target
	s.st.selectedID = tenantID
	s.st.switching = true
	if s.st.metrics != nil && s.st.metrics.TenantID != tenantID {
		// Metrics describe exactly one tenant; the previous tenant's numbers
		// must never surface under the new one, even while the refresh below
		// is failing.
		s.st.metrics = nil
		s.st.metricsFreshness = users.Absent
	}
	s.mu.Unlock()
	s.persist()

	if err := s.RefreshMetrics(ctx); err != nil {
		log.Err(err).Str("tenant_id", tenantID).Msg("metrics refresh after tenant switch failed")
	}

	s.mu.Lock()
	s.st.switching = false
	s.mu.Unlock()
	return nil
}

// CreateTenant originates a tenant remotely and appends the created record
// to the cached lists.
func (s *Store) CreateTenant(ctx context.Context, req CreateRequest) (*Tenant, error) {
	if req.Name == "" {
		return nil, errors.New("[Store.CreateTenant] name is required")
	}
	if req.Plan == "" {
		req.Plan = PlanFree
	}

	created, err := s.deps.Tenants.Create(ctx, req)
	if err != nil {
		s.recordFailure("tenant create failed: " + err.Error())
		return nil, errors.Wrap(err, "[Store.CreateTenant] tenants.Create")
	}

	s.mu.Lock()
	s.st.tenants = applyTenantPatch(s.st.tenants, patchUpsert, created, created.ID)
	s.st.available = applyTenantPatch(s.st.available, patchUpsert, created, created.ID)
	s.st.errMsg = ""
	s.mu.Unlock()
	s.persist()
	return created, nil
}

// UpdateTenant applies a partial remote update, then optimistically patches
// every cached copy with the returned record instead of refetching. On
// failure the caches are left untouched.
func (s *Store) UpdateTenant(ctx context.Context, tenantID string, updates Updates) (*Tenant, error) {
	updated, err := s.deps.Tenants.Update(ctx, tenantID, updates)
	if err != nil {
		s.recordFailure("tenant update failed: " + err.Error())
		return nil, errors.Wrap(err, "[Store.UpdateTenant] tenants.Update")
	}

	s.mu.Lock()
	s.st.tenants = applyTenantPatch(s.st.tenants, patchUpsert, updated, tenantID)
	s.st.available = applyTenantPatch(s.st.available, patchUpsert, updated, tenantID)
	if s.st.current != nil && s.st.current.ID == tenantID {
		s.st.current = updated
	}
	s.st.errMsg = ""
	s.mu.Unlock()
	s.persist()
	return updated, nil
}

// DeleteTenant removes a tenant remotely and drops it from every cache.
func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	if err := s.deps.Tenants.Delete(ctx, tenantID); err != nil {
		s.recordFailure("tenant delete failed: " + err.Error())
		return errors.Wrap(err, "[Store.DeleteTenant] tenants.Delete")
	}

	s.mu.Lock()
	s.st.tenants = applyTenantPatch(s.st.tenants, patchRemove, nil, tenantID)
	s.st.available = applyTenantPatch(s.st.available, patchRemove, nil, tenantID)
	if s.st.current != nil && s.st.current.ID == tenantID {
		s.st.current = nil
		s.st.metrics = nil
		s.st.metricsFreshness = users.Absent
		s.st.selectedID = ""
	}
	s.st.errMsg = ""
	s.mu.Unlock()
	s.persist()
	return nil
}

// RefreshMetrics replaces the usage snapshot for the active tenant. Metrics
// are only ever replaced wholesale; they represent one point in time for one
// tenant. No-ops without an active tenant.
func (s *Store) RefreshMetrics(ctx context.Context) error {
	s.mu.RLock()
	current := s.st.current
	s.mu.RUnlock()
	if current == nil {
		return nil
	}

	s.begin()
	metrics, err := s.deps.Tenants.Metrics(ctx, current.ID)
	if err != nil {
		s.mu.Lock()
		if s.st.metrics != nil {
			s.st.metricsFreshness = users.Stale
		}
		s.mu.Unlock()
		s.recordFailure("metrics fetch failed: " + err.Error())
		return errors.Wrap(err, "[Store.RefreshMetrics] tenants.Metrics")
	}

	s.mu.Lock()
	s.st.metrics = metrics
	s.st.metricsFreshness = users.Fresh
	s.st.loading = false
	s.st.errMsg = ""
	s.mu.Unlock()
	return nil
}

// Reset forces the store back to its uninitialized defaults and drops the
// persisted snapshot. Used on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = state{loading: true}
	s.mu.Unlock()

	if err := s.deps.Snapshots.Delete(snapshotKey); err != nil {
		log.Err(err).Msg("failed to delete persisted tenant snapshot")
	}
}

// Snapshot returns a copy of the current state with derived flags computed.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Current:          cloneTenant(s.st.current),
		Tenants:          cloneTenants(s.st.tenants),
		Available:        cloneTenants(s.st.available),
		Metrics:          cloneMetrics(s.st.metrics),
		MetricsFreshness: s.st.metricsFreshness,
		LastFetch:        s.st.lastFetch,
		Loading:          s.st.loading,
		Switching:        s.st.switching,
		Err:              s.st.errMsg,
		IsTenantActive:   s.st.current != nil && s.st.current.Status == StatusActive,
	}
}

// Current returns a copy of the active tenant, or nil.
func (s *Store) Current() *Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTenant(s.st.current)
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

func (s *Store) recordFailure(msg string) {
	s.mu.Lock()
	s.st.errMsg = msg
	s.st.loading = false
	s.mu.Unlock()
}

// resolveRole looks up the principal's role remotely. Lookup failure falls
// back to the regular-user scope so a transient error can only narrow, never
// widen, tenant visibility.
func (s *Store) resolveRole(ctx context.Context, userID string) users.RoleType {
	profile, err := s.deps.Profiles.GetByID(ctx, userID)
	if err != nil {
		log.Err(err).Str("user_id", userID).Msg("role lookup failed; scoping tenants as regular user")
		return users.RoleUser
	}
	return profile.Role
}

func (s *Store) isCacheValidLocked() bool {
	if s.st.lastFetch.IsZero() {
		return false
	}
	return s.nowTime().Sub(s.st.lastFetch) < s.cacheWindow
}

// pickCurrent chooses the active tenant for an admin refresh: their own
// tenant when they have one, otherwise the previously selected tenant if it
// is still listed.
func pickCurrent(own *Tenant, all []*Tenant, selectedID string) *Tenant {
	if own != nil {
		return own
	}
	if selectedID == "" {
		return nil
	}
	for _, t := range all {
		if t.ID == selectedID {
			return t
		}
	}
	return nil
}

func (s *Store) persist() {
	s.mu.RLock()
	ps := persistedState{
		Current:    cloneTenant(s.st.current),
		SelectedID: s.st.selectedID,
		LastFetch:  s.st.lastFetch,
	}
	s.mu.RUnlock()

	if err := snapshot.Save(s.deps.Snapshots, snapshotKey, snapshotVersion, ps); err != nil {
		log.Err(err).Msg("failed to persist tenant state")
	}
}

func (s *Store) rehydrate() {
	var ps persistedState
	found, err := snapshot.Load(s.deps.Snapshots, snapshotKey, snapshotVersion, &ps)
	if err != nil {
		log.Err(err).Msg("failed to read persisted tenant state")
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	s.st.current = ps.Current
	s.st.selectedID = ps.SelectedID
	s.st.lastFetch = ps.LastFetch
	if ps.Current != nil {
		// Until a refresh widens the view, the rehydrated tenant is the
		// whole visible set.
		s.st.tenants = []*Tenant{ps.Current}
		s.st.available = []*Tenant{ps.Current}
	}
	s.mu.Unlock()
}

func cloneTenant(t *Tenant) *Tenant {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func cloneTenants(list []*Tenant) []*Tenant {
	if list == nil {
		return nil
	}
	copied := make([]*Tenant, len(list))
	for i, t := range list {
		copied[i] = cloneTenant(t)
	}
	return copied
}

func cloneMetrics(m *Metrics) *Metrics {
	if m == nil {
		return nil
	}
	copied := *m
	return &copied
}
