package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raterly/go-raterly/tenant"
)

var _ tenant.Repo = (*FakeTenantRepo)(nil)

// FakeTenantRepo is an in-memory tenant service for tests. Seed tenants and
// memberships, and set the *Err fields to force failure paths.
type FakeTenantRepo struct {
	tenants     map[string]*tenant.Tenant
	memberships map[string]string // userID -> tenantID
	metrics     map[string]*tenant.Metrics
	lock        sync.RWMutex

	GetForUserErr error
	ListErr       error
	MetricsErr    error
	CreateErr     error
	UpdateErr     error
	DeleteErr     error

	GetForUserCalls int
	ListCalls       int
	MetricsCalls    int
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants:     make(map[string]*tenant.Tenant),
		memberships: make(map[string]string),
		metrics:     make(map[string]*tenant.Metrics),
	}
}

func (tr *FakeTenantRepo) Seed(t *tenant.Tenant) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.tenants[t.ID] = t
}

func (tr *FakeTenantRepo) SeedMembership(userID, tenantID string) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.memberships[userID] = tenantID
}

func (tr *FakeTenantRepo) SeedMetrics(m *tenant.Metrics) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.metrics[m.TenantID] = m
}

func (tr *FakeTenantRepo) GetForUser(_ context.Context, userID string) (*tenant.Tenant, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.GetForUserCalls++
	if tr.GetForUserErr != nil {
		return nil, tr.GetForUserErr
	}
	tenantID, ok := tr.memberships[userID]
	if !ok {
		return nil, tenant.ErrNoTenantAssigned
	}
	t, ok := tr.tenants[tenantID]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	copied := *t
	return &copied, nil
}

func (tr *FakeTenantRepo) List(_ context.Context) ([]*tenant.Tenant, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.ListCalls++
	if tr.ListErr != nil {
		return nil, tr.ListErr
	}
	list := make([]*tenant.Tenant, 0, len(tr.tenants))
	for _, t := range tr.tenants {
		copied := *t
		list = append(list, &copied)
	}
	return list, nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, id string) (*tenant.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	copied := *t
	return &copied, nil
}

func (tr *FakeTenantRepo) Metrics(_ context.Context, id string) (*tenant.Metrics, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.MetricsCalls++
	if tr.MetricsErr != nil {
		return nil, tr.MetricsErr
	}
	m, ok := tr.metrics[id]
	if !ok {
		return &tenant.Metrics{TenantID: id}, nil
	}
	copied := *m
	return &copied, nil
}

func (tr *FakeTenantRepo) Create(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.CreateErr != nil {
		return nil, tr.CreateErr
	}
	created := &tenant.Tenant{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Domain:    req.Domain,
		Status:    tenant.StatusPending,
		Plan:      req.Plan,
		Settings:  tenant.DefaultSettings(req.Plan),
		CreatedAt: time.Now(),
	}
	tr.tenants[created.ID] = created
	copied := *created
	return &copied, nil
}

func (tr *FakeTenantRepo) Update(_ context.Context, id string, updates tenant.Updates) (*tenant.Tenant, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.UpdateErr != nil {
		return nil, tr.UpdateErr
	}
	t, ok := tr.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	if updates.Name != nil {
		t.Name = *updates.Name
	}
	if updates.Domain != nil {
		t.Domain = *updates.Domain
	}
	if updates.Status != nil {
		t.Status = *updates.Status
	}
	if updates.Plan != nil {
		t.Plan = *updates.Plan
	}
	if updates.Settings != nil {
		t.Settings = *updates.Settings
	}
	t.UpdatedAt = time.Now()
	copied := *t
	return &copied, nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, id string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.DeleteErr != nil {
		return tr.DeleteErr
	}
	if _, ok := tr.tenants[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(tr.tenants, id)
	delete(tr.metrics, id)
	return nil
}
