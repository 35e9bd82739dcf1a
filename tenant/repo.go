package tenant

import (
	"context"
	"errors"
)

var (
	// ErrTenantNotFound is returned when a tenant id resolves to nothing.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrNoTenantAssigned is the valid, non-erroneous outcome of looking up
	// a principal who belongs to no tenant.
	ErrNoTenantAssigned = errors.New("user not assigned to any tenant")
)

// CreateRequest carries the fields needed to originate a tenant.
type CreateRequest struct {
	Name   string   `json:"name"`
	Domain string   `json:"domain,omitempty"`
	Plan   PlanType `json:"plan,omitempty"`
}

// Updates is a partial tenant update; nil fields are left untouched.
type Updates struct {
	Name     *string     `json:"name,omitempty"`
	Domain   *string     `json:"domain,omitempty"`
	Status   *StatusType `json:"status,omitempty"`
	Plan     *PlanType   `json:"plan,omitempty"`
	Settings *Settings   `json:"settings,omitempty"`
}

// Repo is the remote tenant service consumed by the Store.
type Repo interface {
	// GetForUser fetches the tenant the principal belongs to.
	// Returns ErrNoTenantAssigned when they have none.
	GetForUser(ctx context.Context, userID string) (*Tenant, error)

	// List fetches every tenant on the platform. Admin-only server-side.
	List(ctx context.Context) ([]*Tenant, error)

	// Get fetches one tenant by id.
	Get(ctx context.Context, id string) (*Tenant, error)

	// Metrics fetches the usage snapshot for one tenant.
	Metrics(ctx context.Context, id string) (*Metrics, error)

	// Create originates a tenant and returns the full created record.
	Create(ctx context.Context, req CreateRequest) (*Tenant, error)

	// Update applies a partial update and returns the full updated record.
	Update(ctx context.Context, id string, updates Updates) (*Tenant, error)

	// Delete removes a tenant.
	Delete(ctx context.Context, id string) error
}
