// Package tenant owns the active tenant, the set of tenants the current
// principal may switch between, and cached usage metrics.
package tenant

import "time"

// StatusType is a tenant's lifecycle status.
type StatusType string

const (
	StatusActive    StatusType = "active"
	StatusSuspended StatusType = "suspended"
	StatusPending   StatusType = "pending"
)

// PlanType is a tenant's subscription tier.
type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanStarter    PlanType = "starter"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// Tenant represents a customer organization, the unit of data isolation.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Domain    string     `json:"domain,omitempty"`
	Status    StatusType `json:"status"`
	Plan      PlanType   `json:"plan"`
	Settings  Settings   `json:"settings"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// Settings holds per-tenant configuration.
type Settings struct {
	Description       string `json:"description,omitempty"`
	AllowPublicForm   bool   `json:"allow_public_form"`
	RequireModeration bool   `json:"require_moderation"`
	Limits            Limits `json:"limits"`
}

// Limits are plan-derived usage ceilings.
type Limits struct {
	MaxUsers        int   `json:"max_users"`
	MaxReviews      int   `json:"max_reviews"`
	MaxStorageBytes int64 `json:"max_storage_bytes"`
}

// DefaultSettings returns the settings a newly created tenant starts with
// for its plan tier.
func DefaultSettings(plan PlanType) Settings {
	limits := Limits{MaxUsers: 5, MaxReviews: 200, MaxStorageBytes: 256 << 20}
	switch plan {
	case PlanStarter:
		limits = Limits{MaxUsers: 20, MaxReviews: 2000, MaxStorageBytes: 2 << 30}
	case PlanPro:
		limits = Limits{MaxUsers: 100, MaxReviews: 50000, MaxStorageBytes: 20 << 30}
	case PlanEnterprise:
		limits = Limits{MaxUsers: 1000, MaxReviews: 1000000, MaxStorageBytes: 500 << 30}
	}
	return Settings{
		AllowPublicForm: true,
		Limits:          limits,
	}
}

// Metrics is a point-in-time usage snapshot for exactly one tenant. It has no
// identity of its own and is always replaced wholesale, never merged.
type Metrics struct {
	TenantID       string    `json:"tenant_id"`
	UserCount      int       `json:"user_count"`
	ReviewCount    int       `json:"review_count"`
	ActiveUsers    int       `json:"active_users"`
	StorageBytes   int64     `json:"storage_bytes"`
	APICalls       int64     `json:"api_calls"`
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
}
