package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTenantID is the sentinel tenant whose storage keys drop the
// tenant path segment.
const DefaultTenantID = "default"

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

type Tenant struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Status    TenantStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

func (t *Tenant) IsDefault() bool {
	return t.ID == DefaultTenantID
}

func (t *Tenant) Active() bool {
	return t.Status == TenantStatusActive
}

// APIKey authenticates a tenant; token parsing and validation live in
// the HTTP layer, only the repository-facing shape lives here.
type APIKey struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  string     `json:"tenant_id" db:"tenant_id"`
	KeyHash   string     `json:"-" db:"key_hash"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}
