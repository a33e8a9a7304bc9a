package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Organization is the tenant root scope. Workspaces, teams, cycles and all
// OKR content hang off it.
type Organization struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug string    `gorm:"uniqueIndex;not null"`
	Name string    `gorm:"not null"`

	// AllowTenantAdminExecVisibility lets tenant admins read published
	// EXEC_ONLY legacy content without a whitelist entry.
	AllowTenantAdminExecVisibility bool `gorm:"default:false"`

	// ExecOnlyWhitelist holds user IDs exempt from the EXEC_ONLY
	// restriction on published legacy content.
	ExecOnlyWhitelist pq.StringArray `gorm:"type:text[]"`

	// FeatureFlags maps user ID -> flag name -> enabled, e.g.
	// {"<user>": {"rbacInspector": true}}.
	FeatureFlags JSONB `gorm:"type:jsonb;default:'{}'"`

	Workspaces []Workspace `gorm:"foreignKey:TenantID"`
	Cycles     []Cycle     `gorm:"foreignKey:TenantID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// FlagEnabled reports whether a per-user feature flag is on for this tenant.
func (o *Organization) FlagEnabled(userID uuid.UUID, flag string) bool {
	if o == nil || o.FeatureFlags == nil {
		return false
	}
	perUser, ok := o.FeatureFlags[userID.String()].(map[string]interface{})
	if !ok {
		return false
	}
	enabled, ok := perUser[flag].(bool)
	return ok && enabled
}

// Whitelisted reports whether a user is on the exec-only whitelist.
func (o *Organization) Whitelisted(userID uuid.UUID) bool {
	if o == nil {
		return false
	}
	id := userID.String()
	for _, entry := range o.ExecOnlyWhitelist {
		if entry == id {
			return true
		}
	}
	return false
}

type Workspace struct {
	ID        uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Tenant    *Organization `gorm:"foreignKey:TenantID"`
	Name      string        `gorm:"not null"`
	Teams     []Team        `gorm:"foreignKey:WorkspaceID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Team struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	WorkspaceID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Workspace   *Workspace `gorm:"foreignKey:WorkspaceID"`
	Name        string     `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CycleStatus string

const (
	CycleDraft    CycleStatus = "DRAFT"
	CycleActive   CycleStatus = "ACTIVE"
	CycleLocked   CycleStatus = "LOCKED"
	CycleArchived CycleStatus = "ARCHIVED"
)

// Cycle is a time-boxed OKR period. StartsAt must strictly precede EndsAt.
type Cycle struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name      string      `gorm:"not null"`
	Status    CycleStatus `gorm:"type:varchar(20);default:'DRAFT';index"`
	StartsAt  time.Time   `gorm:"not null"`
	EndsAt    time.Time   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EditRestricted reports whether the cycle propagates a lock to all content
// scoped to it.
func (c *Cycle) EditRestricted() bool {
	if c == nil {
		return false
	}
	return c.Status == CycleLocked || c.Status == CycleArchived
}

// CanTransitionTo enforces the one-directional cycle lifecycle
// DRAFT -> ACTIVE -> LOCKED -> ARCHIVED.
func (s CycleStatus) CanTransitionTo(next CycleStatus) bool {
	switch s {
	case CycleDraft:
		return next == CycleActive
	case CycleActive:
		return next == CycleLocked
	case CycleLocked:
		return next == CycleArchived
	default:
		return false
	}
}

func IsValidCycleStatus(s CycleStatus) bool {
	switch s {
	case CycleDraft, CycleActive, CycleLocked, CycleArchived:
		return true
	default:
		return false
	}
}
