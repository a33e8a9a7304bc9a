package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an authenticated identity. A platform superuser has a nil TenantID
// and is globally read-only for OKR content; nil here is a distinct state from
// "context never established", which downstream guards treat as deny.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    *uuid.UUID `gorm:"type:uuid;index"`
	Email       string     `gorm:"uniqueIndex;not null"`
	Name        string
	IsSuperuser bool       `gorm:"default:false"`
	ManagerID   *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// AccessGrant gives a single user explicit read access to a PRIVATE resource.
type AccessGrant struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ResourceType string    `gorm:"not null;uniqueIndex:idx_grant_resource_user"`
	ResourceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_resource_user"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_resource_user"`
	GrantedBy    uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}
