package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of allowed mutations and publish/lock
// transitions. Rows are never updated or deleted.
type AuditLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ActorUserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Action         string    `gorm:"not null;index"`
	TargetType     string    `gorm:"not null"`
	TargetID       uuid.UUID `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Metadata       JSONB     `gorm:"type:jsonb;default:'{}'"`
	CreatedAt      time.Time `gorm:"index"`
}
