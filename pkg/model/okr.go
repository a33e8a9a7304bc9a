package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OKRStatus string

const (
	StatusOnTrack   OKRStatus = "ON_TRACK"
	StatusAtRisk    OKRStatus = "AT_RISK"
	StatusOffTrack  OKRStatus = "OFF_TRACK"
	StatusCompleted OKRStatus = "COMPLETED"
	StatusCancelled OKRStatus = "CANCELLED"
)

func IsValidOKRStatus(s OKRStatus) bool {
	switch s {
	case StatusOnTrack, StatusAtRisk, StatusOffTrack, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

type Objective struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index"`
	TeamID      *uuid.UUID `gorm:"type:uuid;index"`
	CycleID     *uuid.UUID `gorm:"type:uuid;index"`
	Cycle       *Cycle     `gorm:"foreignKey:CycleID"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string
	Status      OKRStatus       `gorm:"type:varchar(20);default:'ON_TRACK'"`
	ProgressPct float64         `gorm:"default:0"`
	IsPublished bool            `gorm:"default:false;index"`
	Visibility  VisibilityLevel `gorm:"type:varchar(30);default:'PUBLIC_TENANT'"`
	KeyResults  []ObjectiveKeyResult `gorm:"foreignKey:ObjectiveID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

type KeyResult struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	WorkspaceID  *uuid.UUID `gorm:"type:uuid;index"`
	TeamID       *uuid.UUID `gorm:"type:uuid;index"`
	CycleID      *uuid.UUID `gorm:"type:uuid;index"`
	Cycle        *Cycle     `gorm:"foreignKey:CycleID"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title        string     `gorm:"not null"`
	Unit         string
	StartValue   float64
	TargetValue  float64
	CurrentValue float64
	Status       OKRStatus       `gorm:"type:varchar(20);default:'ON_TRACK'"`
	ProgressPct  float64         `gorm:"default:0"`
	IsPublished  bool            `gorm:"default:false;index"`
	Visibility   VisibilityLevel `gorm:"type:varchar(30);default:'PUBLIC_TENANT'"`
	Initiatives  []Initiative    `gorm:"foreignKey:KeyResultID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// ObjectiveKeyResult links a key result to an objective with a roll-up
// weight. Weight is validated against the configured ceiling on write.
type ObjectiveKeyResult struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ObjectiveID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_obj_kr"`
	KeyResultID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_obj_kr"`
	KeyResult   *KeyResult `gorm:"foreignKey:KeyResultID"`
	Weight      float64    `gorm:"default:1"`
	CreatedAt   time.Time
}

type Initiative struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	KeyResultID uuid.UUID `gorm:"type:uuid;not null;index"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null"`
	Title       string    `gorm:"not null"`
	Status      OKRStatus `gorm:"type:varchar(20);default:'ON_TRACK'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RollupProgress computes an objective's progress as the weight-weighted mean
// of its linked key results. Zero-weight links contribute nothing; with no
// positive weights the roll-up is 0.
func RollupProgress(links []ObjectiveKeyResult) float64 {
	var weighted, total float64
	for _, link := range links {
		if link.KeyResult == nil || link.Weight <= 0 {
			continue
		}
		weighted += link.KeyResult.ProgressPct * link.Weight
		total += link.Weight
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Progress derives a key result's completion percentage from its values,
// clamped to [0, 100].
func (kr *KeyResult) Progress() float64 {
	span := kr.TargetValue - kr.StartValue
	if span == 0 {
		return 0
	}
	pct := (kr.CurrentValue - kr.StartValue) / span * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
