package rbac

import (
	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

const (
	TargetObjective = "objective"
	TargetKeyResult = "key_result"
	TargetTenant    = "tenant"
	TargetCycle     = "cycle"
)

// Resource is the authorization-relevant projection of a content entity.
type Resource struct {
	Type        string
	ID          uuid.UUID
	TenantID    uuid.UUID
	OwnerID     uuid.UUID
	WorkspaceID *uuid.UUID
	TeamID      *uuid.UUID
	Visibility  model.VisibilityLevel
	Published   bool
}

// ObjectiveResource projects an Objective for evaluation.
func ObjectiveResource(o *model.Objective) Resource {
	return Resource{
		Type:        TargetObjective,
		ID:          o.ID,
		TenantID:    o.TenantID,
		OwnerID:     o.OwnerID,
		WorkspaceID: o.WorkspaceID,
		TeamID:      o.TeamID,
		Visibility:  o.Visibility,
		Published:   o.IsPublished,
	}
}

// KeyResultResource projects a KeyResult for evaluation.
func KeyResultResource(kr *model.KeyResult) Resource {
	return Resource{
		Type:        TargetKeyResult,
		ID:          kr.ID,
		TenantID:    kr.TenantID,
		OwnerID:     kr.OwnerID,
		WorkspaceID: kr.WorkspaceID,
		TeamID:      kr.TeamID,
		Visibility:  kr.Visibility,
		Published:   kr.IsPublished,
	}
}

// TenantResource projects the tenant itself, for tenant-level actions such
// as whitelist management and cycle administration.
func TenantResource(tenantID uuid.UUID) Resource {
	return Resource{
		Type:       TargetTenant,
		ID:         tenantID,
		TenantID:   tenantID,
		Visibility: model.VisibilityPublicTenant,
	}
}

// ViewerFacts are the structural membership facts the classifier needs,
// loaded ahead of evaluation so the decision functions stay pure.
type ViewerFacts struct {
	HasAccessGrant  bool
	InExecWhitelist bool
	InWorkspace     bool
	InTeam          bool
	InManagerChain  bool
}

// TenantPolicy is the tenant-level configuration consulted by the classifier.
type TenantPolicy struct {
	AllowTenantAdminExecVisibility bool
}

// Request is the full input to Evaluate. Identical requests always produce
// identical decisions.
type Request struct {
	User     tenantctx.Identity
	Action   Action
	Roles    RoleSet
	Facts    ViewerFacts
	Resource Resource
	Cycle    *model.Cycle
	Policy   TenantPolicy
}

// PrimaryReason is the first failing check in evaluation order, reported as
// a stable machine-readable tag.
type PrimaryReason string

const (
	ReasonNone              PrimaryReason = ""
	ReasonTenantMismatch    PrimaryReason = "tenant_mismatch"
	ReasonSuperuserReadonly PrimaryReason = "superuser_readonly"
	ReasonRBAC              PrimaryReason = "rbac"
	ReasonPublishLock       PrimaryReason = "publish_lock"
	ReasonVisibility        PrimaryReason = "visibility"
)

// ReasonFlags carries every failing check, not just the first, for the
// explain surface.
type ReasonFlags struct {
	RBAC              bool `json:"rbac"`
	PublishLock       bool `json:"publishLock"`
	Tenant            bool `json:"tenant"`
	VisibilityPrivate bool `json:"visibilityPrivate"`
	ExecOnlyFlag      bool `json:"execOnlyFlag"`
	SuperuserReadonly bool `json:"superuserReadonly"`
}

// Decision is the evaluator's verdict. Denial is a value, never an error.
type Decision struct {
	Allowed bool          `json:"allowed"`
	Reason  PrimaryReason `json:"reason,omitempty"`
	Flags   ReasonFlags   `json:"reasons"`
	Lock    LockState     `json:"lock"`
	Message string        `json:"message,omitempty"`
}
