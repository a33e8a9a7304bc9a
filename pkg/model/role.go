package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleTenantOwner     Role = "TENANT_OWNER"
	RoleTenantAdmin     Role = "TENANT_ADMIN"
	RoleTenantViewer    Role = "TENANT_VIEWER"
	RoleWorkspaceLead   Role = "WORKSPACE_LEAD"
	RoleWorkspaceMember Role = "WORKSPACE_MEMBER"
	RoleContributor     Role = "CONTRIBUTOR"
)

// Legacy org-level roles. Still present on historical assignment rows;
// mapped onto current roles at evaluation time, never assigned by new code.
const (
	RoleLegacyOrgAdmin       Role = "ORG_ADMIN"
	RoleLegacyWorkspaceOwner Role = "WORKSPACE_OWNER"
	RoleLegacyTeamLead       Role = "TEAM_LEAD"
	RoleLegacyMember         Role = "MEMBER"
	RoleLegacyViewer         Role = "VIEWER"
)

// Canonical maps legacy role names to their current equivalent.
func (r Role) Canonical() Role {
	switch r {
	case RoleLegacyOrgAdmin:
		return RoleTenantAdmin
	case RoleLegacyWorkspaceOwner, RoleLegacyTeamLead:
		return RoleWorkspaceLead
	case RoleLegacyMember:
		return RoleWorkspaceMember
	case RoleLegacyViewer:
		return RoleTenantViewer
	default:
		return r
	}
}

type ScopeType string

const (
	ScopeTenant    ScopeType = "TENANT"
	ScopeWorkspace ScopeType = "WORKSPACE"
	ScopeTeam      ScopeType = "TEAM"
)

// RoleAssignment binds a user to a role at a tenant, workspace or team scope.
// A user may hold any number of assignments across scopes; effective
// authority at a scope is the union of assignments at that scope and its
// ancestors.
type RoleAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role_scope"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      Role      `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_role_scope"`
	ScopeType ScopeType `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_role_scope"`
	ScopeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role_scope"`
	CreatedAt time.Time
}
