package model

type VisibilityLevel string

// Current, assignable visibility levels.
const (
	VisibilityPublicTenant VisibilityLevel = "PUBLIC_TENANT"
	VisibilityPrivate      VisibilityLevel = "PRIVATE"
)

// Legacy levels kept readable for historical rows only. Create and update
// paths must reject them; the classifier evaluates them as read shims.
const (
	VisibilityWorkspaceOnly VisibilityLevel = "WORKSPACE_ONLY"
	VisibilityTeamOnly      VisibilityLevel = "TEAM_ONLY"
	VisibilityManagerChain  VisibilityLevel = "MANAGER_CHAIN"
	VisibilityExecOnly      VisibilityLevel = "EXEC_ONLY"
)

// Assignable reports whether the level may be written by new code paths.
func (v VisibilityLevel) Assignable() bool {
	switch v {
	case VisibilityPublicTenant, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// Legacy reports whether the level is a deprecated historical value.
func (v VisibilityLevel) Legacy() bool {
	switch v {
	case VisibilityWorkspaceOnly, VisibilityTeamOnly, VisibilityManagerChain, VisibilityExecOnly:
		return true
	default:
		return false
	}
}

// Known reports whether the level is any recognized value, current or legacy.
func (v VisibilityLevel) Known() bool {
	return v.Assignable() || v.Legacy()
}
