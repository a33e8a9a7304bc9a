package rbac

import "github.com/alignhq/align/pkg/model"

type Action string

const (
	ActionView            Action = "view"
	ActionCreate          Action = "create"
	ActionEdit            Action = "edit"
	ActionDelete          Action = "delete"
	ActionPublish         Action = "publish"
	ActionUnpublish       Action = "unpublish"
	ActionCheckIn         Action = "check_in"
	ActionManageWhitelist Action = "manage_whitelist"
	ActionManageCycles    Action = "manage_cycles"
)

// Mutating reports whether the action writes state. The superuser read-only
// override denies every mutating action unconditionally.
func (a Action) Mutating() bool {
	return a != ActionView
}

// grants is the base RBAC matrix over canonical roles. Legacy roles are
// canonicalized before lookup and never appear as keys.
var grants = map[model.Role]map[Action]bool{
	model.RoleTenantOwner: {
		ActionView: true, ActionCreate: true, ActionEdit: true, ActionDelete: true,
		ActionPublish: true, ActionUnpublish: true, ActionCheckIn: true, ActionManageWhitelist: true,
		ActionManageCycles: true,
	},
	model.RoleTenantAdmin: {
		ActionView: true, ActionCreate: true, ActionEdit: true, ActionDelete: true,
		ActionPublish: true, ActionUnpublish: true, ActionCheckIn: true, ActionManageWhitelist: true,
		ActionManageCycles: true,
	},
	model.RoleTenantViewer: {
		ActionView: true,
	},
	model.RoleWorkspaceLead: {
		ActionView: true, ActionCreate: true, ActionEdit: true, ActionDelete: true,
		ActionPublish: true, ActionCheckIn: true,
	},
	model.RoleWorkspaceMember: {
		ActionView: true, ActionCreate: true, ActionEdit: true, ActionCheckIn: true,
	},
	model.RoleContributor: {
		ActionView: true, ActionCreate: true, ActionEdit: true, ActionCheckIn: true,
	},
}

// RoleSet is a user's effective roles at a scope, stored canonicalized.
type RoleSet map[model.Role]struct{}

func NewRoleSet(roles ...model.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r.Canonical()] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(role model.Role) bool {
	_, ok := s[role.Canonical()]
	return ok
}

// TenantAdmin reports whether the set carries tenant-level administrative
// authority, the only authority that overrides publish and cycle locks.
func (s RoleSet) TenantAdmin() bool {
	return s.Has(model.RoleTenantOwner) || s.Has(model.RoleTenantAdmin)
}

// Grants reports whether any held role grants the action. Most permissive
// wins: conflicting assignments across scopes resolve in the user's favor.
func (s RoleSet) Grants(action Action) bool {
	for role := range s {
		if grants[role][action] {
			return true
		}
	}
	return false
}

// OnlyTenantViewer reports whether the user's sole effective role is
// TENANT_VIEWER, which gates out objective creation entirely.
func (s RoleSet) OnlyTenantViewer() bool {
	if len(s) != 1 {
		return false
	}
	return s.Has(model.RoleTenantViewer)
}
