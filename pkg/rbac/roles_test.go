package rbac

import (
	"testing"

	"github.com/alignhq/align/pkg/model"
)

func TestRoleSetCanonicalizesLegacyRoles(t *testing.T) {
	set := NewRoleSet(model.RoleLegacyOrgAdmin, model.RoleLegacyTeamLead)

	if !set.Has(model.RoleTenantAdmin) {
		t.Fatalf("expected ORG_ADMIN to read as TENANT_ADMIN")
	}
	if !set.Has(model.RoleWorkspaceLead) {
		t.Fatalf("expected TEAM_LEAD to read as WORKSPACE_LEAD")
	}
	if !set.TenantAdmin() {
		t.Fatalf("expected a legacy org admin to carry tenant authority")
	}
}

func TestRoleSetGrantsMostPermissiveWins(t *testing.T) {
	set := NewRoleSet(model.RoleTenantViewer, model.RoleWorkspaceLead)

	if !set.Grants(ActionPublish) {
		t.Fatalf("expected the workspace lead assignment to grant publish")
	}
	if set.Grants(ActionUnpublish) {
		t.Fatalf("expected unpublish reserved for tenant owners and admins")
	}
	if set.Grants(ActionManageWhitelist) {
		t.Fatalf("expected whitelist management reserved for tenant owners and admins")
	}
}

func TestRoleSetOnlyTenantViewer(t *testing.T) {
	if !NewRoleSet(model.RoleTenantViewer).OnlyTenantViewer() {
		t.Fatalf("expected a lone viewer detected")
	}
	if !NewRoleSet(model.RoleLegacyViewer).OnlyTenantViewer() {
		t.Fatalf("expected a lone legacy VIEWER detected")
	}
	if NewRoleSet(model.RoleTenantViewer, model.RoleContributor).OnlyTenantViewer() {
		t.Fatalf("expected a mixed set not flagged")
	}
	if NewRoleSet().OnlyTenantViewer() {
		t.Fatalf("expected an empty set not flagged")
	}
}

func TestActionMutating(t *testing.T) {
	if ActionView.Mutating() {
		t.Fatalf("expected view to be read-only")
	}
	for _, action := range []Action{ActionCreate, ActionEdit, ActionDelete, ActionPublish, ActionUnpublish, ActionCheckIn, ActionManageWhitelist, ActionManageCycles} {
		if !action.Mutating() {
			t.Fatalf("expected %s to be mutating", action)
		}
	}
}
