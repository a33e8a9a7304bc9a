package model

import "testing"

func TestVisibilityAssignable(t *testing.T) {
	for _, v := range []VisibilityLevel{VisibilityPublicTenant, VisibilityPrivate} {
		if !v.Assignable() {
			t.Fatalf("expected %s assignable", v)
		}
	}
	for _, v := range []VisibilityLevel{VisibilityWorkspaceOnly, VisibilityTeamOnly, VisibilityManagerChain, VisibilityExecOnly} {
		if v.Assignable() {
			t.Fatalf("expected legacy %s not assignable", v)
		}
		if !v.Legacy() {
			t.Fatalf("expected %s to read as legacy", v)
		}
	}
}

func TestVisibilityKnown(t *testing.T) {
	if !VisibilityExecOnly.Known() || !VisibilityPrivate.Known() {
		t.Fatalf("expected current and legacy levels known")
	}
	if VisibilityLevel("SECRET").Known() {
		t.Fatalf("expected unrecognized level unknown")
	}
}

func TestRoleCanonical(t *testing.T) {
	cases := map[Role]Role{
		RoleLegacyOrgAdmin:       RoleTenantAdmin,
		RoleLegacyWorkspaceOwner: RoleWorkspaceLead,
		RoleLegacyTeamLead:       RoleWorkspaceLead,
		RoleLegacyMember:         RoleWorkspaceMember,
		RoleLegacyViewer:         RoleTenantViewer,
		RoleTenantOwner:          RoleTenantOwner,
		RoleContributor:          RoleContributor,
	}
	for in, want := range cases {
		if got := in.Canonical(); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}
