package rbac

import (
	"testing"

	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

func TestClassifyOwnerSeesOwnPrivateContent(t *testing.T) {
	tenantID := uuid.New()
	owner := memberIdentity(tenantID)

	res := Resource{
		TenantID:   tenantID,
		OwnerID:    owner.UserID,
		Visibility: model.VisibilityPrivate,
	}

	v := Classify(owner, NewRoleSet(), ViewerFacts{}, res, TenantPolicy{})
	if !v.Visible {
		t.Fatalf("expected the owner to see their own private content")
	}
}

func TestClassifyExecOnlyPublishedOwnerNotExempt(t *testing.T) {
	tenantID := uuid.New()
	owner := memberIdentity(tenantID)
	res := Resource{
		TenantID:   tenantID,
		OwnerID:    owner.UserID,
		Visibility: model.VisibilityExecOnly,
		Published:  true,
	}

	v := Classify(owner, NewRoleSet(model.RoleContributor), ViewerFacts{}, res, TenantPolicy{})
	if v.Visible {
		t.Fatalf("expected a non-whitelisted owner blocked by published exec-only content: %+v", v)
	}
	if !v.ExecOnly {
		t.Fatalf("expected the exec-only verdict marker: %+v", v)
	}

	// Whitelist membership, not ownership, is what opens the row.
	whitelisted := Classify(owner, NewRoleSet(model.RoleContributor), ViewerFacts{InExecWhitelist: true}, res, TenantPolicy{})
	if !whitelisted.Visible {
		t.Fatalf("expected the whitelisted owner to see the row: %+v", whitelisted)
	}

	// While unpublished the same row still behaves like PRIVATE for its owner.
	res.Published = false
	draft := Classify(owner, NewRoleSet(model.RoleContributor), ViewerFacts{}, res, TenantPolicy{})
	if !draft.Visible {
		t.Fatalf("expected the owner to see their own unpublished exec-only row: %+v", draft)
	}
}

func TestClassifyPublicTenantRequiresMembership(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: model.VisibilityPublicTenant}

	member := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleContributor), ViewerFacts{}, res, TenantPolicy{})
	if !member.Visible {
		t.Fatalf("expected a tenant member to see PUBLIC_TENANT content")
	}

	roleless := Classify(memberIdentity(tenantID), NewRoleSet(), ViewerFacts{}, res, TenantPolicy{})
	if roleless.Visible {
		t.Fatalf("expected a user with no roles to be invisible to PUBLIC_TENANT content")
	}
}

func TestClassifyPrivate(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: model.VisibilityPrivate}

	stranger := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleContributor), ViewerFacts{}, res, TenantPolicy{})
	if stranger.Visible || !stranger.Private {
		t.Fatalf("expected an unrelated contributor blocked by PRIVATE: %+v", stranger)
	}

	granted := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleContributor), ViewerFacts{HasAccessGrant: true}, res, TenantPolicy{})
	if !granted.Visible {
		t.Fatalf("expected an explicit grant to open PRIVATE content")
	}

	admin := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleTenantAdmin), ViewerFacts{}, res, TenantPolicy{})
	if !admin.Visible {
		t.Fatalf("expected a tenant admin to see PRIVATE content")
	}
}

func TestClassifyExecOnlyUnpublishedBehavesLikePrivate(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: model.VisibilityExecOnly}

	v := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleContributor), ViewerFacts{HasAccessGrant: true}, res, TenantPolicy{})
	if !v.Visible {
		t.Fatalf("expected a grant to open unpublished exec-only content")
	}

	blocked := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleContributor), ViewerFacts{}, res, TenantPolicy{})
	if blocked.Visible || !blocked.Private {
		t.Fatalf("expected unpublished exec-only content to read as private: %+v", blocked)
	}
}

func TestClassifyExecOnlyPublishedAdminPolicy(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: model.VisibilityExecOnly, Published: true}
	admin := memberIdentity(tenantID)
	roles := NewRoleSet(model.RoleTenantAdmin)

	denied := Classify(admin, roles, ViewerFacts{}, res, TenantPolicy{})
	if denied.Visible {
		t.Fatalf("expected admin without the policy flag blocked by published exec-only content")
	}
	if !denied.ExecOnly {
		t.Fatalf("expected the exec-only verdict marker: %+v", denied)
	}

	allowed := Classify(admin, roles, ViewerFacts{}, res, TenantPolicy{AllowTenantAdminExecVisibility: true})
	if !allowed.Visible {
		t.Fatalf("expected the tenant policy to open published exec-only content to admins")
	}
}

func TestClassifyLegacyStructuralShims(t *testing.T) {
	tenantID := uuid.New()
	viewer := memberIdentity(tenantID)
	roles := NewRoleSet(model.RoleContributor)

	cases := []struct {
		level   model.VisibilityLevel
		facts   ViewerFacts
		visible bool
	}{
		{model.VisibilityWorkspaceOnly, ViewerFacts{InWorkspace: true}, true},
		{model.VisibilityWorkspaceOnly, ViewerFacts{}, false},
		{model.VisibilityTeamOnly, ViewerFacts{InTeam: true}, true},
		{model.VisibilityTeamOnly, ViewerFacts{}, false},
		{model.VisibilityManagerChain, ViewerFacts{InManagerChain: true}, true},
		{model.VisibilityManagerChain, ViewerFacts{}, false},
	}

	for _, tc := range cases {
		res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: tc.level}
		v := Classify(viewer, roles, tc.facts, res, TenantPolicy{})
		if v.Visible != tc.visible {
			t.Fatalf("%s with facts %+v: expected visible=%v, got %+v", tc.level, tc.facts, tc.visible, v)
		}
	}
}

func TestClassifyUnknownLevelFailsClosed(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{TenantID: tenantID, OwnerID: uuid.New(), Visibility: model.VisibilityLevel("EVERYONE")}

	v := Classify(memberIdentity(tenantID), NewRoleSet(model.RoleTenantAdmin), ViewerFacts{}, res, TenantPolicy{})
	if v.Visible {
		t.Fatalf("expected an unknown visibility level to deny even admins")
	}
}

func TestClassifySuperuserSeesEverything(t *testing.T) {
	superuser := tenantctx.Identity{UserID: uuid.New(), Superuser: true}
	res := Resource{TenantID: uuid.New(), OwnerID: uuid.New(), Visibility: model.VisibilityExecOnly, Published: true}

	v := Classify(superuser, NewRoleSet(), ViewerFacts{}, res, TenantPolicy{})
	if !v.Visible {
		t.Fatalf("expected superuser visibility regardless of level")
	}
}
