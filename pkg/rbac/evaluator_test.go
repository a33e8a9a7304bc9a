package rbac

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

func memberIdentity(tenantID uuid.UUID) tenantctx.Identity {
	return tenantctx.Identity{UserID: uuid.New(), TenantID: &tenantID}
}

func publicObjective(tenantID uuid.UUID) Resource {
	return Resource{
		Type:       TargetObjective,
		ID:         uuid.New(),
		TenantID:   tenantID,
		OwnerID:    uuid.New(),
		Visibility: model.VisibilityPublicTenant,
	}
}

func TestEvaluateNoIdentityDenied(t *testing.T) {
	d := Evaluate(Request{Action: ActionView, Resource: publicObjective(uuid.New())})

	if d.Allowed {
		t.Fatalf("expected denial without an established identity")
	}
	if d.Reason != ReasonTenantMismatch {
		t.Fatalf("expected reason %q, got %q", ReasonTenantMismatch, d.Reason)
	}
	if !d.Flags.Tenant {
		t.Fatalf("expected tenant flag set")
	}
}

func TestEvaluateTenantMismatchDenied(t *testing.T) {
	user := memberIdentity(uuid.New())
	res := publicObjective(uuid.New())

	d := Evaluate(Request{
		User:     user,
		Action:   ActionView,
		Roles:    NewRoleSet(model.RoleTenantOwner),
		Resource: res,
	})

	if d.Allowed {
		t.Fatalf("expected cross-tenant access denied even for an owner role")
	}
	if d.Reason != ReasonTenantMismatch {
		t.Fatalf("expected reason %q, got %q", ReasonTenantMismatch, d.Reason)
	}
}

func TestEvaluateSuperuserViewCrossesTenants(t *testing.T) {
	superuser := tenantctx.Identity{UserID: uuid.New(), Superuser: true}
	res := publicObjective(uuid.New())
	res.Visibility = model.VisibilityPrivate
	res.Published = true

	d := Evaluate(Request{
		User:     superuser,
		Action:   ActionView,
		Resource: res,
		Cycle:    &model.Cycle{Status: model.CycleLocked},
	})

	if !d.Allowed {
		t.Fatalf("expected superuser view to bypass role, lock and visibility checks: %+v", d)
	}
}

func TestEvaluateSuperuserMutationsDenied(t *testing.T) {
	superuser := tenantctx.Identity{UserID: uuid.New(), Superuser: true}
	res := publicObjective(uuid.New())

	for _, action := range []Action{ActionEdit, ActionDelete, ActionPublish, ActionUnpublish, ActionCheckIn, ActionCreate} {
		d := Evaluate(Request{User: superuser, Action: action, Resource: res})
		if d.Allowed {
			t.Fatalf("expected superuser %s denied", action)
		}
		if d.Reason != ReasonSuperuserReadonly {
			t.Fatalf("expected reason %q for %s, got %q", ReasonSuperuserReadonly, action, d.Reason)
		}
		if !d.Flags.SuperuserReadonly {
			t.Fatalf("expected superuserReadonly flag for %s", action)
		}
	}
}

func TestEvaluatePublishedContentLockedForNonAdmins(t *testing.T) {
	tenantID := uuid.New()
	res := publicObjective(tenantID)
	res.Published = true

	cases := []struct {
		role    model.Role
		allowed bool
	}{
		{model.RoleTenantOwner, true},
		{model.RoleTenantAdmin, true},
		{model.RoleWorkspaceLead, false},
		{model.RoleWorkspaceMember, false},
		{model.RoleContributor, false},
	}

	for _, tc := range cases {
		d := Evaluate(Request{
			User:     memberIdentity(tenantID),
			Action:   ActionEdit,
			Roles:    NewRoleSet(tc.role),
			Resource: res,
		})
		if d.Allowed != tc.allowed {
			t.Fatalf("role %s: expected allowed=%v, got %+v", tc.role, tc.allowed, d)
		}
		if !tc.allowed {
			if d.Reason != ReasonPublishLock {
				t.Fatalf("role %s: expected reason %q, got %q", tc.role, ReasonPublishLock, d.Reason)
			}
			if !d.Flags.PublishLock {
				t.Fatalf("role %s: expected publishLock flag", tc.role)
			}
			if d.Lock.Reason != LockReasonPublished {
				t.Fatalf("role %s: expected lock reason %q, got %q", tc.role, LockReasonPublished, d.Lock.Reason)
			}
		}
	}
}

func TestEvaluateOwnershipDoesNotBypassPublishLock(t *testing.T) {
	tenantID := uuid.New()
	owner := memberIdentity(tenantID)
	res := Resource{
		Type:       TargetObjective,
		ID:         uuid.New(),
		TenantID:   tenantID,
		OwnerID:    owner.UserID,
		Visibility: model.VisibilityPublicTenant,
		Published:  true,
	}

	d := Evaluate(Request{
		User:     owner,
		Action:   ActionEdit,
		Roles:    NewRoleSet(model.RoleContributor),
		Resource: res,
		Cycle:    &model.Cycle{Status: model.CycleActive},
	})

	if d.Allowed {
		t.Fatalf("expected the owner blocked from editing their own published objective")
	}
	if d.Reason != ReasonPublishLock {
		t.Fatalf("expected reason %q, got %q", ReasonPublishLock, d.Reason)
	}
	if !strings.Contains(d.Message, "Tenant Owner/Admin") {
		t.Fatalf("expected the denial message to name the unlocking roles, got %q", d.Message)
	}

	admin := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionEdit,
		Roles:    NewRoleSet(model.RoleTenantAdmin),
		Resource: res,
		Cycle:    &model.Cycle{Status: model.CycleActive},
	})
	if !admin.Allowed {
		t.Fatalf("expected a tenant admin to edit through the lock: %+v", admin)
	}
}

func TestEvaluateCycleLockBlocksUnpublishedContent(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{
		Type:       TargetKeyResult,
		ID:         uuid.New(),
		TenantID:   tenantID,
		OwnerID:    uuid.New(),
		Visibility: model.VisibilityPublicTenant,
	}

	d := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionCheckIn,
		Roles:    NewRoleSet(model.RoleWorkspaceMember),
		Resource: res,
		Cycle:    &model.Cycle{Status: model.CycleLocked},
	})

	if d.Allowed {
		t.Fatalf("expected check-in blocked by the locked cycle")
	}
	if d.Reason != ReasonPublishLock {
		t.Fatalf("expected reason %q, got %q", ReasonPublishLock, d.Reason)
	}
	if d.Lock.Reason != LockReasonCycle {
		t.Fatalf("expected lock reason %q, got %q", LockReasonCycle, d.Lock.Reason)
	}
}

func TestEvaluateViewNeverLockBlocked(t *testing.T) {
	tenantID := uuid.New()
	res := publicObjective(tenantID)
	res.Published = true

	d := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionView,
		Roles:    NewRoleSet(model.RoleContributor),
		Resource: res,
		Cycle:    &model.Cycle{Status: model.CycleArchived},
	})

	if !d.Allowed {
		t.Fatalf("expected view allowed on locked content: %+v", d)
	}
	if !d.Lock.Locked {
		t.Fatalf("expected lock state still reported on the decision")
	}
}

func TestEvaluateLoneTenantViewerCannotCreate(t *testing.T) {
	tenantID := uuid.New()

	d := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionCreate,
		Roles:    NewRoleSet(model.RoleTenantViewer),
		Resource: TenantResource(tenantID),
	})

	if d.Allowed {
		t.Fatalf("expected a lone TENANT_VIEWER denied creation")
	}
	if d.Reason != ReasonRBAC {
		t.Fatalf("expected reason %q, got %q", ReasonRBAC, d.Reason)
	}
}

func TestEvaluateViewerPlusContributorCanCreate(t *testing.T) {
	tenantID := uuid.New()

	d := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionCreate,
		Roles:    NewRoleSet(model.RoleTenantViewer, model.RoleContributor),
		Resource: TenantResource(tenantID),
	})

	if !d.Allowed {
		t.Fatalf("expected the contributor assignment to win: %+v", d)
	}
}

func TestEvaluateExecOnlyWhitelist(t *testing.T) {
	tenantID := uuid.New()
	res := Resource{
		Type:       TargetObjective,
		ID:         uuid.New(),
		TenantID:   tenantID,
		OwnerID:    uuid.New(),
		Visibility: model.VisibilityExecOnly,
		Published:  true,
	}

	whitelisted := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionView,
		Roles:    NewRoleSet(model.RoleContributor),
		Facts:    ViewerFacts{InExecWhitelist: true},
		Resource: res,
	})
	if !whitelisted.Allowed {
		t.Fatalf("expected whitelisted contributor to see exec-only content: %+v", whitelisted)
	}

	outsider := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionView,
		Roles:    NewRoleSet(model.RoleContributor),
		Resource: res,
	})
	if outsider.Allowed {
		t.Fatalf("expected non-whitelisted contributor denied")
	}
	if outsider.Reason != ReasonVisibility {
		t.Fatalf("expected reason %q, got %q", ReasonVisibility, outsider.Reason)
	}
	if !outsider.Flags.ExecOnlyFlag {
		t.Fatalf("expected execOnlyFlag set")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	tenantID := uuid.New()
	req := Request{
		User:     memberIdentity(tenantID),
		Action:   ActionEdit,
		Roles:    NewRoleSet(model.RoleWorkspaceMember),
		Resource: publicObjective(tenantID),
		Cycle:    &model.Cycle{Status: model.CycleActive},
	}

	first := Evaluate(req)
	for i := 0; i < 5; i++ {
		if Evaluate(req) != first {
			t.Fatalf("expected identical decisions for identical requests")
		}
	}
}
