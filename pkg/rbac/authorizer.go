package rbac

import (
	"context"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

// Authorizer ties the store to the pure evaluator: it loads roles, tenant
// policy and viewer facts, then delegates to Evaluate. Every mutating
// endpoint and most reads go through CanPerform.
type Authorizer struct {
	store *Store
}

func NewAuthorizer(store *Store) *Authorizer {
	return &Authorizer{store: store}
}

func (a *Authorizer) Store() *Store {
	return a.store
}

// CanPerform answers whether the acting identity may perform the action on
// the resource. Errors are infrastructure failures only; a denial is a
// Decision, not an error.
func (a *Authorizer) CanPerform(ctx context.Context, user tenantctx.Identity, action Action, res Resource, cycle *model.Cycle) (Decision, error) {
	org, err := a.store.GetOrganization(ctx, res.TenantID)
	if err != nil {
		return Decision{}, err
	}
	return a.CanPerformWithOrg(ctx, user, action, res, cycle, org)
}

// CanPerformWithOrg is CanPerform with the tenant row already in hand, for
// list endpoints that evaluate many resources of one tenant.
func (a *Authorizer) CanPerformWithOrg(ctx context.Context, user tenantctx.Identity, action Action, res Resource, cycle *model.Cycle, org *model.Organization) (Decision, error) {
	roles, err := a.store.GetEffectiveRoles(ctx, user.UserID, res.TenantID, res.WorkspaceID, res.TeamID)
	if err != nil {
		return Decision{}, err
	}

	facts, err := a.store.LoadViewerFacts(ctx, user, org, res)
	if err != nil {
		return Decision{}, err
	}

	return Evaluate(Request{
		User:     user,
		Action:   action,
		Roles:    roles,
		Facts:    facts,
		Resource: res,
		Cycle:    cycle,
		Policy:   TenantPolicy{AllowTenantAdminExecVisibility: org.AllowTenantAdminExecVisibility},
	}), nil
}

// InspectorEnabled reports whether the rbacInspector feature flag is on for
// the user in the given tenant. The explain surface renders only when true.
func (a *Authorizer) InspectorEnabled(ctx context.Context, user tenantctx.Identity, org *model.Organization) bool {
	return org.FlagEnabled(user.UserID, "rbacInspector")
}
