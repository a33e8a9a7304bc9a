package rbac

import "github.com/google/uuid"

// Canonical denial messages, one per primary reason. The explain surface is
// the only place these reach end users verbatim.
const (
	msgTenantMismatch    = "This item belongs to a different organization."
	msgSuperuserReadonly = "Platform superusers have read-only access to organization content."
	msgRBACDenied        = "Your role does not allow this action."
	msgVisibility        = "You do not have access to this item."
)

// Evaluate is the single authorization decision function. It is pure: no
// I/O, no mutation of the request, identical inputs yield identical
// decisions. Checks run in a fixed fail-closed order; the first failure
// sets the primary reason while every flag is still computed for the
// explain surface.
func Evaluate(req Request) Decision {
	d := Decision{}

	// Context never established: deny by default.
	if req.User.UserID == uuid.Nil {
		d.Flags.Tenant = true
		d.Reason = ReasonTenantMismatch
		d.Message = msgTenantMismatch
		return d
	}

	tenantMatch := req.User.Superuser || req.User.SameTenant(req.Resource.TenantID)
	d.Flags.Tenant = !tenantMatch

	d.Flags.SuperuserReadonly = req.User.Superuser && req.Action.Mutating()

	rbacOK := req.Roles.Grants(req.Action)
	if req.Action == ActionCreate && req.Roles.OnlyTenantViewer() {
		rbacOK = false
	}
	d.Flags.RBAC = !rbacOK && !req.User.Superuser

	d.Lock = Lock(req.Resource.Published, req.Cycle)
	lockBlocked := d.Lock.Locked && lockApplies(req.Action) && !req.Roles.TenantAdmin()
	d.Flags.PublishLock = lockBlocked

	verdict := Classify(req.User, req.Roles, req.Facts, req.Resource, req.Policy)
	visBlocked := visibilityApplies(req.Action) && !verdict.Visible
	d.Flags.VisibilityPrivate = visBlocked && verdict.Private
	d.Flags.ExecOnlyFlag = visBlocked && verdict.ExecOnly

	switch {
	case !tenantMatch:
		d.Reason = ReasonTenantMismatch
		d.Message = msgTenantMismatch
	case d.Flags.SuperuserReadonly:
		d.Reason = ReasonSuperuserReadonly
		d.Message = msgSuperuserReadonly
	case req.User.Superuser:
		// Superuser view bypasses role, lock and visibility checks.
		d.Allowed = true
		d.Reason = ReasonNone
	case !rbacOK:
		d.Reason = ReasonRBAC
		d.Message = msgRBACDenied
	case lockBlocked:
		d.Reason = ReasonPublishLock
		d.Message = d.Lock.Message
	case visBlocked:
		d.Reason = ReasonVisibility
		d.Message = msgVisibility
	default:
		d.Allowed = true
	}

	return d
}
