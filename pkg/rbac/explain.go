package rbac

// Explanation is the developer-facing "why can't I" projection of a denial.
// It is rendered only when the caller's tenant has the rbacInspector feature
// flag enabled for them, and it never carries identifiers of resources the
// caller cannot already reach.
type Explanation struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Tag     string      `json:"tag"`
	Flags   ReasonFlags `json:"reasonFlags"`
}

// Stable machine-readable tags asserted by automated UI tests.
const (
	TagPublishLock       = "tip-publish-lock"
	TagCycleLock         = "tip-cycle-lock"
	TagSuperuserReadonly = "tip-superuser-readonly"
	TagRBAC              = "tip-rbac"
	TagVisibility        = "tip-visibility"
	TagExecOnly          = "tip-exec-only"
	TagTenantMismatch    = "tip-tenant-mismatch"
)

// Explain projects a decision into its canonical explanation. Returns nil
// when the inspector flag is disabled or the action was allowed; callers
// then show a generic denial only.
func Explain(inspectorEnabled bool, action Action, d Decision) *Explanation {
	if !inspectorEnabled || d.Allowed {
		return nil
	}

	e := &Explanation{Flags: d.Flags}

	switch d.Reason {
	case ReasonTenantMismatch:
		e.Title = "Different organization"
		e.Message = msgTenantMismatch
		e.Tag = TagTenantMismatch
	case ReasonSuperuserReadonly:
		e.Title = "Read-only access"
		e.Message = msgSuperuserReadonly
		e.Tag = TagSuperuserReadonly
	case ReasonRBAC:
		e.Title = "Insufficient role"
		e.Message = msgRBACDenied
		e.Tag = TagRBAC
	case ReasonPublishLock:
		e.Message = d.Lock.Message
		if d.Lock.Reason == LockReasonCycle {
			e.Title = "Cycle locked"
			e.Tag = TagCycleLock
		} else {
			e.Title = "Published and locked"
			e.Tag = TagPublishLock
		}
	case ReasonVisibility:
		e.Message = msgVisibility
		if d.Flags.ExecOnlyFlag {
			e.Title = "Restricted visibility"
			e.Tag = TagExecOnly
		} else {
			e.Title = "Not shared with you"
			e.Tag = TagVisibility
		}
	default:
		e.Title = "Not allowed"
		e.Message = msgRBACDenied
		e.Tag = TagRBAC
	}

	return e
}
