package rbac

import "github.com/alignhq/align/pkg/model"

type LockReason string

const (
	LockReasonPublished LockReason = "published"
	LockReasonCycle     LockReason = "cycle_locked"
)

const (
	msgPublishedLock = "This item is published. Only a Tenant Owner/Admin can change or unpublish it."
	msgCycleLock     = "This item belongs to a locked or archived cycle. Only a Tenant Owner/Admin can change it."
)

// LockState is the derived mutability of a piece of content. The reason tags
// are stable: UI tests assert on them verbatim.
type LockState struct {
	Locked  bool       `json:"isLocked"`
	Reason  LockReason `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Lock derives the publish-lock state from the content's publish flag and
// its owning cycle. Publishing locks content for all non-admin roles; a
// LOCKED or ARCHIVED cycle imposes the same restriction independent of the
// publish flag.
func Lock(published bool, cycle *model.Cycle) LockState {
	if published {
		return LockState{Locked: true, Reason: LockReasonPublished, Message: msgPublishedLock}
	}
	if cycle.EditRestricted() {
		return LockState{Locked: true, Reason: LockReasonCycle, Message: msgCycleLock}
	}
	return LockState{}
}

// lockApplies lists the actions a publish or cycle lock blocks. View is never
// blocked by a lock, and unpublish is already restricted to tenant admins by
// the base RBAC matrix.
func lockApplies(action Action) bool {
	switch action {
	case ActionEdit, ActionDelete, ActionCheckIn, ActionPublish:
		return true
	default:
		return false
	}
}
