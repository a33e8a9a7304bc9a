package rbac

import (
	"strings"
	"testing"

	"github.com/alignhq/align/pkg/model"
)

func TestLockUnlockedByDefault(t *testing.T) {
	state := Lock(false, nil)
	if state.Locked {
		t.Fatalf("expected unpublished content with no cycle to be unlocked")
	}
	if state.Reason != "" || state.Message != "" {
		t.Fatalf("expected empty reason and message when unlocked, got %+v", state)
	}
}

func TestLockPublished(t *testing.T) {
	state := Lock(true, nil)
	if !state.Locked {
		t.Fatalf("expected published content locked")
	}
	if state.Reason != LockReasonPublished {
		t.Fatalf("expected reason %q, got %q", LockReasonPublished, state.Reason)
	}
	if !strings.Contains(state.Message, "Tenant Owner/Admin") {
		t.Fatalf("expected the message to name the unlocking roles, got %q", state.Message)
	}
}

func TestLockPublishedWinsOverCycle(t *testing.T) {
	state := Lock(true, &model.Cycle{Status: model.CycleLocked})
	if state.Reason != LockReasonPublished {
		t.Fatalf("expected the publish reason to take precedence, got %q", state.Reason)
	}
}

func TestLockCycle(t *testing.T) {
	for _, status := range []model.CycleStatus{model.CycleLocked, model.CycleArchived} {
		state := Lock(false, &model.Cycle{Status: status})
		if !state.Locked {
			t.Fatalf("expected %s cycle to lock its content", status)
		}
		if state.Reason != LockReasonCycle {
			t.Fatalf("expected reason %q for %s cycle, got %q", LockReasonCycle, status, state.Reason)
		}
	}

	for _, status := range []model.CycleStatus{model.CycleDraft, model.CycleActive} {
		if state := Lock(false, &model.Cycle{Status: status}); state.Locked {
			t.Fatalf("expected %s cycle to leave content unlocked", status)
		}
	}
}

func TestLockAppliesSkipsViewAndUnpublish(t *testing.T) {
	for _, action := range []Action{ActionEdit, ActionDelete, ActionCheckIn, ActionPublish} {
		if !lockApplies(action) {
			t.Fatalf("expected lock to apply to %s", action)
		}
	}
	for _, action := range []Action{ActionView, ActionUnpublish, ActionManageWhitelist, ActionManageCycles} {
		if lockApplies(action) {
			t.Fatalf("expected lock not to apply to %s", action)
		}
	}
}
