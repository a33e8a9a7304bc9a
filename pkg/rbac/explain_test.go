package rbac

import (
	"testing"

	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/model"
)

func TestExplainNilWhenInspectorDisabled(t *testing.T) {
	d := Decision{Reason: ReasonRBAC}
	if Explain(false, ActionEdit, d) != nil {
		t.Fatalf("expected no explanation when the inspector flag is off")
	}
}

func TestExplainNilWhenAllowed(t *testing.T) {
	if Explain(true, ActionView, Decision{Allowed: true}) != nil {
		t.Fatalf("expected no explanation for an allowed action")
	}
}

func TestExplainTags(t *testing.T) {
	cases := []struct {
		decision Decision
		tag      string
	}{
		{Decision{Reason: ReasonTenantMismatch}, TagTenantMismatch},
		{Decision{Reason: ReasonSuperuserReadonly}, TagSuperuserReadonly},
		{Decision{Reason: ReasonRBAC}, TagRBAC},
		{Decision{Reason: ReasonPublishLock, Lock: LockState{Locked: true, Reason: LockReasonPublished, Message: msgPublishedLock}}, TagPublishLock},
		{Decision{Reason: ReasonPublishLock, Lock: LockState{Locked: true, Reason: LockReasonCycle, Message: msgCycleLock}}, TagCycleLock},
		{Decision{Reason: ReasonVisibility, Flags: ReasonFlags{VisibilityPrivate: true}}, TagVisibility},
		{Decision{Reason: ReasonVisibility, Flags: ReasonFlags{ExecOnlyFlag: true}}, TagExecOnly},
	}

	for _, tc := range cases {
		e := Explain(true, ActionEdit, tc.decision)
		if e == nil {
			t.Fatalf("expected an explanation for reason %q", tc.decision.Reason)
		}
		if e.Tag != tc.tag {
			t.Fatalf("reason %q: expected tag %q, got %q", tc.decision.Reason, tc.tag, e.Tag)
		}
		if e.Message == "" || e.Title == "" {
			t.Fatalf("reason %q: expected a title and message, got %+v", tc.decision.Reason, e)
		}
	}
}

func TestExplainCarriesAllFlags(t *testing.T) {
	tenantID := uuid.New()
	res := publicObjective(tenantID)
	res.Published = true

	d := Evaluate(Request{
		User:     memberIdentity(tenantID),
		Action:   ActionEdit,
		Roles:    NewRoleSet(model.RoleTenantViewer),
		Resource: res,
	})

	e := Explain(true, ActionEdit, d)
	if e == nil {
		t.Fatalf("expected an explanation")
	}
	if e.Tag != TagRBAC {
		t.Fatalf("expected the first failing check to drive the tag, got %q", e.Tag)
	}
	if !e.Flags.PublishLock {
		t.Fatalf("expected the publish lock flag reported alongside the rbac denial")
	}
}
