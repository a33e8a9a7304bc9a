package handlers

import (
	"testing"

	"github.com/google/uuid"
)

func TestAppendWhitelist(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	updated, changed := appendWhitelist([]string{a.String()}, b)
	if !changed {
		t.Fatalf("expected append of a new entry to report a change")
	}
	if len(updated) != 2 || updated[0] != a.String() || updated[1] != b.String() {
		t.Fatalf("unexpected whitelist after append: %v", updated)
	}

	again, changed := appendWhitelist(updated, b)
	if changed {
		t.Fatalf("appending an existing entry must be a no-op")
	}
	if len(again) != 2 {
		t.Fatalf("unexpected whitelist after idempotent append: %v", again)
	}
}

// The source slice must not be mutated. The handler builds the updated list
// from the row it re-reads inside the transaction, so entries added by a
// concurrent request survive.
func TestAppendWhitelistCopiesInput(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	current := make([]string, 1, 4)
	current[0] = a.String()

	updated, _ := appendWhitelist(current, b)
	if len(current) != 1 {
		t.Fatalf("input slice grew: %v", current)
	}
	updated[0] = "mutated"
	if current[0] != a.String() {
		t.Fatalf("append aliased the input slice")
	}
}

func TestRemoveWhitelist(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	updated, changed := removeWhitelist([]string{a.String(), b.String()}, a)
	if !changed {
		t.Fatalf("expected removal of a present entry to report a change")
	}
	if len(updated) != 1 || updated[0] != b.String() {
		t.Fatalf("unexpected whitelist after remove: %v", updated)
	}

	same, changed := removeWhitelist(updated, a)
	if changed {
		t.Fatalf("removing an absent entry must be a no-op")
	}
	if len(same) != 1 || same[0] != b.String() {
		t.Fatalf("unexpected whitelist after idempotent remove: %v", same)
	}
}
