package tenantctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestFromAbsentContext(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Fatalf("expected no identity on a bare context")
	}
}

func TestWithRoundTrip(t *testing.T) {
	tenantID := uuid.New()
	id := Identity{UserID: uuid.New(), TenantID: &tenantID}

	got, ok := From(With(context.Background(), id))
	if !ok {
		t.Fatalf("expected the identity back")
	}
	if got.UserID != id.UserID || got.TenantID == nil || *got.TenantID != tenantID {
		t.Fatalf("expected %+v, got %+v", id, got)
	}
}

func TestSuperuserIdentityDistinctFromAbsent(t *testing.T) {
	id := Identity{UserID: uuid.New(), Superuser: true}

	got, ok := From(With(context.Background(), id))
	if !ok {
		t.Fatalf("expected a superuser identity to count as established")
	}
	if got.TenantID != nil {
		t.Fatalf("expected a nil home tenant for a superuser")
	}
}

func TestSameTenant(t *testing.T) {
	tenantID := uuid.New()
	id := Identity{UserID: uuid.New(), TenantID: &tenantID}

	if !id.SameTenant(tenantID) {
		t.Fatalf("expected a match on the home tenant")
	}
	if id.SameTenant(uuid.New()) {
		t.Fatalf("expected no match on a foreign tenant")
	}

	superuser := Identity{UserID: uuid.New(), Superuser: true}
	if superuser.SameTenant(tenantID) {
		t.Fatalf("expected SameTenant false without a home tenant")
	}
}
