// Package tenantctx carries the acting tenant and user identity on a
// context.Context for the lifetime of one request. The carrier distinguishes
// three states: an established context with a tenant, an established context
// with a nil tenant (platform superuser), and no context at all. Guards must
// treat the last as deny.
package tenantctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Identity is the resolved per-request acting identity.
type Identity struct {
	UserID uuid.UUID
	// TenantID is nil for a platform superuser; that is a valid state, not
	// a missing value.
	TenantID  *uuid.UUID
	Superuser bool
}

// SameTenant reports whether the identity's home tenant matches the given
// tenant. Always false when the identity has no home tenant.
func (id Identity) SameTenant(tenantID uuid.UUID) bool {
	return id.TenantID != nil && *id.TenantID == tenantID
}

// With returns a child context carrying the identity.
func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From extracts the identity. ok is false when no identity was ever
// established on this request; callers must fail closed in that case.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
