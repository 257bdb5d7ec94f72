// Package tenant centralizes the isolation invariants: every repository
// call takes tenant_id first, and cross-tenant access must read as
// NotFound, never Forbidden, so a foreign tenant cannot observe that a
// resource exists at all.
package tenant

import "context"

type ctxKey struct{}

const DefaultTenantID = "default"

// WithID attaches the authenticated tenant id to ctx for the duration of
// a request.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the tenant id set by WithID, or DefaultTenantID if
// none was set, so callers without a request context (cron jobs,
// background sweeps) still get well-defined scoping.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultTenantID
}

// KeyPrefix builds the per-tenant storage key prefix; the default tenant
// collapses the path segment to shorten keys.
func KeyPrefix(tenantID string) string {
	if tenantID == "" || tenantID == DefaultTenantID {
		return "media/"
	}
	return "media/" + tenantID + "/"
}
