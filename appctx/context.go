// Package appctx holds the request-scoped values shared by config, utils and
// the HTTP layer. It imports nothing from the service so any package can use it.
package appctx

import "context"

type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyToken         = ContextKey("Token")
	ContextKeyBusinessId    = ContextKey("BusinessId")
	ContextKeyUsername      = ContextKey("Username")
	ContextKeyCorrelationId = ContextKey("CorrelationId")
	// AUDITOR or CONTRACTOR, from the session.
	ContextKeyRole = ContextKey("Role")

	// ContextKeySkipTenantScope lets sweeps and the outbox dispatcher read
	// across businesses.
	ContextKeySkipTenantScope = ContextKey("SkipTenantScope")
)

// Value returns the value stored under key when it has type T.
func Value[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func With[T any](ctx context.Context, key ContextKey, value T) context.Context {
	return context.WithValue(ctx, key, value)
}
