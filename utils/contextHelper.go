package utils

import (
	"context"

	"github.com/LakshayGajra/material-audit-mvp-sub001/appctx"
)

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	v, ok := appctx.Value[string](ctx, appctx.ContextKeyBusinessId)
	return v, ok && v != ""
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.ContextKeyUsername)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.ContextKeyCorrelationId)
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.ContextKeyRole)
}

func SetRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.With(ctx, appctx.ContextKeyRole, role)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.With(ctx, appctx.ContextKeyToken, token)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return appctx.With(ctx, appctx.ContextKeyBusinessId, businessId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.With(ctx, appctx.ContextKeyUsername, username)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.With(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.With(ctx, appctx.ContextKeySkipTenantScope, skip)
}
