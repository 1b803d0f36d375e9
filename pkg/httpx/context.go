package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyTenantID ctxKey = "tenant_id"
	CtxKeyAdmin    ctxKey = "admin"
)

// UserIDFromCtx returns the authenticated caller's user id, or "".
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// TenantIDFromCtx returns the tenant the caller is acting within, or "".
func TenantIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyTenantID).(string); ok {
		return v
	}
	return ""
}

// IsAdminFromCtx reports whether the caller holds the tenant admin role.
func IsAdminFromCtx(ctx context.Context) bool {
	v, ok := ctx.Value(CtxKeyAdmin).(bool)
	return ok && v
}
