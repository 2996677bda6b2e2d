package common

import "context"

type ctxKey string

const adminKey ctxKey = "auth/admin"

// WithAdmin stores the authenticated back-office username on the context.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminKey, username)
}

// Admin extracts the authenticated back-office username from the context if present.
func Admin(ctx context.Context) (string, bool) {
	v := ctx.Value(adminKey)
	if v == nil {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}
