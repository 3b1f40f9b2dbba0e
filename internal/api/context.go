package api

import (
	"context"
)

type contextKey string

const userContextKey contextKey = "user_id"

// UserIDFromContext extracts the authenticated user id from context
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey).(string)
	return userID
}

// ContextWithUserID adds the authenticated user id to context
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}
