package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/auth"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxEmail  contextKey = "actor_email"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// UserUUIDFromContext parses the authenticated user id. ok is false for
// anonymous requests.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the audit actor, "<role>:<user id>", or fallback
// when the request is anonymous.
func ActorFromContext(ctx context.Context, fallback string) string {
	user, role := UserIDFromContext(ctx), RoleFromContext(ctx)
	if user == "" || role == "" {
		return fallback
	}
	return role + ":" + user
}

// WithClaims injects the token identity into the context.
func WithClaims(ctx context.Context, claims *auth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if claims == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxUserID, claims.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
	if claims.Email != "" {
		ctx = context.WithValue(ctx, ctxEmail, claims.Email)
	}
	return ctx
}
