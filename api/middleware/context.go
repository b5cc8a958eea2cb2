package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxFarmerID contextKey = "farmer_id"
	ctxEmail    contextKey = "email"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

func FarmerIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxFarmerID).(uuid.UUID); ok {
		return &v
	}
	return nil
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

// WithIdentity seeds the context with an authenticated actor. Exposed for
// handler tests that bypass the auth middleware.
func WithIdentity(ctx context.Context, userID uuid.UUID, role enums.UserRole, farmerID *uuid.UUID, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if farmerID != nil {
		ctx = context.WithValue(ctx, ctxFarmerID, *farmerID)
	}
	if email != "" {
		ctx = context.WithValue(ctx, ctxEmail, email)
	}
	return ctx
}
