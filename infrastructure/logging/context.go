package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestCtxKey struct{}
type callerCtxKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithCaller records the authenticated user id.
func WithCaller(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, userID)
}

func CallerFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(callerCtxKey{}).(int)
	return id, ok
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 2)
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if caller, ok := CallerFromContext(ctx); ok {
		fields = append(fields, zap.Int("caller.id", caller))
	}
	return fields
}
