package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		return v.(string)
	}
	return ""
}

func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFrom(ctx context.Context) (uint, bool) {
	v, ok := ctx.Value(userIDKey).(uint)
	return v, ok
}

// FromCtx returns logger with request_id automatically added
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if userID, ok := UserIDFrom(ctx); ok {
		l = l.With(zap.Uint("user_id", userID))
	}
	return l
}
