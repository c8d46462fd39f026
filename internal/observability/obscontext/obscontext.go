package obscontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

type actor struct {
	actorType string
	actorID   string
}

// WithRequestID stores the request correlation id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request correlation id, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithActor stores the acting identity in the context.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, actor{actorType: actorType, actorID: actorID})
}

// ActorFromContext returns the acting identity, if any.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if value, ok := ctx.Value(actorKey).(actor); ok {
		return value.actorType, value.actorID
	}
	return "", ""
}
