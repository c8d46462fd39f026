package authctx

import "context"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID int64
	EmpID  int64
	Role   string
	Name   string
}

// PrincipalContextKey is the request context key for the authenticated identity.
type PrincipalContextKey struct{}

// WithPrincipal stores the authenticated identity in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey{}, p)
}

// FromContext returns the authenticated identity from context, if set.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}

	value := ctx.Value(PrincipalContextKey{})
	if value == nil {
		return Principal{}, false
	}

	principal, ok := value.(Principal)
	return principal, ok
}
