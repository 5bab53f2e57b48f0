package session

import (
	"context"
)

var requestCtxKey = &contextKey{"request-context"}

type contextKey struct {
	name string
}

// WithContext attaches the bound RequestContext to a standard context so
// handlers below the middleware can reach it without the router type.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestCtxKey, rc)
}

// FromContext retrieves the bound RequestContext from a standard context.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestCtxKey).(*RequestContext)
	return rc, ok
}

// UserFromContext is a convenience read of the derived user; nil means
// unauthenticated.
func UserFromContext(ctx context.Context) *User {
	rc, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return rc.User()
}
