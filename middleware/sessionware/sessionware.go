// Package sessionware binds the cookie session to every request and puts
// the resolved user within reach of handlers, both through router locals
// and the standard context.
package sessionware

import (
	"context"

	"github.com/goliatone/go-router"
	session "github.com/goliatone/go-session"
)

// DefaultContextKey is where the request context lands in router locals.
const DefaultContextKey = "session"

type Config struct {
	// Binder resolves cookies into a per request provider client. Required.
	Binder *session.RequestBinder

	// Filter skips the middleware for matching requests, e.g. static assets.
	Filter func(router.Context) bool

	// SuccessHandler runs after binding; defaults to ctx.Next().
	SuccessHandler router.HandlerFunc

	// ErrorHandler handles binder failures, which only happen when the
	// request was cancelled mid flight. Defaults to a plain 401.
	ErrorHandler router.ErrorHandler

	// ContextKey is the router locals key for the request context.
	ContextKey string

	// ContextEnricher propagates the request context into the standard
	// context so code below the router can reach the user. Defaults to
	// session.WithContext.
	ContextEnricher func(context.Context, *session.RequestContext) context.Context
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Binder == nil {
		panic("SESSION: middleware configuration: Binder is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("session unavailable")
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = session.WithContext
	}

	return cfg
}

// New returns middleware that binds the session cookies on every request.
// Requests without a session still pass through, with a nil user; use
// RequireUser on routes that need an authenticated caller.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			rc, err := cfg.Binder.Bind(ctx)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, rc)
			ctx.SetContext(cfg.ContextEnricher(ctx.Context(), rc))

			return cfg.SuccessHandler(ctx)
		}
	}
}

// FromRouterContext pulls the request context out of router locals. The
// second return is false when the middleware did not run.
func FromRouterContext(ctx router.Context, key ...string) (*session.RequestContext, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	rc, ok := ctx.Locals(k).(*session.RequestContext)
	return rc, ok
}

// RequireUser rejects requests that did not resolve to a signed in user.
// It must run after New.
func RequireUser(config ...Config) router.MiddlewareFunc {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("authentication required")
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rc, ok := FromRouterContext(ctx, cfg.ContextKey)
			if !ok || rc.User() == nil {
				return cfg.ErrorHandler(ctx, session.ErrInvalidSession)
			}
			return ctx.Next()
		}
	}
}
