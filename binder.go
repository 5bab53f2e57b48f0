package session

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RequestContext is the per-request bound state: the cookie-derived seed, a
// request-scoped provider client, and the user decoded for this request. It
// is read-only after Bind and is discarded with the request; no two requests
// ever share one.
type RequestContext struct {
	seed   *Session
	client *RequestBoundProvider
	user   *User
}

// Client returns the request-scoped provider client. Usable for anonymous
// operations even when no user was derived.
func (rc *RequestContext) Client() ProviderClient {
	return rc.client
}

// User returns the user derived for this request, or nil when the request is
// unauthenticated.
func (rc *RequestContext) User() *User {
	return rc.user
}

// Session returns the token pair the request arrived with, nil when absent.
func (rc *RequestContext) Session() *Session {
	return rc.seed.Clone()
}

// ClientFor is a pure read over an already-bound RequestContext.
func ClientFor(rc *RequestContext) ProviderClient {
	if rc == nil {
		return nil
	}
	return rc.Client()
}

// UserFor is a pure read over an already-bound RequestContext. A nil result
// means unauthenticated; enforcement (401 or otherwise) belongs to the
// caller's middleware.
func UserFor(rc *RequestContext) *User {
	if rc == nil {
		return nil
	}
	return rc.User()
}

// RequestBinder derives a RequestContext from an inbound request: it reads
// the session cookies, seeds a request-bound client, and decodes the user.
// Any token refresh triggered along the way is written back onto the response
// before it is sent, which keeps browser and server from diverging.
type RequestBinder struct {
	factory *Factory
	cookies *CookieStore
	logger  Logger
	sink    ActivitySink
}

// BinderOption customizes binder construction.
type BinderOption func(*RequestBinder)

// WithBinderLogger overrides the default logger.
func WithBinderLogger(logger Logger) BinderOption {
	return func(b *RequestBinder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBinderActivitySink records server-side refreshes and cookie-write
// failures for auditing.
func WithBinderActivitySink(sink ActivitySink) BinderOption {
	return func(b *RequestBinder) {
		b.sink = normalizeActivitySink(sink)
	}
}

// NewRequestBinder wires a binder over the factory and cookie store.
func NewRequestBinder(factory *Factory, cookies *CookieStore, opts ...BinderOption) *RequestBinder {
	b := &RequestBinder{
		factory: factory,
		cookies: cookies,
		logger:  defLogger{},
		sink:    noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Bind derives the request's context. Decode failures are not errors: the
// request proceeds unauthenticated with a usable anonymous client. The error
// return is reserved for the request being cancelled mid-derivation.
func (b *RequestBinder) Bind(ctx router.Context) (*RequestContext, error) {
	seed := b.cookies.Read(ctx)

	client := b.factory.ForRequest(seed, b.mirrorFunc(ctx))

	user, err := client.CurrentUser(ctx.Context())
	if err != nil {
		if ctx.Context().Err() != nil {
			// The in-flight derivation finished but its result is discarded;
			// no cookie was written for the cancelled request.
			return nil, goerrors.Wrap(ctx.Context().Err(), goerrors.CategoryOperation, "request cancelled during session bind")
		}
		// Transient provider trouble renders as logged-out rather than a
		// failed request; a protected action will surface a fresh error.
		b.logger.Warn("session bind proceeding unauthenticated: %v", err)
		user = nil
	}

	return &RequestContext{
		seed:   seed,
		client: client,
		user:   user,
	}, nil
}

// mirrorFunc returns the onRefresh callback for a request: every server-side
// token mutation lands on the response's Set-Cookie before the response goes
// out, or is reported as a cookie-write failure.
func (b *RequestBinder) mirrorFunc(ctx router.Context) func(*Session) error {
	return func(s *Session) error {
		stdCtx := ctx.Context()
		if stdCtx.Err() != nil {
			return goerrors.Wrap(stdCtx.Err(), goerrors.CategoryOperation, "cookie write skipped for cancelled request")
		}

		if s == nil {
			b.cookies.Clear(ctx)
			return nil
		}

		if err := b.cookies.Write(ctx, s); err != nil {
			wrapped := goerrors.Wrap(err, ErrCookieWriteFailed.Category, ErrCookieWriteFailed.Message).
				WithTextCode(ErrCookieWriteFailed.TextCode)
			b.logger.Error("failed to mirror refreshed tokens to response: %v", wrapped)
			recordActivity(context.Background(), b.sink, b.logger, ActivityCookieWriteFailure, nil, map[string]any{
				"error": err.Error(),
			})
			return wrapped
		}

		recordActivity(stdCtx, b.sink, b.logger, ActivityTokenRefreshed, nil, map[string]any{
			"source": "server",
		})
		return nil
	}
}
