package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Unsubscribe removes a previously registered subscriber. Calling it more than
// once is a no-op.
type Unsubscribe func()

// API is the low-level surface of the external identity provider. The provider
// itself (wire protocol, token format, query language) is an opaque
// collaborator; provider/gotrue ships the HTTP implementation.
type API interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, *User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, accessToken string, attrs map[string]any) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
	From(table, accessToken string) Query
}

// ProviderClient is the environment-independent client surface application
// code talks to. Both the client-bound and the request-bound variants expose
// it so callers never branch on where they run.
type ProviderClient interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*User, error)
	CurrentSession() *Session
	UpdateUser(ctx context.Context, attrs map[string]any) (*User, error)
	From(table string) Query
}

// Query is the opaque data pass-through. Result decoding and the wire format
// belong to the provider; this layer only forwards.
type Query interface {
	Select(columns ...string) Query
	Eq(column, value string) Query
	Limit(n int) Query
	Execute(ctx context.Context, dest any) error
	Insert(ctx context.Context, payload any) error
}

// TokenDecoder turns a raw access token into a decoded user. Implementations
// verify signature and expiry only; the payload shape is provider-defined and
// passed through as-is.
type TokenDecoder interface {
	Decode(accessToken string) (*User, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(accessToken string) (*User, error)

// Decode satisfies the TokenDecoder interface.
func (f TokenDecoderFunc) Decode(accessToken string) (*User, error) {
	if f == nil {
		return nil, ErrInvalidSession
	}
	return f(accessToken)
}

// Storage is the client-side persistence for the current session, the
// counterpart of the server's cookie pair. Implementations are free to write
// to disk, a keychain, or memory.
type Storage interface {
	Load() *Session
	Store(s *Session) error
	Clear() error
}

// DefaultLogger returns the stderr logger used when a component is not
// given one. Subpackages use it for the same fallback.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
