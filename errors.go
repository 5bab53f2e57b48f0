package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidSession    = "session_invalid"
	TextCodeSessionExpired    = "session_expired"
	TextCodeCookieWriteFailed = "session_cookie_write_failed"
	TextCodeProviderFailure   = "session_provider_failure"
	TextCodeConfigInvalid     = "session_config_invalid"
)

// ErrInvalidSession is returned when tokens are malformed, revoked, or cannot
// be verified. It is a normal outcome, not a fault: callers map it to an
// unauthenticated state.
var ErrInvalidSession = goerrors.New("invalid session", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned when the access token is past expiry. A valid
// refresh token can still recover from it.
var ErrSessionExpired = goerrors.New("session expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrCookieWriteFailed is returned when a refreshed token pair could not be
// mirrored onto the response. The request keeps its derived user; the browser
// keeps stale tokens until the next successful refresh, so the failure must
// stay observable.
var ErrCookieWriteFailed = goerrors.New("unable to write session cookies", goerrors.CategoryOperation).
	WithTextCode(TextCodeCookieWriteFailed)

// ErrProviderUnavailable wraps transport-level provider failures. They are
// absorbed at the factory boundary and never surface as a sign-out.
var ErrProviderUnavailable = goerrors.New("identity provider unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeProviderFailure)

// IsInvalidSession reports whether err resolves to an unauthenticated state
// rather than an operational failure.
func IsInvalidSession(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrInvalidSession) || goerrors.Is(err, ErrSessionExpired) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryAuth
	}
	return false
}

// IsExpired reports whether err is specifically an access token past its
// expiry, the one invalid state a refresh token can still recover from.
func IsExpired(err error) bool {
	return err != nil && goerrors.Is(err, ErrSessionExpired)
}

// IsTransient reports whether err is a provider/network failure worth
// retrying, as opposed to a verdict about the session itself.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrProviderUnavailable)
}

func invalidConfig(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(TextCodeConfigInvalid).
		WithCode(goerrors.CodeBadRequest)
}
