package session

import (
	"time"

	"github.com/goliatone/go-router"
)

const (
	// DefaultAccessCookie is the cookie carrying the access token.
	DefaultAccessCookie = "auth_access_token"
	// DefaultRefreshCookie is the cookie carrying the refresh token. It is
	// the server-settable credential, so it always goes out HttpOnly.
	DefaultRefreshCookie = "auth_refresh_token"

	defaultRefreshTTL = 30 * 24 * time.Hour
	defaultAccessTTL  = time.Hour
)

// CookieConfig controls how the session pair is written to responses.
type CookieConfig struct {
	// AccessName and RefreshName override the default cookie names.
	AccessName  string
	RefreshName string

	// Path defaults to "/" so both halves travel on every request.
	Path string

	// Domain is usually left empty.
	Domain string

	// Secure marks the cookies for encrypted transport only.
	Secure bool

	// SameSite is the attribute value, e.g. "Lax", "Strict", "None".
	SameSite string

	// AccessHTTPOnly also hides the access cookie from scripts. The refresh
	// cookie is HttpOnly regardless.
	AccessHTTPOnly bool

	// RefreshTTL bounds the refresh cookie, which outlives the access token.
	RefreshTTL time.Duration

	// AccessTTL is the fallback expiry when a session carries none.
	AccessTTL time.Duration
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.AccessName == "" {
		c.AccessName = DefaultAccessCookie
	}
	if c.RefreshName == "" {
		c.RefreshName = DefaultRefreshCookie
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == "" {
		c.SameSite = "Lax"
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTTL
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	return c
}

// CookieStore reads and writes the session token pair as two HTTP cookies.
// Both halves are always handled together so a reader never observes a torn
// pair.
type CookieStore struct {
	config CookieConfig
}

// NewCookieStore applies defaults and returns a store.
func NewCookieStore(cfg CookieConfig) *CookieStore {
	return &CookieStore{config: cfg.withDefaults()}
}

// Config returns the effective configuration after defaults.
func (cs *CookieStore) Config() CookieConfig {
	return cs.config
}

// Write persists the pair onto the response. A partial session is rejected
// before anything is set. Writing the same session twice produces identical
// cookies: expiries derive from the session, not from the wall clock.
func (cs *CookieStore) Write(ctx router.Context, s *Session) error {
	if !s.Complete() {
		return ErrInvalidSession
	}

	accessExpiry := s.ExpiresAt
	if accessExpiry.IsZero() {
		accessExpiry = time.Now().Add(cs.config.AccessTTL)
	}

	ctx.Cookie(cs.cookie(cs.config.AccessName, s.AccessToken, accessExpiry, cs.config.AccessHTTPOnly))
	ctx.Cookie(cs.cookie(cs.config.RefreshName, s.RefreshToken, accessExpiry.Add(cs.config.RefreshTTL), true))
	return nil
}

// Read returns the session carried by the request cookies, or nil when either
// half is absent. It fails softly: malformed input is no session, never an
// error.
func (cs *CookieStore) Read(ctx router.Context) *Session {
	access := ctx.Cookies(cs.config.AccessName)
	refresh := ctx.Cookies(cs.config.RefreshName)
	if access == "" || refresh == "" {
		return nil
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

// Clear removes both cookies by writing already-expired values.
func (cs *CookieStore) Clear(ctx router.Context) {
	expired := time.Now().Add(-time.Hour * (24 * 365))
	ctx.Cookie(cs.cookie(cs.config.AccessName, "", expired, cs.config.AccessHTTPOnly))
	ctx.Cookie(cs.cookie(cs.config.RefreshName, "", expired, true))
}

func (cs *CookieStore) cookie(name, value string, expires time.Time, httpOnly bool) *router.Cookie {
	return &router.Cookie{
		Name:     name,
		Value:    value,
		Path:     cs.config.Path,
		Domain:   cs.config.Domain,
		Expires:  expires,
		Secure:   cs.config.Secure,
		HTTPOnly: httpOnly,
		SameSite: cs.config.SameSite,
	}
}
