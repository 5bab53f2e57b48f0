package session

import (
	"fmt"
	"time"
)

// Session is the access/refresh token pair representing an authenticated
// identity. The two tokens are always written and read together; a pair
// missing either half reads as no session at all, never as a torn update.
type Session struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Complete reports whether both halves of the token pair are present.
func (s *Session) Complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// Expired reports whether the access token is past its expiry at the given
// instant. An unset expiry reads as not expired; the provider stays the final
// authority either way.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Equal compares token pairs by value. Expiry is left out so a session
// re-read from cookies, which round the timestamp to seconds, still compares
// equal to the one that was written.
func (s *Session) Equal(o *Session) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	return s.AccessToken == o.AccessToken && s.RefreshToken == o.RefreshToken
}

// Clone returns a copy the caller may hold across a state transition.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s Session) String() string {
	return fmt.Sprintf(
		"access=%s refresh=%s exp=%s",
		redactToken(s.AccessToken),
		redactToken(s.RefreshToken),
		s.ExpiresAt.Format(time.RFC1123),
	)
}

// redactToken keeps enough of a token to correlate log lines without leaking
// the credential.
func redactToken(tok string) string {
	if len(tok) <= 8 {
		return "***"
	}
	return tok[:4] + "..." + tok[len(tok)-4:]
}
