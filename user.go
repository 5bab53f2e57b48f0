package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the decoded identity payload. Its shape is provider-defined and
// treated as a value: beyond signature and expiry checks nothing here is
// validated or reparsed.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	Role      string         `json:"role,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Clone returns a copy safe to hand to subscribers; the metadata map is
// shared since users are treated as immutable values.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// userFromClaims maps verified access-token claims to a User. Providers put
// the user id in sub, the address in email, and the free-form payload in
// user_metadata; absent claims stay zero valued.
func userFromClaims(claims jwt.MapClaims) (*User, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidSession
	}

	user := &User{ID: sub}

	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}

	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}

	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		user.Metadata = meta
	}

	return user, nil
}
