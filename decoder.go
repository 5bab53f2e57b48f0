package session

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// HSTokenDecoder verifies provider access tokens signed with a shared HMAC
// secret and maps the claims to a User.
type HSTokenDecoder struct {
	secret   []byte
	issuer   string
	audience []string
	logger   Logger
}

// HSDecoderOption customizes the shared-secret decoder.
type HSDecoderOption func(*HSTokenDecoder)

// WithDecoderIssuer enforces the iss claim.
func WithDecoderIssuer(issuer string) HSDecoderOption {
	return func(d *HSTokenDecoder) {
		d.issuer = issuer
	}
}

// WithDecoderAudience enforces the aud claim.
func WithDecoderAudience(audience ...string) HSDecoderOption {
	return func(d *HSTokenDecoder) {
		d.audience = audience
	}
}

// WithDecoderLogger overrides the default logger.
func WithDecoderLogger(logger Logger) HSDecoderOption {
	return func(d *HSTokenDecoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewHSTokenDecoder returns a decoder for HS256-signed provider tokens.
func NewHSTokenDecoder(secret []byte, opts ...HSDecoderOption) *HSTokenDecoder {
	d := &HSTokenDecoder{
		secret: secret,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode implements TokenDecoder.
func (d *HSTokenDecoder) Decode(accessToken string) (*User, error) {
	keyFn := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			d.logger.Error("token decode encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	}

	return decodeWithKeyfunc(accessToken, keyFn, d.issuer, d.audience)
}

// JWKSTokenDecoder verifies provider access tokens against the provider's
// published JWK Set, refreshing keys in the background. Use it when the
// provider signs with rotating asymmetric keys instead of a shared secret.
type JWKSTokenDecoder struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
}

// NewJWKSTokenDecoder fetches the JWK Set and returns a decoder. Construction
// fails fast when the set cannot be retrieved, before any token is accepted.
func NewJWKSTokenDecoder(jwksURL string, opts ...JWKSDecoderOption) (*JWKSTokenDecoder, error) {
	d := &JWKSTokenDecoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch JWK set").
			WithTextCode(TextCodeProviderFailure)
	}

	d.jwks = jwks
	return d, nil
}

// JWKSDecoderOption customizes the JWKS decoder.
type JWKSDecoderOption func(*JWKSTokenDecoder)

// WithJWKSIssuer enforces the iss claim.
func WithJWKSIssuer(issuer string) JWKSDecoderOption {
	return func(d *JWKSTokenDecoder) {
		d.issuer = issuer
	}
}

// WithJWKSAudience enforces the aud claim.
func WithJWKSAudience(audience ...string) JWKSDecoderOption {
	return func(d *JWKSTokenDecoder) {
		d.audience = audience
	}
}

// Decode implements TokenDecoder.
func (d *JWKSTokenDecoder) Decode(accessToken string) (*User, error) {
	return decodeWithKeyfunc(accessToken, d.jwks.Keyfunc, d.issuer, d.audience)
}

// Close stops the background JWK refresh.
func (d *JWKSTokenDecoder) Close() {
	if d.jwks != nil {
		d.jwks.EndBackground()
	}
}

func decodeWithKeyfunc(accessToken string, keyFn jwt.Keyfunc, issuer string, audience []string) (*User, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}
	if len(audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(audience...))
	}

	token, err := jwt.ParseWithClaims(accessToken, jwt.MapClaims{}, keyFn, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, goerrors.Wrap(err, ErrInvalidSession.Category, ErrInvalidSession.Message).
			WithTextCode(ErrInvalidSession.TextCode)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	return userFromClaims(claims)
}
