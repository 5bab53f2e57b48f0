package session

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Config collects everything the bridge needs to talk to the provider and to
// shape its cookies. A missing provider URL or key is fatal at construction,
// before any request is accepted.
type Config struct {
	// ProviderURL is the base URL of the identity provider.
	ProviderURL string `env:"SESSION_PROVIDER_URL"`

	// ProviderKey is the public API key sent with every provider call.
	ProviderKey string `env:"SESSION_PROVIDER_KEY"`

	// JWTSecret verifies HS256 provider tokens. Mutually optional with
	// JWKSURL; exactly one source of verification keys is required.
	JWTSecret string `env:"SESSION_JWT_SECRET"`

	// JWKSURL points at the provider's JWK Set for asymmetric verification.
	JWKSURL string `env:"SESSION_JWKS_URL"`

	// Issuer, when set, is enforced on decoded tokens.
	Issuer string `env:"SESSION_TOKEN_ISSUER"`

	// Audience, when set, is enforced on decoded tokens.
	Audience []string `env:"SESSION_TOKEN_AUDIENCE" envSeparator:","`

	// Cookie attributes; zero values fall back to CookieConfig defaults.
	AccessCookie   string        `env:"SESSION_ACCESS_COOKIE"`
	RefreshCookie  string        `env:"SESSION_REFRESH_COOKIE"`
	CookiePath     string        `env:"SESSION_COOKIE_PATH"`
	CookieDomain   string        `env:"SESSION_COOKIE_DOMAIN"`
	CookieSameSite string        `env:"SESSION_COOKIE_SAMESITE"`
	CookieSecure   bool          `env:"SESSION_COOKIE_SECURE"`
	RefreshTTL     time.Duration `env:"SESSION_REFRESH_TTL"`

	// RefreshLead is how long before expiry the client-bound provider
	// refreshes.
	RefreshLead time.Duration `env:"SESSION_REFRESH_LEAD"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse environment").
			WithTextCode(TextCodeConfigInvalid)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on configuration that would only break at the first
// request.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.ProviderURL, validation.Required, is.URL),
		validation.Field(&c.ProviderKey, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid session configuration").
			WithTextCode(TextCodeConfigInvalid)
	}

	if c.JWTSecret == "" && c.JWKSURL == "" {
		return invalidConfig("either a JWT secret or a JWKS URL is required to verify tokens")
	}

	return nil
}

// CookieConfig maps the configuration onto cookie attributes.
func (c *Config) CookieConfig() CookieConfig {
	return CookieConfig{
		AccessName:  c.AccessCookie,
		RefreshName: c.RefreshCookie,
		Path:        c.CookiePath,
		Domain:      c.CookieDomain,
		SameSite:    c.CookieSameSite,
		Secure:      c.CookieSecure,
		RefreshTTL:  c.RefreshTTL,
	}
}

// TokenDecoder builds the decoder matching the configured verification
// source. The shared secret wins when both are set; JWKS construction can
// fail when the set is unreachable.
func (c *Config) TokenDecoder() (TokenDecoder, error) {
	if c.JWTSecret != "" {
		opts := []HSDecoderOption{}
		if c.Issuer != "" {
			opts = append(opts, WithDecoderIssuer(c.Issuer))
		}
		if len(c.Audience) > 0 {
			opts = append(opts, WithDecoderAudience(c.Audience...))
		}
		return NewHSTokenDecoder([]byte(c.JWTSecret), opts...), nil
	}

	opts := []JWKSDecoderOption{}
	if c.Issuer != "" {
		opts = append(opts, WithJWKSIssuer(c.Issuer))
	}
	if len(c.Audience) > 0 {
		opts = append(opts, WithJWKSAudience(c.Audience...))
	}
	return NewJWKSTokenDecoder(c.JWKSURL, opts...)
}
