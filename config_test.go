package session_test

import (
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *session.Config {
	return &session.Config{
		ProviderURL: "https://auth.example.com",
		ProviderKey: "public-key",
		JWTSecret:   "shared-secret",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	t.Run("missing provider URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.ProviderURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("malformed provider URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.ProviderURL = "not a url"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing provider key", func(t *testing.T) {
		cfg := validConfig()
		cfg.ProviderKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("no verification source", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret or a JWKS URL")
	})

	t.Run("JWKS URL alone suffices", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = ""
		cfg.JWKSURL = "https://auth.example.com/.well-known/jwks.json"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SESSION_PROVIDER_URL", "https://auth.example.com")
	t.Setenv("SESSION_PROVIDER_KEY", "public-key")
	t.Setenv("SESSION_JWT_SECRET", "shared-secret")
	t.Setenv("SESSION_TOKEN_AUDIENCE", "app-one,app-two")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("SESSION_REFRESH_TTL", "720h")

	cfg, err := session.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.ProviderURL)
	assert.Equal(t, []string{"app-one", "app-two"}, cfg.Audience)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTTL)
}

func TestLoadConfigRejectsIncompleteEnvironment(t *testing.T) {
	t.Setenv("SESSION_PROVIDER_URL", "https://auth.example.com")

	_, err := session.LoadConfig()
	require.Error(t, err)
}

func TestConfigCookieConfig(t *testing.T) {
	cfg := validConfig()
	cfg.AccessCookie = "my_access"
	cfg.CookieSecure = true
	cfg.RefreshTTL = time.Hour

	cc := cfg.CookieConfig()
	assert.Equal(t, "my_access", cc.AccessName)
	assert.True(t, cc.Secure)
	assert.Equal(t, time.Hour, cc.RefreshTTL)
}

func TestConfigTokenDecoderPrefersSharedSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWKSURL = "https://auth.example.com/.well-known/jwks.json"

	decoder, err := cfg.TokenDecoder()
	require.NoError(t, err)
	assert.IsType(t, &session.HSTokenDecoder{}, decoder)
}
