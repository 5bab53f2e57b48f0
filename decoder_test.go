package session_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("decoder-test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func TestHSTokenDecoderMapsClaims(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret)

	token := signToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "ada@example.com",
		"role":  "authenticated",
		"user_metadata": map[string]any{
			"name": "Ada",
		},
	})

	user, err := decoder.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "authenticated", user.Role)
	assert.Equal(t, "Ada", user.Metadata["name"])
}

func TestHSTokenDecoderMissingSubject(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret)

	token := signToken(t, jwt.MapClaims{"email": "no-sub@example.com"})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.True(t, session.IsInvalidSession(err))
}

func TestHSTokenDecoderExpiredToken(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret)

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.True(t, session.IsExpired(err))
	assert.True(t, session.IsInvalidSession(err))
}

func TestHSTokenDecoderWrongSecret(t *testing.T) {
	decoder := session.NewHSTokenDecoder([]byte("a different secret"))

	token := signToken(t, jwt.MapClaims{"sub": "user-1"})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.True(t, session.IsInvalidSession(err))
	assert.False(t, session.IsExpired(err))
}

func TestHSTokenDecoderRejectsUnexpectedAlgorithm(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	decoder := session.NewHSTokenDecoder(testSecret)
	_, err = decoder.Decode(token)
	require.Error(t, err)
	assert.True(t, session.IsInvalidSession(err))
}

func TestHSTokenDecoderEnforcesIssuer(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret,
		session.WithDecoderIssuer("https://auth.example.com"))

	good := signToken(t, jwt.MapClaims{"sub": "user-1", "iss": "https://auth.example.com"})
	_, err := decoder.Decode(good)
	require.NoError(t, err)

	bad := signToken(t, jwt.MapClaims{"sub": "user-1", "iss": "https://evil.example.com"})
	_, err = decoder.Decode(bad)
	require.Error(t, err)
	assert.True(t, session.IsInvalidSession(err))
}

func TestHSTokenDecoderEnforcesAudience(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret,
		session.WithDecoderAudience("my-app"))

	good := signToken(t, jwt.MapClaims{"sub": "user-1", "aud": "my-app"})
	_, err := decoder.Decode(good)
	require.NoError(t, err)

	bad := signToken(t, jwt.MapClaims{"sub": "user-1", "aud": "other-app"})
	_, err = decoder.Decode(bad)
	require.Error(t, err)
}

func TestHSTokenDecoderGarbageInput(t *testing.T) {
	decoder := session.NewHSTokenDecoder(testSecret)

	_, err := decoder.Decode("not.a.token")
	require.Error(t, err)
	assert.True(t, session.IsInvalidSession(err))
}
