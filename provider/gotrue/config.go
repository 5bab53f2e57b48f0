package gotrue

import (
	"net/http"
	"strings"
	"time"

	session "github.com/goliatone/go-session"
)

const (
	defaultAuthPath = "/auth/v1"
	defaultRestPath = "/rest/v1"
)

// Config holds the connection settings for a GoTrue-compatible identity
// provider with a PostgREST data surface next to it.
type Config struct {
	// URL is the provider base URL, e.g. "https://project.example.co".
	URL string

	// Key is the public API key, attached to every call.
	Key string

	// AuthPath and RestPath override the default endpoint prefixes.
	AuthPath string
	RestPath string

	// HTTPClient lets the caller inject transport settings; a 10 second
	// timeout client is used otherwise.
	HTTPClient *http.Client

	// Logger defaults to the package logger when nil.
	Logger session.Logger
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(c.URL, "/")
	if c.AuthPath == "" {
		c.AuthPath = defaultAuthPath
	}
	if c.RestPath == "" {
		c.RestPath = defaultRestPath
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}
