// Package gotrue implements the provider API against a GoTrue-compatible
// identity service, such as the one Supabase ships. Password sign in,
// token refresh, and user management go through the auth endpoints; From
// exposes the PostgREST data surface with the caller's access token.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
)

// Client talks to a GoTrue server. It is safe for concurrent use.
type Client struct {
	cfg    Config
	logger session.Logger
}

var _ session.API = (*Client)(nil)

// New builds a Client from cfg. The URL and Key must be set.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, goerrors.New("gotrue: provider URL is required", goerrors.CategoryValidation)
	}
	if cfg.Key == "" {
		return nil, goerrors.New("gotrue: provider API key is required", goerrors.CategoryValidation)
	}
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"`
	User         json.RawMessage `json:"user"`
}

type userPayload struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	Message   string `json:"msg"`
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, *session.User, error) {
	body := map[string]string{"email": email, "password": password}
	raw, err := c.do(ctx, http.MethodPost, c.authURL("/token?grant_type=password"), "", body)
	if err != nil {
		return nil, nil, providerError("sign in", err)
	}
	return c.parseTokenResponse("sign in", raw)
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*session.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	raw, err := c.do(ctx, http.MethodPost, c.authURL("/token?grant_type=refresh_token"), "", body)
	if err != nil {
		return nil, providerError("refresh", err)
	}
	sess, _, err := c.parseTokenResponse("refresh", raw)
	return sess, err
}

// GetUser fetches the profile behind accessToken from the provider.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*session.User, error) {
	raw, err := c.do(ctx, http.MethodGet, c.authURL("/user"), accessToken, nil)
	if err != nil {
		return nil, providerError("get user", err)
	}
	return parseUser(raw)
}

// UpdateUser writes profile attributes for the user behind accessToken.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs map[string]any) (*session.User, error) {
	raw, err := c.do(ctx, http.MethodPut, c.authURL("/user"), accessToken, attrs)
	if err != nil {
		return nil, providerError("update user", err)
	}
	return parseUser(raw)
}

// SignOut revokes the refresh token family behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, c.authURL("/logout"), accessToken, nil)
	if err != nil {
		return providerError("sign out", err)
	}
	return nil
}

// From starts a query against the provider's data surface. Rows are
// fetched with accessToken so row level security applies to the caller.
func (c *Client) From(table, accessToken string) session.Query {
	return &restQuery{client: c, table: table, accessToken: accessToken}
}

func (c *Client) authURL(path string) string {
	return c.cfg.URL + c.cfg.AuthPath + path
}

func (c *Client) restURL(path string) string {
	return c.cfg.URL + c.cfg.RestPath + path
}

// httpError carries the status and decoded body of a failed call so the
// operation wrappers can classify it.
type httpError struct {
	status int
	code   string
	desc   string
	cause  error
}

func (e *httpError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	if e.desc != "" {
		return fmt.Sprintf("provider returned %d: %s", e.status, e.desc)
	}
	return fmt.Sprintf("provider returned %d", e.status)
}

func (c *Client) do(ctx context.Context, method, url, accessToken string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &httpError{cause: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &httpError{cause: err}
	}
	req.Header.Set("apikey", c.cfg.Key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &httpError{cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &httpError{status: resp.StatusCode, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		desc := errResp.ErrorDesc
		if desc == "" {
			desc = errResp.Message
		}
		c.logger.Debug("gotrue %s %s returned %d", method, url, resp.StatusCode)
		return nil, &httpError{status: resp.StatusCode, code: errResp.Error, desc: desc}
	}
	return raw, nil
}

func (c *Client) parseTokenResponse(op string, raw []byte) (*session.Session, *session.User, error) {
	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, nil, providerError(op, &httpError{cause: err})
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, nil, goerrors.Wrap(session.ErrInvalidSession, goerrors.CategoryAuth,
			fmt.Sprintf("gotrue: %s response is missing tokens", op))
	}
	sess := &session.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	var user *session.User
	if len(tok.User) > 0 {
		if u, err := parseUser(tok.User); err == nil {
			user = u
		}
	}
	return sess, user, nil
}

func parseUser(raw []byte) (*session.User, error) {
	var payload userPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "gotrue: decode user payload")
	}
	if payload.ID == "" {
		return nil, session.ErrInvalidSession
	}
	return &session.User{
		ID:        payload.ID,
		Email:     payload.Email,
		Role:      payload.Role,
		Metadata:  payload.Metadata,
		CreatedAt: payload.CreatedAt,
		UpdatedAt: payload.UpdatedAt,
	}, nil
}

// providerError maps transport and status failures onto the session error
// taxonomy. Auth rejections become invalid-session errors so callers fall
// back to the signed out state; everything else is a transient provider
// failure worth retrying.
func providerError(op string, err error) error {
	he, ok := err.(*httpError)
	if !ok {
		return goerrors.Wrap(err, goerrors.CategoryOperation, fmt.Sprintf("gotrue: %s failed", op))
	}
	switch {
	case he.status == http.StatusBadRequest, he.status == http.StatusUnauthorized, he.status == http.StatusForbidden:
		return goerrors.Wrap(session.ErrInvalidSession, goerrors.CategoryAuth,
			fmt.Sprintf("gotrue: %s rejected: %s", op, he.Error()))
	case he.cause != nil && he.status == 0:
		return goerrors.Wrap(session.ErrProviderUnavailable, goerrors.CategoryOperation,
			fmt.Sprintf("gotrue: %s transport error: %v", op, he.cause))
	default:
		return goerrors.Wrap(session.ErrProviderUnavailable, goerrors.CategoryOperation,
			fmt.Sprintf("gotrue: %s failed: %s", op, he.Error()))
	}
}
