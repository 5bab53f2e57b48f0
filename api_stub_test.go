package session_test

import (
	"context"
	"sync"

	session "github.com/goliatone/go-session"
)

// stubAPI is a scriptable provider API for tests.
type stubAPI struct {
	mu sync.Mutex

	signInSession *session.Session
	signInUser    *session.User
	signInErr     error

	refreshSession *session.Session
	refreshErr     error
	refreshCalls   int

	updateUser *session.User
	updateErr  error

	signOutErr   error
	signOutCalls int

	fromTables []string
	fromTokens []string
}

var _ session.API = (*stubAPI)(nil)

func (s *stubAPI) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, *session.User, error) {
	if s.signInErr != nil {
		return nil, nil, s.signInErr
	}
	return s.signInSession.Clone(), s.signInUser, nil
}

func (s *stubAPI) RefreshSession(ctx context.Context, refreshToken string) (*session.Session, error) {
	s.mu.Lock()
	s.refreshCalls++
	s.mu.Unlock()
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshSession.Clone(), nil
}

func (s *stubAPI) GetUser(ctx context.Context, accessToken string) (*session.User, error) {
	return nil, session.ErrInvalidSession
}

func (s *stubAPI) UpdateUser(ctx context.Context, accessToken string, attrs map[string]any) (*session.User, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.updateUser, nil
}

func (s *stubAPI) SignOut(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	s.signOutCalls++
	s.mu.Unlock()
	return s.signOutErr
}

func (s *stubAPI) From(table, accessToken string) session.Query {
	s.mu.Lock()
	s.fromTables = append(s.fromTables, table)
	s.fromTokens = append(s.fromTokens, accessToken)
	s.mu.Unlock()
	return nil
}

func (s *stubAPI) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// stubDecoder decodes tokens by table lookup.
type stubDecoder struct {
	users map[string]*session.User
	errs  map[string]error
}

func (d *stubDecoder) Decode(accessToken string) (*session.User, error) {
	if err, ok := d.errs[accessToken]; ok {
		return nil, err
	}
	if user, ok := d.users[accessToken]; ok {
		return user, nil
	}
	return nil, session.ErrInvalidSession
}
