package session

import (
	"context"
	"sync"
	"time"
)

var _ ProviderClient = (*RequestBoundProvider)(nil)

// RequestBoundProvider is the per-request ProviderClient. It is seeded with
// the token pair extracted from the request cookies and lives exactly as long
// as the request. It never refreshes silently: every token mutation is pushed
// through the onRefresh callback so the caller can mirror it onto the
// response before that response is sent.
type RequestBoundProvider struct {
	api     API
	decoder TokenDecoder
	logger  Logger

	mu        sync.Mutex
	sess      *Session
	user      *User
	onRefresh func(*Session) error
}

func newRequestBoundProvider(providerAPI API, decoder TokenDecoder, logger Logger, seed *Session, onRefresh func(*Session) error) *RequestBoundProvider {
	if onRefresh == nil {
		onRefresh = func(*Session) error { return nil }
	}
	return &RequestBoundProvider{
		api:       providerAPI,
		decoder:   decoder,
		logger:    logger,
		sess:      seed.Clone(),
		onRefresh: onRefresh,
	}
}

// SignIn implements ProviderClient. A server-side login installs the new pair
// and reports it through onRefresh so the response carries fresh cookies.
func (r *RequestBoundProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, user, err := r.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sess = sess.Clone()
	r.user = user
	r.mu.Unlock()

	if err := r.onRefresh(sess.Clone()); err != nil {
		r.logger.Error("failed to mirror signed-in session to response: %v", err)
	}
	return sess.Clone(), nil
}

// SignOut implements ProviderClient. Local request state is dropped and a nil
// session is reported so the caller clears the cookie pair.
func (r *RequestBoundProvider) SignOut(ctx context.Context) error {
	r.mu.Lock()
	token := ""
	if r.sess != nil {
		token = r.sess.AccessToken
	}
	r.sess = nil
	r.user = nil
	r.mu.Unlock()

	if token != "" {
		if err := r.api.SignOut(ctx, token); err != nil {
			r.logger.Warn("provider sign-out failed, clearing cookies anyway: %v", err)
		}
	}

	if err := r.onRefresh(nil); err != nil {
		r.logger.Error("failed to clear session cookies on response: %v", err)
	}
	return nil
}

// CurrentUser implements ProviderClient. An expired access token is exchanged
// using the refresh token, and the new pair is reported through onRefresh
// before the user is returned so the refresh is never invisible to the caller.
// Invalid or absent sessions yield (nil, nil): unauthenticated is a state,
// not an error.
func (r *RequestBoundProvider) CurrentUser(ctx context.Context) (*User, error) {
	r.mu.Lock()
	sess := r.sess.Clone()
	user := r.user
	r.mu.Unlock()

	if user != nil {
		return user, nil
	}
	if !sess.Complete() {
		return nil, nil
	}

	if !sess.Expired(time.Now()) {
		decoded, err := r.decoder.Decode(sess.AccessToken)
		if err == nil {
			r.mu.Lock()
			r.user = decoded
			r.mu.Unlock()
			return decoded, nil
		}
		if !IsExpired(err) {
			if IsInvalidSession(err) {
				return nil, nil
			}
			return nil, err
		}
	}

	return r.refreshAndDecode(ctx, sess)
}

func (r *RequestBoundProvider) refreshAndDecode(ctx context.Context, sess *Session) (*User, error) {
	next, err := r.api.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		if IsInvalidSession(err) {
			// Revoked or expired refresh token: an anonymous request, not a
			// failure.
			return nil, nil
		}
		return nil, err
	}

	// A cancelled request must not re-issue cookies; the refreshed pair is
	// discarded and the browser retries with its old tokens.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	decoded, derr := r.decoder.Decode(next.AccessToken)
	if derr != nil {
		r.logger.Warn("refreshed token did not decode: %v", derr)
	}

	r.mu.Lock()
	r.sess = next.Clone()
	r.user = decoded
	r.mu.Unlock()

	if err := r.onRefresh(next.Clone()); err != nil {
		r.logger.Error("failed to mirror refreshed session to response: %v", err)
	}

	return decoded, nil
}

// CurrentSession implements ProviderClient.
func (r *RequestBoundProvider) CurrentSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.Clone()
}

// UpdateUser implements ProviderClient.
func (r *RequestBoundProvider) UpdateUser(ctx context.Context, attrs map[string]any) (*User, error) {
	r.mu.Lock()
	sess := r.sess.Clone()
	r.mu.Unlock()

	if !sess.Complete() {
		return nil, ErrInvalidSession
	}

	user, err := r.api.UpdateUser(ctx, sess.AccessToken, attrs)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.user = user
	r.mu.Unlock()
	return user, nil
}

// From implements ProviderClient, an opaque pass-through to the provider's
// data surface. It stays usable for public data when no user could be
// derived.
func (r *RequestBoundProvider) From(table string) Query {
	r.mu.Lock()
	token := ""
	if r.sess != nil {
		token = r.sess.AccessToken
	}
	r.mu.Unlock()
	return r.api.From(table, token)
}
