package session

import (
	"context"
	"sync"
	"time"
)

var _ ProviderClient = (*ClientBoundProvider)(nil)
var _ AuthStream = (*ClientBoundProvider)(nil)

// ClientBoundProvider is the long-lived, client-side ProviderClient. It holds
// the current token pair, refreshes it in the background ahead of expiry, and
// publishes every transition on its auth stream. There is one per client
// session; the Factory hands out the same instance for the process lifetime.
type ClientBoundProvider struct {
	api         API
	decoder     TokenDecoder
	logger      Logger
	refreshLead time.Duration

	// mu serializes state changes and event delivery, which is what gives
	// subscribers the strict emission order the Watcher relies on.
	mu           sync.Mutex
	sess         *Session
	user         *User
	subs         []*streamSub
	refreshTimer *time.Timer
	closed       bool
}

type streamSub struct {
	fn func(AuthEvent)
}

func newClientBoundProvider(providerAPI API, decoder TokenDecoder, logger Logger, refreshLead time.Duration) *ClientBoundProvider {
	return &ClientBoundProvider{
		api:         providerAPI,
		decoder:     decoder,
		logger:      logger,
		refreshLead: refreshLead,
	}
}

// OnAuthStateChange implements AuthStream. The callback runs on the
// provider's delivery turn and must not block for long; the Watcher only
// enqueues.
func (c *ClientBoundProvider) OnAuthStateChange(fn func(AuthEvent)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	sub := &streamSub{fn: fn}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s == sub {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// SignIn implements ProviderClient. On success the new session is installed,
// background refresh is scheduled, and SignedIn goes out on the stream.
func (c *ClientBoundProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, user, err := c.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.install(sess, user)
	c.emit(NewAuthEvent(EventSignedIn, sess.Clone(), user))
	return sess.Clone(), nil
}

// SignOut implements ProviderClient. The provider call is best-effort: local
// state is dropped and SignedOut emitted even when revocation fails, since a
// client that asked to sign out must never keep acting authenticated.
func (c *ClientBoundProvider) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := ""
	if c.sess != nil {
		token = c.sess.AccessToken
	}
	c.mu.Unlock()

	if token != "" {
		if err := c.api.SignOut(ctx, token); err != nil {
			c.logger.Warn("provider sign-out failed, clearing local session anyway: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.install(nil, nil)
	c.emit(NewAuthEvent(EventSignedOut, nil, nil))
	return nil
}

// CurrentUser implements ProviderClient. The cached user is served when the
// session is still current; an expired session is refreshed first, emitting
// TokenRefreshed.
func (c *ClientBoundProvider) CurrentUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	sess := c.sess.Clone()
	user := c.user
	c.mu.Unlock()

	if !sess.Complete() {
		return nil, nil
	}

	if !sess.Expired(time.Now()) {
		if user != nil {
			return user, nil
		}
		decoded, err := c.decoder.Decode(sess.AccessToken)
		if err == nil {
			c.mu.Lock()
			if c.sess.Equal(sess) {
				c.user = decoded
			}
			c.mu.Unlock()
			return decoded, nil
		}
		if !IsExpired(err) {
			return nil, err
		}
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, nil
}

// CurrentSession implements ProviderClient.
func (c *ClientBoundProvider) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone()
}

// UpdateUser implements ProviderClient. The session is untouched; only
// UserUpdated goes out.
func (c *ClientBoundProvider) UpdateUser(ctx context.Context, attrs map[string]any) (*User, error) {
	c.mu.Lock()
	sess := c.sess.Clone()
	c.mu.Unlock()

	if !sess.Complete() {
		return nil, ErrInvalidSession
	}

	user, err := c.api.UpdateUser(ctx, sess.AccessToken, attrs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.Equal(sess) {
		c.user = user
	}
	c.emit(NewAuthEvent(EventUserUpdated, nil, user))
	return user, nil
}

// From implements ProviderClient, an opaque pass-through to the provider's
// data surface using the current credentials.
func (c *ClientBoundProvider) From(table string) Query {
	c.mu.Lock()
	token := ""
	if c.sess != nil {
		token = c.sess.AccessToken
	}
	c.mu.Unlock()
	return c.api.From(table, token)
}

// Restore seeds the provider from a previously persisted session, emitting
// SignedIn so observers converge. Use it on cold start before installing the
// Watcher's stream consumer is fine: subscribers registered later receive
// subsequent events only, exactly like a page reload.
func (c *ClientBoundProvider) Restore(sess *Session) {
	if !sess.Complete() {
		return
	}

	user, err := c.decoder.Decode(sess.AccessToken)
	if err != nil {
		c.logger.Warn("restore could not decode persisted session: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.install(sess, user)
	c.emit(NewAuthEvent(EventSignedIn, sess.Clone(), user))
}

// Close stops background refresh. No further events are emitted.
func (c *ClientBoundProvider) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.stopRefreshLocked()
}

// install swaps the token pair and reschedules refresh. Callers hold mu.
func (c *ClientBoundProvider) install(sess *Session, user *User) {
	c.sess = sess.Clone()
	c.user = user
	c.stopRefreshLocked()

	if c.closed || !sess.Complete() || sess.ExpiresAt.IsZero() {
		return
	}

	delay := time.Until(sess.ExpiresAt) - c.refreshLead
	if delay < 0 {
		delay = 0
	}
	c.refreshTimer = time.AfterFunc(delay, func() {
		if err := c.refresh(context.Background()); err != nil {
			c.logger.Warn("background token refresh failed: %v", err)
		}
	})
}

func (c *ClientBoundProvider) stopRefreshLocked() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

// refresh exchanges the refresh token for a new pair. Transient provider
// failures leave the session unchanged and schedule a retry; no event is
// emitted, so observers never see a spurious sign-out.
func (c *ClientBoundProvider) refresh(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess.Clone()
	c.mu.Unlock()

	if !sess.Complete() {
		return ErrInvalidSession
	}

	next, err := c.api.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		if IsTransient(err) {
			c.scheduleRetry()
		}
		return err
	}

	user, derr := c.decoder.Decode(next.AccessToken)
	if derr != nil {
		c.logger.Warn("refresh produced an undecodable token: %v", derr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sess.Equal(sess) {
		// A newer transition won while we were refreshing; its event already
		// superseded ours.
		return nil
	}

	c.install(next, user)
	c.emit(NewAuthEvent(EventTokenRefreshed, next.Clone(), user))
	return nil
}

func (c *ClientBoundProvider) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.refreshTimer != nil {
		return
	}
	c.refreshTimer = time.AfterFunc(30*time.Second, func() {
		if err := c.refresh(context.Background()); err != nil {
			c.logger.Warn("background token refresh retry failed: %v", err)
		}
	})
}

// emit delivers to subscribers in registration order. Callers hold mu, which
// serializes delivery across transitions.
func (c *ClientBoundProvider) emit(event AuthEvent) {
	if c.closed {
		return
	}
	for _, sub := range c.subs {
		sub.fn(event)
	}
}
