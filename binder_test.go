package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBinder(api session.API, decoder session.TokenDecoder, opts ...session.BinderOption) *session.RequestBinder {
	factory := session.NewFactory(api, decoder)
	cookies := session.NewCookieStore(session.CookieConfig{})
	return session.NewRequestBinder(factory, cookies, opts...)
}

func newBindContext(stdCtx context.Context) (*router.MockContext, *[]*router.Cookie) {
	written := []*router.Cookie{}
	ctx := router.NewMockContext()
	ctx.On("Context").Return(stdCtx)
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		written = append(written, c)
		return true
	})).Return()
	return ctx, &written
}

func TestBindWithoutCookiesIsAnonymous(t *testing.T) {
	binder := newBinder(&stubAPI{}, &stubDecoder{})

	ctx, written := newBindContext(context.Background())

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)
	assert.Nil(t, rc.User())
	assert.Nil(t, rc.Session())
	assert.NotNil(t, rc.Client(), "anonymous requests still get a usable client")
	assert.Empty(t, *written)
	assert.Nil(t, session.UserFor(rc))
}

func TestBindWithValidTokenDerivesUser(t *testing.T) {
	decoder := &stubDecoder{users: map[string]*session.User{
		"tok-1": {ID: "user-1", Email: "ada@example.com"},
	}}
	binder := newBinder(&stubAPI{}, decoder)

	ctx, written := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)
	require.NotNil(t, rc.User())
	assert.Equal(t, "user-1", rc.User().ID)
	assert.Equal(t, "tok-1", rc.Session().AccessToken)
	assert.Empty(t, *written, "no refresh means no Set-Cookie")
}

func TestBindRefreshMirrorsCookiesOntoResponse(t *testing.T) {
	api := &stubAPI{
		refreshSession: &session.Session{
			AccessToken:  "tok-2",
			RefreshToken: "ref-2",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
	decoder := &stubDecoder{
		users: map[string]*session.User{"tok-2": {ID: "user-1"}},
		errs:  map[string]error{"tok-1": session.ErrSessionExpired},
	}
	sink := &recordingSink{}
	binder := newBinder(api, decoder, session.WithBinderActivitySink(sink))

	ctx, written := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)
	require.NotNil(t, rc.User())
	assert.Equal(t, "user-1", rc.User().ID)

	require.Len(t, *written, 2)
	byName := cookiesByName(*written)
	assert.Equal(t, "tok-2", byName[session.DefaultAccessCookie].Value)
	assert.Equal(t, "ref-2", byName[session.DefaultRefreshCookie].Value)

	assert.Equal(t, []session.ActivityEventType{session.ActivityTokenRefreshed}, sink.types())
}

func TestBindRevokedSessionProceedsAnonymously(t *testing.T) {
	api := &stubAPI{refreshErr: session.ErrInvalidSession}
	decoder := &stubDecoder{errs: map[string]error{"tok-1": session.ErrSessionExpired}}
	binder := newBinder(api, decoder)

	ctx, written := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)
	assert.Nil(t, rc.User())
	assert.Empty(t, *written)
}

func TestBindTransientProviderFailureProceedsAnonymously(t *testing.T) {
	api := &stubAPI{refreshErr: session.ErrProviderUnavailable}
	decoder := &stubDecoder{errs: map[string]error{"tok-1": session.ErrSessionExpired}}
	binder := newBinder(api, decoder)

	ctx, _ := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err, "provider trouble must not fail the whole request")
	assert.Nil(t, rc.User())
	assert.NotNil(t, rc.Client())
}

func TestBindCancelledRequestFails(t *testing.T) {
	stdCtx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &stubAPI{
		refreshSession: &session.Session{AccessToken: "tok-2", RefreshToken: "ref-2"},
	}
	decoder := &stubDecoder{errs: map[string]error{"tok-1": session.ErrSessionExpired}}
	binder := newBinder(api, decoder)

	ctx, written := newBindContext(stdCtx)
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	_, err := binder.Bind(ctx)
	require.Error(t, err)
	assert.Empty(t, *written, "a cancelled request must not carry Set-Cookie")
}

func TestBindIsolatesConcurrentRequests(t *testing.T) {
	decoder := &stubDecoder{users: map[string]*session.User{
		"tok-a": {ID: "user-a"},
		"tok-b": {ID: "user-b"},
	}}
	binder := newBinder(&stubAPI{}, decoder)

	ctxA, _ := newBindContext(context.Background())
	ctxA.CookiesM[session.DefaultAccessCookie] = "tok-a"
	ctxA.CookiesM[session.DefaultRefreshCookie] = "ref-a"

	ctxB, _ := newBindContext(context.Background())
	ctxB.CookiesM[session.DefaultAccessCookie] = "tok-b"
	ctxB.CookiesM[session.DefaultRefreshCookie] = "ref-b"

	rcA, err := binder.Bind(ctxA)
	require.NoError(t, err)
	rcB, err := binder.Bind(ctxB)
	require.NoError(t, err)

	assert.Equal(t, "user-a", rcA.User().ID)
	assert.Equal(t, "user-b", rcB.User().ID)
	assert.NotSame(t, rcA.Client(), rcB.Client())
}

func TestBindSignOutThroughRequestClientClearsCookies(t *testing.T) {
	decoder := &stubDecoder{users: map[string]*session.User{
		"tok-1": {ID: "user-1"},
	}}
	binder := newBinder(&stubAPI{}, decoder)

	ctx, written := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)

	require.NoError(t, rc.Client().SignOut(context.Background()))

	require.Len(t, *written, 2)
	for _, c := range *written {
		assert.Empty(t, c.Value)
		assert.True(t, c.Expires.Before(time.Now()))
	}
}

func TestRequestContextTravelsOnStandardContext(t *testing.T) {
	decoder := &stubDecoder{users: map[string]*session.User{
		"tok-1": {ID: "user-1"},
	}}
	binder := newBinder(&stubAPI{}, decoder)

	ctx, _ := newBindContext(context.Background())
	ctx.CookiesM[session.DefaultAccessCookie] = "tok-1"
	ctx.CookiesM[session.DefaultRefreshCookie] = "ref-1"

	rc, err := binder.Bind(ctx)
	require.NoError(t, err)

	stdCtx := session.WithContext(context.Background(), rc)

	got, ok := session.FromContext(stdCtx)
	require.True(t, ok)
	assert.Same(t, rc, got)

	user := session.UserFromContext(stdCtx)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)

	assert.Nil(t, session.UserFromContext(context.Background()))
}
