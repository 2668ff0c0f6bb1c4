package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var secret = []byte("test-secret")

type fakeRefresher struct {
	resp *authclient.RefreshResponse
	err  error
	got  string
}

func (f *fakeRefresher) RefreshTokens(_ context.Context, refreshToken, _ string) (*authclient.RefreshResponse, error) {
	f.got = refreshToken
	return f.resp, f.err
}

func sign(t *testing.T, id int64, role string, guest bool, ttl time.Duration) string {
	t.Helper()
	tok, err := tokens.SignAccess(id, role, guest, ttl, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw *AutoRefreshMiddleware, cookies ...*http.Cookie) (*httptest.ResponseRecorder, identity.Identity, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen identity.Identity
	err := mw.Identify(func(c echo.Context) error {
		seen = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "want echo.HTTPError, got %v", err)
	return he.Code
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    identity.Identity
	}{
		{name: "no cookie", want: identity.Guest()},
		{name: "empty cookie", cookies: []*http.Cookie{{Name: AccessCookie}}, want: identity.Guest()},
		{name: "user", cookies: []*http.Cookie{{Name: AccessCookie, Value: sign(t, 7, "user", false, time.Minute)}}, want: identity.Authenticated(7)},
		{name: "guest claim", cookies: []*http.Cookie{{Name: AccessCookie, Value: sign(t, 7, "user", true, time.Minute)}}, want: identity.Guest()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, got, err := run(t, NewAutoRefreshMiddleware(secret, nil), tt.cookies...)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentify_InvalidToken(t *testing.T) {
	t.Parallel()

	forged, err := tokens.SignAccess(7, "admin", false, time.Minute, []byte("other"))
	require.NoError(t, err)

	rec, _, err := run(t, NewAutoRefreshMiddleware(secret, nil), &http.Cookie{Name: AccessCookie, Value: forged})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Contains(t, rec.Header().Values("Set-Cookie")[0], AccessCookie+"=;")
}

func TestIdentify_RefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	fresh := sign(t, 9, "user", false, time.Minute)
	ref := &fakeRefresher{resp: &authclient.RefreshResponse{
		AccessToken:  fresh,
		RefreshToken: "r2",
		AccessExp:    time.Now().Add(time.Minute).Unix(),
		RefreshExp:   time.Now().Add(time.Hour).Unix(),
	}}

	rec, got, err := run(t, NewAutoRefreshMiddleware(secret, ref),
		&http.Cookie{Name: AccessCookie, Value: sign(t, 9, "user", false, -time.Minute)},
		&http.Cookie{Name: RefreshCookie, Value: "r1"},
	)
	require.NoError(t, err)
	assert.Equal(t, identity.Authenticated(9), got)
	assert.Equal(t, "r1", ref.got)

	setCookies := rec.Header().Values("Set-Cookie")
	require.Len(t, setCookies, 2)
	assert.Contains(t, setCookies[0], AccessCookie+"="+fresh)
	assert.Contains(t, setCookies[1], RefreshCookie+"=r2")
}

func TestIdentify_RefreshFailure(t *testing.T) {
	t.Parallel()

	expired := &http.Cookie{Name: AccessCookie, Value: sign(t, 9, "user", false, -time.Minute)}

	_, _, err := run(t, NewAutoRefreshMiddleware(secret, &fakeRefresher{}), expired)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = run(t, NewAutoRefreshMiddleware(secret, &fakeRefresher{err: authclient.ErrRejected}),
		expired, &http.Cookie{Name: RefreshCookie, Value: "r1"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name   string
		cookie string
		want   int
	}{
		{name: "guest", want: http.StatusUnauthorized},
		{name: "user", cookie: sign(t, 1, "user", false, time.Minute), want: http.StatusForbidden},
		{name: "admin", cookie: sign(t, 1, tokens.RoleAdmin, false, time.Minute), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			req := httptest.NewRequest(http.MethodPatch, "/admin/orders/x", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := NewAutoRefreshMiddleware(secret, nil).Identify(RequireAdmin(ok))(c)
			if tt.want == http.StatusNoContent {
				require.NoError(t, err)
				assert.Equal(t, tt.want, rec.Code)
				return
			}
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}
}

func TestRequireDurable(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/orders", nil), httptest.NewRecorder())
	setIdentity(c, identity.Guest(), nil)

	err := RequireDurable(func(echo.Context) error { return nil })(c)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	setIdentity(c, identity.Authenticated(3), nil)
	assert.NoError(t, RequireDurable(func(echo.Context) error { return nil })(c))
}
