package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/localcart"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/session"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var jwtSecret = []byte("test-secret")

const csrfToken = "csrf-test-token"

type harness struct {
	t    *testing.T
	srv  *httptest.Server
	db   *gorm.DB
	bus  *bus.Bus
	cart *service.CartService
}

func newHarness(t *testing.T, ready map[string]Check) *harness {
	t.Helper()

	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}
	local := localcart.NewMemory()
	b := bus.New(64)

	cartSvc := &service.CartService{Repo: r, Products: r, Local: local, Bus: b, Events: mykafka.Noop{}}

	e := echo.New()
	Register(e, &Deps{
		CartHandler:    &CartHTTP{Svc: cartSvc},
		OrderHandler:   &OrderHTTP{Svc: &service.OrderService{Repo: r, Bus: b, Events: mykafka.Noop{}}},
		SessionHandler: &SessionHTTP{Merger: &service.Merger{Local: local, Repo: r, Bus: b, Events: mykafka.Noop{}}},
		EventsHandler:  &EventsHTTP{Bus: b, Cart: cartSvc, Heartbeat: time.Hour},
		JWTSecret:      jwtSecret,
		Ready:          ready,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &harness{t: t, srv: srv, db: db, bus: b, cart: cartSvc}
}

type client struct {
	h       *harness
	session string
	access  string
}

func (h *harness) guest() *client {
	return &client{h: h, session: uuid.NewString()}
}

func (h *harness) user(id int64, role string) *client {
	c := h.guest()
	c.login(id, role)
	return c
}

func (c *client) login(id int64, role string) {
	tok, err := tokens.SignAccess(id, role, false, time.Minute, jwtSecret)
	require.NoError(c.h.t, err)
	c.access = tok
}

func (c *client) request(method, path string, body any, headers ...string) *http.Request {
	t := c.h.t
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.h.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Origin", c.h.srv.URL)
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.session})
	if c.access != "" {
		req.AddCookie(&http.Cookie{Name: authmw.AccessCookie, Value: c.access})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

// do sends the request and decodes a JSON body into out when out is non-nil.
func (c *client) do(method, path string, body, out any, headers ...string) int {
	t := c.h.t
	t.Helper()

	resp, err := http.DefaultClient.Do(c.request(method, path, body, headers...))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) sess() service.Session {
	s := service.Session{Token: c.session}
	if c.access != "" {
		claims, err := tokens.AccessClaimsFromToken(c.access, jwtSecret)
		require.NoError(c.h.t, err)
		s.Identity = identity.FromClaims(claims.UserID(), claims.Guest)
	}
	return s
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]Check{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return context.DeadlineExceeded },
	})

	resp, err := http.Get(h.srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(h.srv.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var failed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&failed))
	require.Contains(t, failed, "redis")
	require.NotContains(t, failed, "db")
}
