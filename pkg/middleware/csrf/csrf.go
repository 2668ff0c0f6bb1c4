package csrf

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Config struct {
	CookieName string
	HeaderName string
	FormField  string

	CookiePath string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	EnforceSameOrigin bool

	SkipPaths []string
}

func DefaultConfig() Config {
	return Config{
		CookieName:        "XSRF-TOKEN",
		HeaderName:        "X-CSRF-Token",
		FormField:         "csrf_token",
		CookiePath:        "/",
		SameSite:          http.SameSiteLaxMode,
		MaxAge:            24 * time.Hour,
		EnforceSameOrigin: true,
	}
}

// Middleware is double-submit protection for cookie-authenticated
// mutations: the token cookie is readable by the page script, which echoes
// it back in the header. Safe methods only refresh the cookie.
func Middleware(cfg Config) echo.MiddlewareFunc {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.FormField == "" {
		cfg.FormField = def.FormField
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	skip := map[string]struct{}{}
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	skipper := func(c echo.Context) bool {
		_, ok := skip[c.Request().URL.Path]
		return ok
	}

	token := echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper:        skipper,
		TokenLength:    32,
		TokenLookup:    "header:" + cfg.HeaderName + ",form:" + cfg.FormField,
		CookieName:     cfg.CookieName,
		CookiePath:     cfg.CookiePath,
		CookieDomain:   cfg.Domain,
		CookieSecure:   cfg.Secure,
		CookieSameSite: cfg.SameSite,
		CookieMaxAge:   int(cfg.MaxAge.Seconds()),
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		checked := token(next)
		return func(c echo.Context) error {
			req := c.Request()
			if !skipper(c) && cfg.EnforceSameOrigin && !safeMethod(req.Method) && !sameOrigin(req) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}
			return checked(c)
		}
	}
}

func safeMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
		if origin == "" {
			return false
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, schemeOf(r)) && strings.EqualFold(u.Host, r.Host)
}

func schemeOf(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
