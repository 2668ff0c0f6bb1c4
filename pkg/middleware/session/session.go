package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "cart_session"
	contextKey = "cart_session"
)

type Config struct {
	Secure bool
	MaxAge time.Duration
}

// Middleware makes sure every request carries a browser session token. The
// token keys the guest cart and the cart event stream, so all tabs of one
// browser share them.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 30 * 24 * time.Hour
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			if ck, err := c.Cookie(CookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					token = ck.Value
				}
			}
			if token == "" {
				token = uuid.NewString()
			}

			c.SetCookie(&http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(contextKey, token)
			return next(c)
		}
	}
}

// Token returns "" when the middleware did not run.
func Token(c echo.Context) string {
	s, _ := c.Get(contextKey).(string)
	return s
}
