package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	identityKey = "identity"
	claimsKey   = "claims"
)

type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*authclient.RefreshResponse, error)
}

// AutoRefreshMiddleware resolves the caller identity from the access
// cookie. A request without one is a guest; an expired token is renewed
// through the auth service before the handler runs.
type AutoRefreshMiddleware struct {
	JWTSecret  []byte
	AuthClient Refresher
}

func NewAutoRefreshMiddleware(secret []byte, authClient Refresher) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret:  secret,
		AuthClient: authClient,
	}
}

func (m *AutoRefreshMiddleware) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context())

		accessCookie, err := c.Cookie(AccessCookie)
		if err != nil || accessCookie.Value == "" {
			setIdentity(c, identity.Guest(), nil)
			return next(c)
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil {
			setIdentity(c, identityFromClaims(claims), claims)
			return next(c)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) {
			l.Warn("access_token_invalid", "status", 401, "error", err)
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		claims, err = m.refresh(c, accessCookie.Value)
		if err != nil {
			l.Warn("access_token_refresh_failed", "status", 401, "error", err)
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}

		setIdentity(c, identityFromClaims(claims), claims)
		return next(c)
	}
}

func (m *AutoRefreshMiddleware) refresh(c echo.Context, access string) (*tokens.AccessClaims, error) {
	refreshCookie, err := c.Cookie(RefreshCookie)
	if err != nil || refreshCookie.Value == "" {
		return nil, errors.New("refresh token missing")
	}
	if m.AuthClient == nil {
		return nil, errors.New("no auth client configured")
	}

	resp, err := m.AuthClient.RefreshTokens(c.Request().Context(), refreshCookie.Value, access)
	if err != nil {
		return nil, err
	}

	claims, err := tokens.AccessClaimsFromToken(resp.AccessToken, m.JWTSecret)
	if err != nil {
		return nil, errors.Wrap(err, "new access token")
	}

	c.SetCookie(CreateCookie(AccessCookie, resp.AccessToken, "/", time.Unix(resp.AccessExp, 0)))
	c.SetCookie(CreateCookie(RefreshCookie, resp.RefreshToken, "/", time.Unix(resp.RefreshExp, 0)))
	return claims, nil
}

// RequireDurable rejects guests. Mount it after Identify.
func RequireDurable(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IdentityFrom(c).Durable() {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFrom(c)
		if claims == nil || !IdentityFrom(c).Durable() {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}
		if claims.Role != tokens.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// IdentityFrom returns Guest when Identify did not run.
func IdentityFrom(c echo.Context) identity.Identity {
	if id, ok := c.Get(identityKey).(identity.Identity); ok {
		return id
	}
	return identity.Guest()
}

func ClaimsFrom(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(claimsKey).(*tokens.AccessClaims)
	return claims
}

func identityFromClaims(claims *tokens.AccessClaims) identity.Identity {
	return identity.FromClaims(claims.UserID(), claims.Guest)
}

func setIdentity(c echo.Context, id identity.Identity, claims *tokens.AccessClaims) {
	c.Set(identityKey, id)
	if claims != nil {
		c.Set(claimsKey, claims)
	}
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(DeleteCookie(AccessCookie, "/"))
	c.SetCookie(DeleteCookie(RefreshCookie, "/"))
}
