package httpserver

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/session"
)

func sessionOf(c echo.Context) service.Session {
	return service.Session{
		Token:    session.Token(c),
		Identity: authmw.IdentityFrom(c),
	}
}

func productIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("product_id"), 10, 64)
}
