package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/middleware/session"
)

// Check is one readiness probe, e.g. a database or redis ping.
type Check func(ctx context.Context) error

type Deps struct {
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	SessionHandler *SessionHTTP
	EventsHandler  *EventsHTTP

	JWTSecret  []byte
	AuthClient authmw.Refresher

	CSRF    csrf.Config
	Session session.Config

	Ready map[string]Check
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.Ready))

	authMW := authmw.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	api := e.Group("/api/v1",
		session.Middleware(d.Session),
		csrf.Middleware(d.CSRF),
		authMW.Identify,
	)

	cart := api.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PUT("/items/:product_id", d.CartHandler.SetQuantity)
	cart.DELETE("/items/:product_id", d.CartHandler.RemoveItem)
	cart.GET("/count", d.CartHandler.Count)
	cart.GET("/events", d.EventsHandler.Stream)

	api.POST("/session/established", d.SessionHandler.Established)

	orders := api.Group("/orders", authmw.RequireDurable)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	admin := api.Group("/admin", authmw.RequireAdmin)
	admin.PATCH("/orders/:id", d.OrderHandler.UpdateStatus)
}

func ready(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, failed)
		}
		return c.NoContent(http.StatusOK)
	}
}
