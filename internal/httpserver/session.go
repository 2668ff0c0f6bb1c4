package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// SessionHTTP is called by the frontend right after login, while the
// browser session cookie still keys the guest cart.
type SessionHTTP struct {
	Merger *service.Merger
}

func (h *SessionHTTP) Established(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.established")

	res, err := h.Merger.OnIdentityEstablished(ctx, sessionOf(c))
	if err != nil {
		return writeError(c, l, "merge_cart_error", err)
	}

	out := transport.MergeResponse{
		Skipped: res.Skipped,
		Merged:  len(res.Merged),
		Count:   res.Count,
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, transport.MergeFailure{
			ProductID: f.Entry.ProductID,
			Quantity:  f.Entry.Quantity,
			Error:     f.Err.Error(),
		})
	}
	return c.JSON(http.StatusOK, out)
}
