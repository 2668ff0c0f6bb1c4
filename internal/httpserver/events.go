package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const defaultHeartbeat = 15 * time.Second

// EventsHTTP streams cart badge events of the browser session as
// server-sent events. The event name is the bus kind.
type EventsHTTP struct {
	Bus       *bus.Bus
	Cart      *service.CartService
	Heartbeat time.Duration
}

func (h *EventsHTTP) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.events")
	sess := sessionOf(c)

	// Subscribe before reading the count so no mutation falls in between.
	sub := h.Bus.Subscribe(sess.Token)
	defer sub.Close()

	count, err := h.Cart.Count(ctx, sess)
	if err != nil {
		return writeError(c, l, "cart_events_error", err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if err := writeSSE(res, bus.Event{Kind: bus.KindAuthoritative, Count: count}); err != nil {
		return nil
	}

	beat := h.Heartbeat
	if beat <= 0 {
		beat = defaultHeartbeat
	}
	ticker := time.NewTicker(beat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				if errors.Is(sub.Err(), bus.ErrLagged) {
					l.Warn("cart_events_lagged", "session", sess.Token)
					_, _ = fmt.Fprint(res, "event: lagged\ndata: {}\n\n")
					res.Flush()
				}
				return nil
			}
			if err := writeSSE(res, ev); err != nil {
				return nil
			}
		}
	}
}

func writeSSE(res *echo.Response, ev bus.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
