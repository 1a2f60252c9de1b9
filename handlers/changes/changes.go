package changes

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/sse"
)

const keepAliveInterval = 25 * time.Second

// collections anyone signed in may follow; the rest are staff only
var public = map[string]bool{
	events.Courses:         true,
	events.Products:        true,
	events.AccessLevels:    true,
	events.Timers:          true,
	events.DiscountPresets: true,
	events.PromoCodes:      true,
	events.Currencies:      true,
}

var staffOnly = map[string]bool{
	events.Users:         true,
	events.Orders:        true,
	events.Notifications: true,
}

// ChangesHandler streams collection changes from the hub
type ChangesHandler struct {
	hub       *events.Hub
	log       *logger.Logger
	keepAlive time.Duration
}

// NewChangesHandler creates a new change stream handler
func NewChangesHandler(hub *events.Hub, log *logger.Logger) *ChangesHandler {
	return &ChangesHandler{hub: hub, log: log.With("handler", "changes"), keepAlive: keepAliveInterval}
}

// resolve turns the query into a collection filter. Staff with no filter follow everything.
func resolve(raw string, staff bool) ([]string, error) {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch {
		case public[name]:
		case staffOnly[name]:
			if !staff {
				return nil, access.ErrStaffOnly
			}
		default:
			return nil, apperr.Validation("unknown collection " + name)
		}
		out = append(out, name)
	}
	if len(out) == 0 && !staff {
		for name := range public {
			out = append(out, name)
		}
	}
	return out, nil
}

// Stream handles GET /api/v1/changes?collections=products,promoCodes
func (h *ChangesHandler) Stream(c *fiber.Ctx) error {
	session := middleware.GetSession(c)
	staff := session != nil && access.IsStaff(session.Role)

	collections, err := resolve(c.Query("collections"), staff)
	if err != nil {
		return response.FromError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// the fiber context is not valid inside the stream writer
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes := h.hub.Subscribe(ctx, collections...)
		if err := sse.Send(w, sse.Event{Event: "ready", Data: map[string]interface{}{"collections": collections}}); err != nil {
			return
		}

		keepAlive := time.NewTicker(h.keepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				if err := sse.Send(w, sse.Event{Event: "change", Data: change}); err != nil {
					h.log.Debug("change stream closed", "error", err)
					return
				}
			case <-keepAlive.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}
