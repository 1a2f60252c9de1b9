package course

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services/unlock"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/sse"
)

const keepAliveInterval = 25 * time.Second

// StreamLocks handles GET /api/v1/courses/:id/stream.
// Sends a "locks" event at start and whenever a module locks or unlocks.
func (h *CourseHandler) StreamLocks(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	session := middleware.GetSession(c)
	if _, err := h.courses.Outline(c.UserContext(), session, id); err != nil {
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

		states := make(chan []unlock.ModuleState, 1)
		done := make(chan error, 1)
		go func() {
			done <- h.courses.StreamLocks(ctx, session, id, h.streamInterval, func(s []unlock.ModuleState) {
				select {
				case states <- s:
				case <-ctx.Done():
				}
			})
		}()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case s := <-states:
				if err := sse.Send(w, sse.Event{Event: "locks", Data: s}); err != nil {
					h.log.Debug("lock stream closed", "course_id", id, "error", err)
					return
				}
			case <-keepAlive.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			case err := <-done:
				if err != nil {
					h.log.Warn("lock stream stopped", "course_id", id, "error", err)
					_ = sse.SendError(w, "stream unavailable")
				}
				return
			}
		}
	})

	return nil
}
