package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 20 * time.Second

// EventsHandler streams change events to browsers as server-sent events.
type EventsHandler struct {
	broker *eventbus.Broker
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(broker *eventbus.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

// RegisterRoutes registers the event stream route.
func (h *EventsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/events", h.Stream)
}

// Stream handles GET /api/v1/events[?location_id=...].
func (h *EventsHandler) Stream(c *gin.Context) {
	filter := c.Query("location_id")

	events, unsubscribe := h.broker.Subscribe(64)
	defer unsubscribe()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			if filter != "" && evt.Subject != filter {
				return true
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
