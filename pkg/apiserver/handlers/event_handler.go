package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/eventbus"
)

// Subscriber is the read side of the event bus.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) <-chan *eventbus.Event
}

type EventHandler struct {
	bus    Subscriber
	logger *zap.Logger
}

func NewEventHandler(bus Subscriber, logger *zap.Logger) *EventHandler {
	return &EventHandler{bus: bus, logger: logger}
}

// Stream relays run events, and decisions when ?decisions=true, as
// server-sent events until the client goes away.
func (h *EventHandler) Stream(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus not configured"})
		return
	}

	channels := []string{eventbus.ChannelRun}
	if c.Query("decisions") == "true" {
		channels = append(channels, eventbus.ChannelDecision)
	}

	ctx := c.Request.Context()
	events := h.bus.Subscribe(ctx, channels...)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(event.Type, event)
			c.Writer.Flush()
		case <-ctx.Done():
			h.logger.Debug("event stream closed", zap.Error(ctx.Err()))
			return
		}
	}
}
