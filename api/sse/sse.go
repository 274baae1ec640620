package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/encounter"
	"github.com/kiriha/wanderlight/server/pubsub"
)

// Handler streams encounter events as server-sent events, for clients
// that cannot hold a WebSocket (or tooling that just wants curl).
type Handler struct {
	bus    *pubsub.Bus
	mgr    *encounter.Manager
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(bus *pubsub.Bus, mgr *encounter.Manager, logger *zap.Logger) *Handler {
	return &Handler{bus: bus, mgr: mgr, logger: logger}
}

// Serve handles GET /sse/encounters/:id.
func (h *Handler) Serve(c *gin.Context) {
	enc, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
		return
	}

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	msgCh, unsub, err := h.bus.Subscribe(c.Request.Context(), encounter.Channel(enc.ID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	// Send initial connected event.
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"encounter_id\":%q}\n\n", enc.ID)
	c.Writer.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: battle\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
