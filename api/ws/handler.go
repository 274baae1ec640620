package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/config"
	"github.com/kiriha/wanderlight/server/game/encounter"
	"github.com/kiriha/wanderlight/server/pubsub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Handler is the Gin handler for GET /ws/encounters/:id. It streams the
// encounter's event feed to the client and accepts player-input messages
// on the same connection.
type Handler struct {
	bus      *pubsub.Bus
	mgr      *encounter.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(bus *pubsub.Bus, mgr *encounter.Manager, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	h := &Handler{bus: bus, mgr: mgr, logger: logger}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// inboundMessage is a client packet on the encounter socket.
type inboundMessage struct {
	Type     string          `json:"type"`
	Acting   bool            `json:"acting,omitempty"`
	Charging bool            `json:"charging,omitempty"`
	X        float64         `json:"x,omitempty"`
	Y        float64         `json:"y,omitempty"`
	Flags    json.RawMessage `json:"flags,omitempty"`
}

// Serve handles GET /ws/encounters/:id.
func (h *Handler) Serve(c *gin.Context) {
	enc, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgCh, unsub, err := h.bus.Subscribe(ctx, encounter.Channel(enc.ID))
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.Error(err))
		return
	}
	defer unsub()

	go h.readPump(conn, enc, cancel)
	h.writePump(ctx, conn, msgCh)
}

// readPump consumes client input until the connection dies. Player action
// and flag messages feed straight into the encounter.
func (h *Handler) readPump(conn *websocket.Conn, enc *encounter.Encounter, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn("malformed ws packet", zap.Error(err))
			continue
		}
		switch msg.Type {
		case "player_action":
			enc.SetPlayerAction(msg.Acting, msg.Charging)
		case "player_position":
			enc.MovePlayer(msg.X, msg.Y)
		case "flags":
			var flags encounter.Flags
			if err := json.Unmarshal(msg.Flags, &flags); err == nil {
				enc.SetFlags(flags)
			}
		default:
			h.logger.Debug("unknown ws message type", zap.String("type", msg.Type))
		}
	}
}

// writePump pushes encounter events and periodic pings to the client.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, msgCh <-chan *pubsub.Message) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
