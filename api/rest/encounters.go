package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/encounter"
)

// EncounterHandler exposes the encounter lifecycle and the per-tick input
// channel (flags, player action, damage injection) over REST.
type EncounterHandler struct {
	mgr    *encounter.Manager
	logger *zap.Logger
}

// NewEncounterHandler creates an EncounterHandler.
func NewEncounterHandler(mgr *encounter.Manager, logger *zap.Logger) *EncounterHandler {
	return &EncounterHandler{mgr: mgr, logger: logger}
}

// Create handles POST /api/encounters.
func (h *EncounterHandler) Create(c *gin.Context) {
	var req encounter.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enc, err := h.mgr.Start(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, enc.Snapshot())
}

// List handles GET /api/encounters.
func (h *EncounterHandler) List(c *gin.Context) {
	ids := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"encounters": ids, "count": len(ids)})
}

func (h *EncounterHandler) lookup(c *gin.Context) (*encounter.Encounter, bool) {
	enc, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, encounter.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return enc, true
}

// Detail handles GET /api/encounters/:id.
func (h *EncounterHandler) Detail(c *gin.Context) {
	enc, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, enc.Snapshot())
}

// End handles DELETE /api/encounters/:id.
func (h *EncounterHandler) End(c *gin.Context) {
	id := c.Param("id")
	if err := h.mgr.End(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SetFlags handles PUT /api/encounters/:id/flags.
func (h *EncounterHandler) SetFlags(c *gin.Context) {
	enc, ok := h.lookup(c)
	if !ok {
		return
	}
	var flags encounter.Flags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enc.SetFlags(flags)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type playerActionRequest struct {
	Acting   bool `json:"acting"`
	Charging bool `json:"charging"`
}

// PlayerAction handles POST /api/encounters/:id/player/action.
func (h *EncounterHandler) PlayerAction(c *gin.Context) {
	enc, ok := h.lookup(c)
	if !ok {
		return
	}
	var req playerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enc.SetPlayerAction(req.Acting, req.Charging)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type playerPositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerPosition handles POST /api/encounters/:id/player/position.
func (h *EncounterHandler) PlayerPosition(c *gin.Context) {
	enc, ok := h.lookup(c)
	if !ok {
		return
	}
	var req playerPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enc.MovePlayer(req.X, req.Y)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type damageRequest struct {
	TargetID string `json:"target_id" binding:"required"`
	Amount   int    `json:"amount" binding:"required,min=1"`
}

// Damage handles POST /api/encounters/:id/damage. This is the host-scene
// path for player-sourced hits on NPCs.
func (h *EncounterHandler) Damage(c *gin.Context) {
	enc, ok := h.lookup(c)
	if !ok {
		return
	}
	var req damageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	targetID, err := strconv.ParseInt(req.TargetID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_id"})
		return
	}
	applied, ok := enc.InjectDamage(targetID, req.Amount)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "target not damageable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
