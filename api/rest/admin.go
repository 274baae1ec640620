package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/encounter"
	"github.com/kiriha/wanderlight/server/scheduler"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	mgr    *encounter.Manager
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(mgr *encounter.Manager, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{mgr: mgr, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"live_encounters": h.mgr.Count(),
		"scheduler_tasks": h.sched.ListTickers(),
		"pending_delays":  h.sched.PendingDelays(),
	})
}

// EndAllEncounters force-closes every live encounter.
// POST /api/admin/encounters/end-all
func (h *AdminHandler) EndAllEncounters(c *gin.Context) {
	n := h.mgr.Count()
	h.mgr.Shutdown()
	h.logger.Info("admin ended all encounters", zap.Int("count", n))
	c.JSON(http.StatusOK, gin.H{"ended": n})
}
