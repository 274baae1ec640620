package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/api/rest"
	"github.com/kiriha/wanderlight/server/config"
	"github.com/kiriha/wanderlight/server/game/encounter"
	"github.com/kiriha/wanderlight/server/hook"
	mw "github.com/kiriha/wanderlight/server/middleware"
	"github.com/kiriha/wanderlight/server/pubsub"
	"github.com/kiriha/wanderlight/server/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Battle: config.BattleConfig{
			TickMs:               3600000,
			BaseSpeed:            220,
			AttackCooldownMs:     1500,
			HitboxLifetimeMs:     200,
			ProjectileLifetimeMs: 1200,
			ProjectileSpeed:      600,
			EventBufSize:         64,
		},
		Difficulty: config.DifficultyConfig{AggressivenessFactor: 1.0},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *encounter.Manager) {
	t.Helper()
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	mgr := encounter.NewManager(testConfig(), sched, pubsub.NewBus(64), hook.NewCenter(), zap.NewNop())
	encH := rest.NewEncounterHandler(mgr, zap.NewNop())
	adminH := rest.NewAdminHandler(mgr, sched, zap.NewNop())

	r := gin.New()
	api := r.Group("/api")
	api.POST("/encounters", encH.Create)
	api.GET("/encounters", encH.List)
	api.GET("/encounters/:id", encH.Detail)
	api.DELETE("/encounters/:id", encH.End)
	api.PUT("/encounters/:id/flags", encH.SetFlags)
	api.POST("/encounters/:id/player/action", encH.PlayerAction)
	api.POST("/encounters/:id/player/position", encH.PlayerPosition)
	api.POST("/encounters/:id/damage", encH.Damage)

	admin := api.Group("/admin", mw.AdminAuth("test-key"))
	admin.GET("/metrics", adminH.Metrics)
	admin.POST("/encounters/end-all", adminH.EndAllEncounters)

	return r, mgr
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startEncounter(t *testing.T, r *gin.Engine) encounter.Snapshot {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/encounters", encounter.StartRequest{
		Player: encounter.CombatantSpec{Name: "hero", Level: 2, MaxHP: 100},
		NPCs: []encounter.CombatantSpec{
			{Name: "villager", Archetype: "villager", Level: 1, MaxHP: 60, X: 300},
		},
		Seed: 42,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap encounter.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestCreateAndDetail(t *testing.T) {
	r, _ := newTestRouter(t)
	snap := startEncounter(t, r)

	require.NotEmpty(t, snap.ID)
	require.Len(t, snap.NPCs, 1)
	assert.Equal(t, "idle", snap.NPCs[0].Mode)
	assert.True(t, snap.Flags.PlayerTurn)

	w := doJSON(r, http.MethodGet, "/api/encounters/"+snap.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/encounters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), snap.ID)
}

func TestCreateRejectsEmptyNPCs(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/encounters", encounter.StartRequest{
		Player: encounter.CombatantSpec{Name: "hero"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetailUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/encounters/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlagsAndPlayerAction(t *testing.T) {
	r, _ := newTestRouter(t)
	snap := startEncounter(t, r)

	w := doJSON(r, http.MethodPut, "/api/encounters/"+snap.ID+"/flags",
		encounter.Flags{Dialogue: true, PlayerTurn: true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/encounters/"+snap.ID, nil)
	var got encounter.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Flags.Dialogue)

	w = doJSON(r, http.MethodPost, "/api/encounters/"+snap.ID+"/player/action",
		map[string]bool{"acting": true, "charging": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/encounters/"+snap.ID+"/player/position",
		map[string]float64{"x": 500, "y": 0})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/encounters/"+snap.ID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 500.0, got.Player.X)
}

func TestDamageEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	snap := startEncounter(t, r)
	npcID := snap.NPCs[0].Combatant.ID

	w := doJSON(r, http.MethodPost, "/api/encounters/"+snap.ID+"/damage",
		map[string]interface{}{"target_id": fmt.Sprint(npcID), "amount": 15})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"applied":15`)

	w = doJSON(r, http.MethodGet, "/api/encounters/"+snap.ID, nil)
	var got encounter.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 45, got.NPCs[0].Combatant.HP)
	assert.Equal(t, "combat", got.NPCs[0].Mode)

	// Unknown target.
	w = doJSON(r, http.MethodPost, "/api/encounters/"+snap.ID+"/damage",
		map[string]interface{}{"target_id": "999999", "amount": 15})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndEncounter(t *testing.T) {
	r, mgr := newTestRouter(t)
	snap := startEncounter(t, r)

	w := doJSON(r, http.MethodDelete, "/api/encounters/"+snap.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, mgr.Count())

	w = doJSON(r, http.MethodDelete, "/api/encounters/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminMetrics(t *testing.T) {
	r, _ := newTestRouter(t)
	startEncounter(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
	req.Header.Set(mw.AdminKeyHeader, "test-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"live_encounters":1`)
}

func TestAdminEndAll(t *testing.T) {
	r, mgr := newTestRouter(t)
	startEncounter(t, r)
	startEncounter(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/encounters/end-all", nil)
	req.Header.Set(mw.AdminKeyHeader, "test-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ended":2`)
	assert.Equal(t, 0, mgr.Count())
}
