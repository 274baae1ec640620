package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kiriha/wanderlight/server/api/rest"
	"github.com/kiriha/wanderlight/server/api/sse"
	apows "github.com/kiriha/wanderlight/server/api/ws"
	"github.com/kiriha/wanderlight/server/config"
	"github.com/kiriha/wanderlight/server/game/encounter"
	"github.com/kiriha/wanderlight/server/hook"
	mw "github.com/kiriha/wanderlight/server/middleware"
	"github.com/kiriha/wanderlight/server/pubsub"
	"github.com/kiriha/wanderlight/server/scheduler"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- PubSub ----
	bus := pubsub.NewBus(cfg.Battle.EventBufSize)

	// ---- Hooks ----
	hooks := hook.NewCenter()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Encounters ----
	mgr := encounter.NewManager(cfg, sched, bus, hooks, logger)
	defer mgr.Shutdown()

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	encH := apirest.NewEncounterHandler(mgr, logger)
	adminH := apirest.NewAdminHandler(mgr, sched, logger)

	api := r.Group("/api")
	{
		api.POST("/encounters", encH.Create)
		api.GET("/encounters", encH.List)
		api.GET("/encounters/:id", encH.Detail)
		api.DELETE("/encounters/:id", encH.End)
		api.PUT("/encounters/:id/flags", encH.SetFlags)
		api.POST("/encounters/:id/player/action", encH.PlayerAction)
		api.POST("/encounters/:id/player/position", encH.PlayerPosition)
		api.POST("/encounters/:id/damage", encH.Damage)

		adminG := api.Group("/admin", mw.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/encounters/end-all", adminH.EndAllEncounters)
	}

	// ---- Event streams ----
	wsH := apows.NewHandler(bus, mgr, cfg.Security, logger)
	r.GET("/ws/encounters/:id", wsH.Serve)

	sseH := sse.NewHandler(bus, mgr, logger)
	r.GET("/sse/encounters/:id", sseH.Serve)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server starting",
		zap.String("addr", addr),
		zap.Int("tick_ms", cfg.Battle.TickMs))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
