package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"SafeTrail/internal/evidence"
	"SafeTrail/internal/fanout"
	"SafeTrail/internal/fleet"
	"SafeTrail/internal/geofence"
	"SafeTrail/internal/registry"
	"SafeTrail/internal/sos"
	"SafeTrail/pkg/config"
	"SafeTrail/pkg/middleware"
	"SafeTrail/pkg/ws"
)

type Handlers struct {
	db       *gorm.DB
	registry *registry.Registry
	sos      *sos.Manager
	fleet    *fleet.Store
	zones    *geofence.ZoneStore
	engine   *geofence.Engine
	chain    *evidence.Chain
	pub      fanout.Publisher
	wsh      *ws.Handler

	startTime time.Time
}

func NewHandlers(db *gorm.DB, reg *registry.Registry, mgr *sos.Manager, fl *fleet.Store,
	zones *geofence.ZoneStore, engine *geofence.Engine, chain *evidence.Chain,
	pub fanout.Publisher, wsHandler *ws.Handler) *Handlers {
	return &Handlers{
		db:        db,
		registry:  reg,
		sos:       mgr,
		fleet:     fl,
		zones:     zones,
		engine:    engine,
		chain:     chain,
		pub:       pub,
		wsh:       wsHandler,
		startTime: time.Now(),
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/health", h.HealthCheck)
	engine.GET("/status", h.Status)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws", h.wsh.Serve)
	engine.GET("/ws/stats", h.wsh.GetStats)

	h.registerZoneRoutes(engine)
	h.registerSOSRoutes(engine)
	h.registerEvidenceRoutes(engine)
}

func (h *Handlers) registerZoneRoutes(engine *gin.Engine) {
	zones := engine.Group("/zones")
	{
		zones.GET("/check", h.CheckLocation)
		zones.GET("/:category", h.GetZones)

		zones.POST("/:category", middleware.SignVerify(config.GlobalConfig.APISecretKey), h.ReplaceZones)
	}
}

func (h *Handlers) registerSOSRoutes(engine *gin.Engine) {
	group := engine.Group("/sos")
	{
		group.GET("/active", h.ActiveSOS)

		group.GET("/history", h.SOSHistory)

		group.POST("/:id/resolve", middleware.SignVerify(config.GlobalConfig.APISecretKey), h.ResolveSOS)

		group.POST("/:id/cancel", middleware.SignVerify(config.GlobalConfig.APISecretKey), h.CancelSOS)
	}
}

func (h *Handlers) registerEvidenceRoutes(engine *gin.Engine) {
	group := engine.Group("/evidence", middleware.SignVerify(config.GlobalConfig.APISecretKey))
	{
		group.GET("/verify", h.VerifyEvidence)

		group.GET("/:subject", h.EvidenceBySubject)
	}
}
