package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeTrail/internal/evidence"
	"SafeTrail/internal/fanout"
	"SafeTrail/internal/fleet"
	"SafeTrail/internal/gateway"
	"SafeTrail/internal/geofence"
	handlers "SafeTrail/internal/handler"
	"SafeTrail/internal/identity"
	"SafeTrail/internal/registry"
	"SafeTrail/internal/sos"
	"SafeTrail/pkg/cache"
	"SafeTrail/pkg/config"
	"SafeTrail/pkg/i18n"
	"SafeTrail/pkg/logger"
	"SafeTrail/pkg/metrics"
	"SafeTrail/pkg/middleware"
	"SafeTrail/pkg/scheduler"
	"SafeTrail/pkg/util"
	"SafeTrail/pkg/ws"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	db, err := util.CreateDatabaseInstance(&gorm.Config{}, cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.L.Fatal("database open failed", zap.Error(err))
	}
	if err := identity.Seed(db); err != nil {
		logger.L.Fatal("identity seed failed", zap.Error(err))
	}

	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.L.Fatal("cache init failed", zap.Error(err))
	}
	defer c.Close()

	directory, err := identity.NewDirectory(db, c)
	if err != nil {
		logger.L.Fatal("identity directory init failed", zap.Error(err))
	}

	chain, err := evidence.Open(db)
	if err != nil {
		logger.L.Fatal("evidence log open failed", zap.Error(err))
	}

	translator, err := i18n.NewI18nSupport(cfg.DefaultLanguage, cfg.LocalesPath)
	if err != nil {
		logger.L.Fatal("locale load failed", zap.Error(err))
	}

	zones := geofence.NewZoneStore()
	geofence.SeedDefaults(zones)
	engine := geofence.NewEngine(zones, translator)

	hub := ws.NewHub(ws.LoadConfigFromEnv())
	defer hub.Close()
	pub := fanout.NewHubPublisher(hub)

	fl := fleet.NewStore(cfg.MinutesPerKm, time.Now().UnixNano())
	fleet.SeedDemo(fl)
	reg := registry.New(directory, chain, pub, cfg.SessionTimeout)
	mgr := sos.NewManager(fl, chain, pub, cfg.EtaTickInterval, cfg.EtaMinute)

	hub.SetGateway(gateway.New(hub, reg, engine, mgr, chain))

	// liveness sweep: drop silent sessions and close their sockets
	sched := scheduler.New()
	defer sched.Stop()
	sched.Every(cfg.SweepInterval, scheduler.FuncJob(func(ctx context.Context) {
		for _, rec := range reg.Sweep() {
			hub.CloseConnection(rec.SessionID)
		}
	}))

	// nightly evidence-log audit
	cr := scheduler.NewCron(nil)
	if _, err := cr.AddWithCtx(cfg.AuditSchedule, func(ctx context.Context) {
		bad, err := chain.Verify(ctx)
		switch {
		case err != nil:
			logger.L.Error("evidence audit failed", zap.Error(err))
		case bad != nil:
			logger.L.Error("evidence log integrity violation",
				zap.String("entry", bad.EntryID), zap.String("subject", bad.Subject))
		default:
			logger.L.Info("evidence log verified")
		}
	}); err != nil {
		logger.L.Fatal("audit schedule invalid", zap.Error(err))
	}
	cr.Start()
	defer cr.Stop()

	gin.SetMode(cfg.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware(), middleware.Language(), middleware.RateLimit(cfg.RateLimit))

	h := handlers.NewHandlers(db, reg, mgr, fl, zones, engine, chain, pub, ws.NewHandler(hub))
	h.Register(router)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		logger.L.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L.Error("forced shutdown", zap.Error(err))
	}
}
