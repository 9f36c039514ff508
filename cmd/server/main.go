package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/riskgate/internal/audit"
	"github.com/GoPolymarket/riskgate/internal/config"
	"github.com/GoPolymarket/riskgate/internal/engine"
	"github.com/GoPolymarket/riskgate/internal/feed"
	"github.com/GoPolymarket/riskgate/internal/handler"
	"github.com/GoPolymarket/riskgate/internal/middleware"
	"github.com/GoPolymarket/riskgate/internal/pkg/logger"
	"github.com/GoPolymarket/riskgate/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	// Event log: Postgres > Redis > Memory
	var eventRepo engine.EventRepo
	var pgEvents *repository.PostgresEventRepo
	var pgAudit *repository.PostgresAuditRepo
	var auditRepo audit.Repo

	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			pgEvents = repository.NewPostgresEventRepo(db)
			eventRepo = pgEvents
			pgAudit = repository.NewPostgresAuditRepo(db)
			auditRepo = pgAudit
		} else {
			logger.Error("Failed to connect to DB, falling back", "error", err)
		}
	}
	if eventRepo == nil && cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			eventRepo = repository.NewRedisEventRepo(redisClient, cfg.Redis.EventListKey, cfg.Redis.EventListMax)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if eventRepo == nil {
		eventRepo = repository.NewMemoryEventRepo(cfg.Redis.EventListMax)
	}

	// 3. Initialize Core Services
	eng := engine.New(engine.DefaultsFromConfig(cfg.Risk), eventRepo)

	auditSvc, err := audit.NewService("./logs", auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	var signalStream *feed.Stream
	if cfg.Feed.URL != "" {
		signalStream = feed.NewStream(cfg.Feed.URL, time.Duration(cfg.Feed.ReconnectSeconds)*time.Second, eng)
		signalStream.Start()
	}

	// Retention cleanup for the durable event/audit tables.
	cleanupDone := make(chan struct{})
	if pgEvents != nil && cfg.Database.CleanupIntervalMinutes > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.Database.CleanupIntervalMinutes) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-cleanupDone:
					return
				case <-ticker.C:
					retention := time.Duration(cfg.Database.EventRetentionDays) * 24 * time.Hour
					if err := pgEvents.Cleanup(context.Background(), retention); err != nil {
						logger.Error("event cleanup failed", "error", err)
					}
					auditRetention := time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour
					if err := pgAudit.Cleanup(context.Background(), auditRetention); err != nil {
						logger.Error("audit cleanup failed", "error", err)
					}
				}
			}
		}()
	}

	// 4. Initialize Handlers
	riskHandler := handler.NewRiskHandler(eng)
	adminHandler := handler.NewAdminHandler(eng, auditSvc)

	limiterPool := middleware.NewLimiterPool(cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	idempotencyStore := middleware.NewInMemIdempotencyStore()

	// 5. Setup Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "riskgate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(limiterPool))
	{
		risk := v1.Group("/risk")
		risk.POST("/check", middleware.IdempotencyMiddleware(idempotencyStore), riskHandler.Check)
		risk.GET("/users/:id", riskHandler.GetUserProfile)
		risk.GET("/users/:id/utilization", riskHandler.GetUserUtilization)
		risk.GET("/markets/:id", riskHandler.GetMarketConfig)
		risk.GET("/events", riskHandler.ListEvents)
		risk.GET("/events/:id", riskHandler.GetEvent)
		risk.GET("/metrics", riskHandler.GetGlobalMetrics)
		risk.GET("/violations", riskHandler.GetViolationStats)

		v1.POST("/feed/signals", adminHandler.PushSignals)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminMiddleware(cfg))
		admin.Use(middleware.AuditMiddleware(auditSvc))
		{
			admin.PUT("/markets/:id/risk", adminHandler.ConfigureMarketRisk)
			admin.PUT("/users/:id/limits", adminHandler.UpdateUserRiskLimit)
			admin.POST("/breakers/reset", adminHandler.ResetCircuitBreaker)
			admin.POST("/emergency", adminHandler.SetEmergencyMode)
			admin.GET("/audit", adminHandler.ListAudit)
		}
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("RiskGate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if signalStream != nil {
		signalStream.Stop()
	}
	close(cleanupDone)
	auditSvc.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
