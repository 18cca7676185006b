package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edusuite/presence-api/api/swagger"
	"github.com/edusuite/presence-api/internal/handler"
	internalmiddleware "github.com/edusuite/presence-api/internal/middleware"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/internal/repository"
	"github.com/edusuite/presence-api/internal/service"
	"github.com/edusuite/presence-api/pkg/cache"
	"github.com/edusuite/presence-api/pkg/config"
	"github.com/edusuite/presence-api/pkg/database"
	"github.com/edusuite/presence-api/pkg/jobs"
	"github.com/edusuite/presence-api/pkg/logger"
	corsmiddleware "github.com/edusuite/presence-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusuite/presence-api/pkg/middleware/requestid"
	"github.com/edusuite/presence-api/pkg/storage"
)

// @title Presence API
// @version 0.1.0
// @description Attendance capture and teaching-hours aggregation service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Presence.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Presence.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRecordRepository(db)
	signInRepo := repository.NewTeacherSignInRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	scheduleSvc := service.NewScheduleService(slotRepo, yearRepo, validate, logr)
	absenceSvc := service.NewAbsenceService(attendanceRepo, cacheSvc, validate, logr, cfg.Presence.Collation, cfg.Presence.CacheTTL)
	hoursSvc := service.NewHoursService(signInRepo, validate, logr, cfg.Presence.Collation)

	exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(absenceSvc, hoursSvc, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reportWorker := service.NewReportWorker(reportJobRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(reportJobRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	absenceHandler := handler.NewAbsenceHandler(absenceSvc, exportSvc)
	hoursHandler := handler.NewHoursHandler(hoursSvc, exportSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)
	v1.POST("/auth/login", authHandler.Login)

	// Download links carry their own HMAC token, no JWT needed.
	v1.GET("/export/:token", reportHandler.Download)

	secured := v1.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.GET("/auth/me", authHandler.Me)

	anyRole := internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleSupervisor, models.RoleAdmin)
	staffOnly := internalmiddleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	secured.GET("/schedules/slots", anyRole, scheduleHandler.ListSlots)
	secured.POST("/schedules/slots", adminOnly, scheduleHandler.CreateSlot)
	secured.DELETE("/schedules/slots/:id", adminOnly, scheduleHandler.DeleteSlot)
	secured.GET("/schedules/sessions", anyRole, scheduleHandler.DaySessions)
	secured.GET("/academic-years", anyRole, scheduleHandler.ListAcademicYears)
	secured.POST("/academic-years", adminOnly, scheduleHandler.CreateAcademicYear)

	secured.GET("/absences/sessions", anyRole, absenceHandler.SessionReport)
	secured.POST("/absences/sessions", staffOnly, absenceHandler.RecordSession)
	secured.GET("/absences/summary", staffOnly, absenceHandler.Summary)
	secured.GET("/absences/export", staffOnly, absenceHandler.Export)

	secured.POST("/hours/sign-ins", staffOnly, hoursHandler.RecordSignIn)
	secured.GET("/hours/summary", anyRole, hoursHandler.MonthlySummary)
	secured.GET("/hours/day-sheet", anyRole, hoursHandler.DaySheet)
	secured.GET("/hours/export", anyRole, hoursHandler.Export)

	secured.POST("/reports", anyRole, reportHandler.Create)
	secured.GET("/reports/:id", anyRole, reportHandler.Status)

	secured.GET("/system/metrics", adminOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
