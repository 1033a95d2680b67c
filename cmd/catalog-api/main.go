package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ordinaly-software/catalog-api/api/swagger"
	"github.com/ordinaly-software/catalog-api/internal/handler"
	"github.com/ordinaly-software/catalog-api/internal/middleware"
	"github.com/ordinaly-software/catalog-api/internal/repository"
	"github.com/ordinaly-software/catalog-api/internal/service"
	"github.com/ordinaly-software/catalog-api/pkg/cache"
	"github.com/ordinaly-software/catalog-api/pkg/config"
	"github.com/ordinaly-software/catalog-api/pkg/database"
	"github.com/ordinaly-software/catalog-api/pkg/jobs"
	"github.com/ordinaly-software/catalog-api/pkg/logger"
	corsmiddleware "github.com/ordinaly-software/catalog-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ordinaly-software/catalog-api/pkg/middleware/requestid"
	"github.com/ordinaly-software/catalog-api/pkg/storage"
)

// @title Course Catalog API
// @version 1.0.0
// @description Course scheduling, catalog and enrollment eligibility service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := false
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheEnabled = cfg.Catalog.CacheEnabled
		defer redisClient.Close()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cacheEnabled)

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	validate := validator.New()
	authSvc := service.NewAuthService(cfg.JWT)
	catalogSvc := service.NewCatalogService(courseRepo, cacheSvc, cfg.Catalog, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, cacheSvc, validate, logr)

	catalogHandler := handler.NewCatalogHandler(catalogSvc, enrollmentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	var exportHandler *handler.ExportHandler
	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStore(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(courseRepo, store, signer, service.ExportConfig{
			APIPrefix:     cfg.APIPrefix,
			OrganizerName: cfg.Exports.OrganizerName,
			ResultTTL:     cfg.Exports.SignedURLTTL,
			DefaultLocale: cfg.Catalog.DefaultLocale,
		}, logr, nil, nil, nil)
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	if cfg.Catalog.WarmupEnabled || exportSvc != nil {
		maintenance := jobs.NewQueue("catalog-maintenance", jobs.Config{
			Workers:    cfg.Catalog.WarmupWorkers,
			RetryDelay: 30 * time.Second,
			Logger:     logr,
		})
		if cfg.Catalog.WarmupEnabled {
			maintenance.Handle("cache-warmup", func(ctx context.Context, task jobs.Task) error {
				warmed, err := catalogSvc.Warmup(ctx)
				if err != nil {
					return err
				}
				logr.Sugar().Infow("catalog cache warmed", "courses", warmed)
				return nil
			})
		}
		if exportSvc != nil {
			maintenance.Handle("export-cleanup", func(ctx context.Context, task jobs.Task) error {
				removed, err := exportSvc.Cleanup()
				if err != nil {
					return err
				}
				if len(removed) > 0 {
					logr.Sugar().Infow("expired exports removed", "files", len(removed))
				}
				return nil
			})
		}
		maintenance.Start(context.Background())
		defer maintenance.Stop()
		if cfg.Catalog.WarmupEnabled {
			if err := maintenance.Enqueue(jobs.Task{Kind: "cache-warmup"}); err != nil {
				logr.Sugar().Warnw("failed to enqueue cache warmup", "error", err)
			}
		}
		if exportSvc != nil {
			maintenance.Every(cfg.Exports.SignedURLTTL, jobs.Task{Kind: "export-cleanup"})
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/courses", catalogHandler.List)
	api.GET("/courses/:id", middleware.OptionalJWT(authSvc), catalogHandler.Get)
	api.GET("/courses/:id/occurrences", catalogHandler.Occurrences)
	api.GET("/courses/:id/decision", middleware.OptionalJWT(authSvc), catalogHandler.Decision)

	if exportHandler != nil {
		api.GET("/courses/:id/calendar", exportHandler.CourseCalendar)
		api.POST("/exports/timetable", exportHandler.Timetable)
		api.GET("/exports/:token", exportHandler.Download)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	enrollments.GET("", enrollmentHandler.List)
	enrollments.POST("", enrollmentHandler.Create)
	enrollments.DELETE("/:courseId", enrollmentHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
