package main

import (
	"context"
	"fmt"
	"log"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"

	internalhandler "github.com/noah-isme/sma-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-api/internal/middleware"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/pkg/cache"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/database"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 0.1.0
// @description Constraint-satisfaction weekly timetable generator for university departments.
// @BasePath /
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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		registerPprof(r)
	}

	api := r.Group(cfg.APIPrefix)

	termRepo := repository.NewTermRepository(db)
	classRepo := repository.NewClassRepository(db)
	classSubjectRepo := repository.NewClassSubjectRepository(db)
	preferenceRepo := repository.NewTeacherPreferenceRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	semesterScheduleRepo := repository.NewSemesterScheduleRepository(db)
	semesterSlotRepo := repository.NewSemesterScheduleSlotRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)

	var exportCache *cache.ExportCache
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("export cache disabled, redis unavailable", "error", err)
	} else {
		exportCache = cache.NewExportCache(client)
		defer client.Close() //nolint:errcheck
	}

	var schedulerHandler *internalhandler.ScheduleGeneratorHandler
	var exportHandler *internalhandler.ExportHandler
	if cfg.Scheduler.Enabled {
		schedulerSvc := service.NewScheduleGeneratorService(
			termRepo,
			classRepo,
			classSubjectRepo,
			preferenceRepo,
			venueRepo,
			scheduleRepo,
			semesterScheduleRepo,
			semesterSlotRepo,
			nil,
			db,
			nil,
			logr,
			service.ScheduleGeneratorConfig{ProposalTTL: cfg.Scheduler.ProposalTTL},
		)

		queueCtx, cancel := context.WithCancel(context.Background())
		asyncQueue := jobs.NewQueue("schedule-generate", schedulerSvc.HandleAsyncJob, jobs.QueueConfig{
			Workers:    cfg.Scheduler.AsyncWorkers,
			BufferSize: cfg.Scheduler.AsyncQueueSize,
			MaxRetries: cfg.Scheduler.AsyncJobRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		asyncQueue.Start(queueCtx)
		schedulerSvc.SetAsyncQueue(asyncQueue)
		defer func() {
			cancel()
			asyncQueue.Stop()
		}()

		schedulerHandler = internalhandler.NewScheduleGeneratorHandler(schedulerSvc)

		exportSvc := service.NewExportService(semesterScheduleRepo, semesterSlotRepo, exportCache, service.ExportConfig{CacheTTL: cfg.Export.CacheTTL}, logr, nil, nil, teacherRepo)
		exportHandler = internalhandler.NewExportHandler(exportSvc)
	}

	if schedulerHandler != nil {
		timetables := api.Group("/timetables")
		timetables.POST("/generate", schedulerHandler.Generate)
		timetables.POST("/generate-async", schedulerHandler.GenerateAsync)
		timetables.GET("/generate-async/:jobId", schedulerHandler.GenerateAsyncResult)
		timetables.POST("/save", schedulerHandler.Save)
		timetables.GET("", schedulerHandler.List)
		timetables.GET("/:id/slots", schedulerHandler.Slots)
		timetables.GET("/:id/teacher/:teacherId", schedulerHandler.TeacherView)
		timetables.GET("/:id/venue/:venueId", schedulerHandler.VenueView)
		timetables.DELETE("/:id", schedulerHandler.Delete)

		if exportHandler != nil {
			timetables.GET("/:id/export.csv", exportHandler.CSV)
			timetables.GET("/:id/export.pdf", exportHandler.PDF)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerPprof(r *gin.Engine) {
	group := r.Group("/debug/pprof")
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	group.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	group.GET("/block", gin.WrapH(pprof.Handler("block")))
	group.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	group.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	group.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	group.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}
