package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-timetable-api/api/swagger"
	"github.com/noah-isme/school-timetable-api/internal/handler"
	"github.com/noah-isme/school-timetable-api/internal/middleware"
	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/repository"
	"github.com/noah-isme/school-timetable-api/internal/service"
	"github.com/noah-isme/school-timetable-api/pkg/cache"
	"github.com/noah-isme/school-timetable-api/pkg/config"
	"github.com/noah-isme/school-timetable-api/pkg/database"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
	"github.com/noah-isme/school-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-timetable-api/pkg/storage"
)

// @title School Timetable API
// @version 0.1.0
// @description Timetable scheduling and academic calendar engine
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, calendar cache disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Timetable.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid school timezone, using UTC", "timezone", cfg.Timetable.Timezone)
		location = time.UTC
	}

	yearRepo := repository.NewAcademicYearRepository(db)
	termRepo := repository.NewAcademicTermRepository(db)
	classRepo := repository.NewClassLevelRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()

	calendar := service.NewCalendarService(yearRepo, termRepo, cacheRepo, validate, logr, location, cfg.Timetable.CurrentYearCacheTTL)
	checker := service.NewConflictChecker(timetableRepo, cfg.Timetable.PeriodLengthMinutes, metrics, logr)
	attendance := service.NewAttendanceService(studentRepo, timetableRepo, calendar, logr)

	queue := jobs.NewQueue("attendance_recompute", service.RecomputeJobHandler(attendance), jobs.QueueConfig{
		Workers: 2,
		Logger:  logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	dispatcher := service.NewRecomputeDispatcher(queue, logr)

	timetable := service.NewTimetableService(timetableRepo, classRepo, subjectRepo, studentRepo, teacherRepo, calendar, checker, dispatcher, metrics, validate, logr)

	var exportSvc *service.ExportService
	var exportStore *storage.LocalStorage
	if cfg.Exports.Enabled {
		exportStore, err = storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(timetable, subjectRepo, teacherRepo, classRepo, exportStore, signer, logr)
	}

	if cfg.Reconciler.Enabled {
		var cleaner *storage.LocalStorage
		if cfg.Exports.Enabled {
			cleaner = exportStore
		}
		reconciler := newReconciler(calendar, cleaner, metrics, logr, cfg)
		reconciler.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	tokenValidator := middleware.NewTokenValidator(cfg.JWT.Secret)
	calendarHandler := handler.NewCalendarHandler(calendar)
	timetableHandler := handler.NewTimetableHandler(timetable)
	attendanceHandler := handler.NewAttendanceHandler(timetable, attendance)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenValidator))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	api.GET("/academic-years", calendarHandler.ListYears)
	api.POST("/academic-years", adminOnly, calendarHandler.CreateYear)
	api.GET("/academic-years/current", calendarHandler.CurrentYear)
	api.PUT("/academic-years/:id/current", adminOnly, calendarHandler.ChangeCurrentYear)
	api.GET("/academic-years/:id/terms", calendarHandler.ListTerms)
	api.POST("/academic-years/:id/terms", adminOnly, calendarHandler.CreateTerm)

	api.POST("/timetable", adminOnly, timetableHandler.Create)
	api.GET("/timetable/:id", timetableHandler.Get)
	api.PUT("/timetable/:id", adminOnly, timetableHandler.Update)
	api.DELETE("/timetable/:id", adminOnly, timetableHandler.Delete)
	api.PUT("/timetable/:id/periods/:index/attendance", staff, attendanceHandler.Mark)

	api.GET("/classes/:id/subclasses/:letter/timetable", timetableHandler.ListForClass)
	api.GET("/teachers/:id/timetable", middleware.RBAC("ADMIN", "TEACHER", "SELF"), timetableHandler.ListForTeacher)
	api.GET("/students/:id/timetable", middleware.RBAC("ADMIN", "TEACHER", "SELF"), timetableHandler.ListForStudent)
	api.GET("/students/:id/attendance-rate", middleware.RBAC("ADMIN", "TEACHER", "SELF"), attendanceHandler.Rate)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		api.POST("/classes/:id/subclasses/:letter/timetable/export", staff, exportHandler.Export)
		r.GET(cfg.APIPrefix+"/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

func newReconciler(calendar *service.CalendarService, exports *storage.LocalStorage, metrics *service.MetricsService, logr *zap.Logger, cfg *config.Config) *service.Reconciler {
	if exports == nil {
		return service.NewReconciler(calendar, nil, metrics, logr, cfg.Reconciler.Interval, cfg.Exports.SignedURLTTL)
	}
	return service.NewReconciler(calendar, exports, metrics, logr, cfg.Reconciler.Interval, cfg.Exports.SignedURLTTL)
}
