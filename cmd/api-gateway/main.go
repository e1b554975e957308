package main

import (
	"context"
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

	_ "github.com/noah-isme/report-card-api/api/swagger"
	"github.com/noah-isme/report-card-api/internal/handler"
	"github.com/noah-isme/report-card-api/internal/middleware"
	"github.com/noah-isme/report-card-api/internal/models"
	"github.com/noah-isme/report-card-api/internal/repository"
	"github.com/noah-isme/report-card-api/internal/service"
	"github.com/noah-isme/report-card-api/pkg/cache"
	"github.com/noah-isme/report-card-api/pkg/config"
	"github.com/noah-isme/report-card-api/pkg/database"
	"github.com/noah-isme/report-card-api/pkg/jobs"
	"github.com/noah-isme/report-card-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/report-card-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/report-card-api/pkg/middleware/requestid"
)

// @title Report Card API
// @version 1.0.0
// @description Grade submission, review and report card generation service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	boundaryRepo := repository.NewGradeBoundaryRepository(db)
	templateRepo := repository.NewCommentTemplateRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	cardRepo := repository.NewReportCardRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SnapshotTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "report-card-api",
	})
	gradingConfigService := service.NewGradingConfigService(boundaryRepo, templateRepo, cacheService, cfg.Cache.SnapshotTTL, validate, logr)
	reportCardService := service.NewReportCardService(cardRepo, submissionRepo, studentRepo, classRepo, gradingConfigService, metrics, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var refreshes *service.ReportCardService
	if cfg.Refresh.Enabled {
		queue := jobs.NewQueue("report-card-refresh", reportCardService.HandleRefreshJob, jobs.QueueConfig{
			Workers:    cfg.Refresh.Workers,
			MaxRetries: cfg.Refresh.MaxRetries,
			RetryDelay: cfg.Refresh.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		reportCardService.SetQueue(queue)
		refreshes = reportCardService
	}
	submissionService := service.NewSubmissionService(submissionRepo, gradingConfigService, refreshEnqueuerOrNil(refreshes), validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	gradingConfigHandler := handler.NewGradingConfigHandler(gradingConfigService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	reportCardHandler := handler.NewReportCardHandler(reportCardService)
	metricsHandler := handler.NewMetricsHandler(metrics)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authService))

	boundaries := protected.Group("/grade-boundaries")
	{
		boundaries.GET("", gradingConfigHandler.ListBoundaries)
		boundaries.POST("", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.CreateBoundary)
		boundaries.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.UpdateBoundary)
		boundaries.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.DeleteBoundary)
	}

	templates := protected.Group("/comment-templates")
	{
		templates.GET("", gradingConfigHandler.ListTemplates)
		templates.POST("", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.CreateTemplate)
		templates.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.UpdateTemplate)
		templates.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), gradingConfigHandler.DeleteTemplate)
	}

	submissions := protected.Group("/submissions")
	{
		submissions.GET("", submissionHandler.List)
		submissions.GET("/:id", submissionHandler.Get)
		submissions.POST("", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Submit)
		submissions.PUT("/:id", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Update)
		submissions.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Delete)
		submissions.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher), middleware.Audit(userRepo, "submission.approve", "submissions"), submissionHandler.Approve)
		submissions.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher), middleware.Audit(userRepo, "submission.reject", "submissions"), submissionHandler.Reject)
	}

	cards := protected.Group("/report-cards")
	{
		cards.GET("", reportCardHandler.List)
		cards.POST("/generate", middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher), middleware.Audit(userRepo, "report_card.generate", "report_cards"), reportCardHandler.Generate)
		cards.GET("/student/:studentId/class/:classId", reportCardHandler.Get)
		cards.GET("/student/:studentId/class/:classId/pdf", reportCardHandler.Print)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("/:classId/report-cards/export", middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher), reportCardHandler.ExportClass)
	}

	protected.GET("/status", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Status)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

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
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// refreshEnqueuerOrNil avoids handing the submission service a typed nil.
func refreshEnqueuerOrNil(svc *service.ReportCardService) interface {
	EnqueueRefresh(studentID, classID string) error
} {
	if svc == nil {
		return nil
	}
	return svc
}
