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

	_ "github.com/gradhub/thesis-api/api/swagger"
	"github.com/gradhub/thesis-api/internal/handler"
	"github.com/gradhub/thesis-api/internal/middleware"
	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/repository"
	"github.com/gradhub/thesis-api/internal/service"
	"github.com/gradhub/thesis-api/pkg/cache"
	"github.com/gradhub/thesis-api/pkg/config"
	"github.com/gradhub/thesis-api/pkg/database"
	"github.com/gradhub/thesis-api/pkg/jobs"
	"github.com/gradhub/thesis-api/pkg/logger"
	corsmiddleware "github.com/gradhub/thesis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gradhub/thesis-api/pkg/middleware/requestid"
	"github.com/gradhub/thesis-api/pkg/storage"
)

// @title Thesis Hub API
// @version 1.0.0
// @description Thesis supervision and progress tracking service
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	documentStore, err := storage.NewLocalStorage(cfg.Storage.DocumentsDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	imageStore, err := storage.NewLocalStorage(cfg.Storage.ImagesDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init image storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, metricsSvc, logr)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	thesisRepo := repository.NewThesisRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc := service.NewNotificationService(notificationRepo, metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		Logger:     logr,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	thesisSvc := service.NewThesisService(thesisRepo, studentRepo, facultyRepo, notificationSvc, validate, logr)
	requestSvc := service.NewRequestService(requestRepo, thesisRepo, studentRepo, facultyRepo, notificationSvc, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, submissionRepo, thesisRepo, studentRepo, facultyRepo, documentStore, cacheRepo, cfg.Directory.CacheTTL, notificationSvc, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, thesisRepo, studentRepo, facultyRepo, notificationSvc, validate, logr)

	facultySvc := service.NewFacultyService(facultyRepo, nil, cfg.Directory.CacheTTL, logr)
	if cfg.Directory.CacheEnabled {
		facultySvc = service.NewFacultyService(facultyRepo, cacheRepo, cfg.Directory.CacheTTL, logr)
	}
	profileSvc := service.NewProfileService(studentRepo, facultyRepo, imageStore, facultySvc, validate, logr)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportSvc = service.NewReportService(reportRepo, thesisRepo, taskRepo, submissionRepo, studentRepo, facultyRepo, reportStore, signer, metricsSvc, cfg.Reports.RetentionTTL, validate, logr, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc.Start(ctx)
		defer reportSvc.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Storage.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc,
		handler.NewAuthHandler(authSvc),
		handler.NewThesisHandler(thesisSvc),
		handler.NewRequestHandler(requestSvc),
		handler.NewTaskHandler(taskSvc),
		handler.NewAppointmentHandler(appointmentSvc),
		handler.NewFacultyHandler(facultySvc),
		handler.NewProfileHandler(profileSvc),
		handler.NewNotificationHandler(notificationSvc),
		handler.NewStaticHandler(documentStore, imageStore),
		reportHandlerOrNil(reportSvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func reportHandlerOrNil(reports *service.ReportService) *handler.ReportHandler {
	if reports == nil {
		return nil
	}
	return handler.NewReportHandler(reports)
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	auth *handler.AuthHandler,
	theses *handler.ThesisHandler,
	requests *handler.RequestHandler,
	tasks *handler.TaskHandler,
	appointments *handler.AppointmentHandler,
	faculties *handler.FacultyHandler,
	profiles *handler.ProfileHandler,
	notifications *handler.NotificationHandler,
	static *handler.StaticHandler,
	reports *handler.ReportHandler,
) {
	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.Refresh)

		protected := authGroup.Group("", middleware.JWT(authSvc))
		protected.POST("/logout", auth.Logout)
		protected.POST("/change-password", auth.ChangePassword)
		protected.GET("/me", auth.Me)
	}

	thesisGroup := api.Group("/theses")
	{
		thesisGroup.GET("/:id", middleware.OptionalJWT(authSvc), theses.Get)

		authed := thesisGroup.Group("", middleware.JWT(authSvc))
		authed.GET("", theses.ListMine)
		authed.POST("", middleware.RequireRoles(models.RoleStudent), theses.Create)
		authed.POST("/join", middleware.RequireRoles(models.RoleStudent), theses.Join)
		authed.PUT("/:id", theses.Update)
		authed.POST("/:id/join-password", theses.RotatePassword)
		authed.PATCH("/:id/status", middleware.RequireRoles(models.RoleFaculty), theses.UpdateStatus)
		authed.DELETE("/:id", theses.Delete)
		authed.POST("/:id/members", middleware.RequireRoles(models.RoleStudent), theses.AddMember)
		authed.DELETE("/:id/members/:studentId", theses.RemoveMember)

		authed.GET("/:id/supervisor-requests", requests.ListByThesis)
		authed.GET("/:id/tasks", tasks.ListByThesis)
		authed.GET("/:id/tasks/stats", tasks.Stats)
		authed.GET("/:id/appointments", appointments.ListByThesis)
		if reports != nil {
			authed.POST("/:id/reports", reports.Request)
		}
	}

	requestGroup := api.Group("/supervisor-requests", middleware.JWT(authSvc))
	{
		requestGroup.POST("", middleware.RequireRoles(models.RoleStudent), requests.Create)
		requestGroup.GET("/inbox", middleware.RequireRoles(models.RoleFaculty), requests.Inbox)
		requestGroup.PATCH("/:id", middleware.RequireRoles(models.RoleFaculty), requests.Decide)
		requestGroup.DELETE("/:id", middleware.RequireRoles(models.RoleStudent), requests.Withdraw)
	}

	taskGroup := api.Group("/tasks", middleware.JWT(authSvc))
	{
		taskGroup.POST("", middleware.RequireRoles(models.RoleFaculty), tasks.Create)
		taskGroup.PUT("/:id", middleware.RequireRoles(models.RoleFaculty), tasks.Update)
		taskGroup.DELETE("/:id", middleware.RequireRoles(models.RoleFaculty), tasks.Delete)
		taskGroup.POST("/:id/submissions", middleware.RequireRoles(models.RoleStudent), tasks.Submit)
	}

	api.POST("/submissions/:id/feedback", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleFaculty), tasks.Feedback)

	appointmentGroup := api.Group("/appointments", middleware.JWT(authSvc))
	{
		appointmentGroup.POST("", middleware.RequireRoles(models.RoleStudent), appointments.Create)
		appointmentGroup.GET("/inbox", middleware.RequireRoles(models.RoleFaculty), appointments.Inbox)
		appointmentGroup.PATCH("/:id", appointments.Update)
		appointmentGroup.DELETE("/:id", appointments.Delete)
	}

	facultyGroup := api.Group("/faculties", middleware.JWT(authSvc))
	{
		facultyGroup.GET("", faculties.List)
		facultyGroup.GET("/:id", faculties.Get)
	}

	profileGroup := api.Group("/profile", middleware.JWT(authSvc))
	{
		profileGroup.GET("", profiles.Get)
		profileGroup.PUT("", profiles.Update)
		profileGroup.POST("/image", profiles.UploadImage)
		profileGroup.POST("/contributions", middleware.RequireRoles(models.RoleStudent), profiles.AddContribution)
		profileGroup.PUT("/contributions/:id", middleware.RequireRoles(models.RoleStudent), profiles.UpdateContribution)
		profileGroup.DELETE("/contributions/:id", middleware.RequireRoles(models.RoleStudent), profiles.RemoveContribution)
	}

	api.GET("/notifications", middleware.JWT(authSvc), notifications.List)

	staticGroup := api.Group("/static")
	{
		staticGroup.GET("/document/:filename", middleware.JWT(authSvc), static.Document)
		staticGroup.GET("/profile-image/:filename", static.ProfileImage)
	}

	if reports != nil {
		api.GET("/reports/download/:token", reports.Download)
		api.GET("/reports/:id", middleware.JWT(authSvc), reports.Get)
	}
}
