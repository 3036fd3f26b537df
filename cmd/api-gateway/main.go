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

	_ "github.com/noah-isme/campus-booking-api/api/swagger"
	"github.com/noah-isme/campus-booking-api/internal/handler"
	"github.com/noah-isme/campus-booking-api/internal/middleware"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/internal/repository"
	"github.com/noah-isme/campus-booking-api/internal/service"
	"github.com/noah-isme/campus-booking-api/pkg/cache"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	"github.com/noah-isme/campus-booking-api/pkg/database"
	"github.com/noah-isme/campus-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-booking-api/pkg/storage"
)

// @title Campus Booking API
// @version 1.0.0
// @description Class scheduling, room booking and approval workflows
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	roomRepo := repository.NewRoomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	changeRepo := repository.NewChangeRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Booking.AvailabilityCacheTTL, logr, cfg.Booking.CacheEnabled)
	auditDispatcher := service.NewAuditDispatcher(auditRepo, logr)
	auditDispatcher.Start(ctx)
	defer auditDispatcher.Stop()

	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret}, logr)
	conflictSvc := service.NewConflictService(sessionRepo, loanRepo, metricsSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(sessionRepo, loanRepo, cacheSvc, cfg.Booking.AvailabilityCacheTTL, logr)
	generatorSvc := service.NewSessionGeneratorService(templateRepo, sessionRepo, conflictSvc, db, cacheSvc, auditDispatcher, metricsSvc, cfg.Booking, validate, logr)
	loanSvc := service.NewLoanService(loanRepo, roomRepo, conflictSvc, db, cacheSvc, auditDispatcher, metricsSvc, cfg.Booking, validate, logr)
	changeSvc := service.NewChangeRequestService(changeRepo, templateRepo, sessionRepo, conflictSvc, db, cacheSvc, auditDispatcher, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, db, cacheSvc, auditDispatcher, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, auditDispatcher, validate, logr)
	templateSvc := service.NewTemplateService(templateRepo, courseRepo, roomRepo, validate, logr)

	exportStorage, err := storage.NewLocalStorage("./exports")
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, 24*time.Hour)
	exportSvc := service.NewExportService(sessionRepo, loanRepo, exportStorage, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, cfg.Env != config.EnvProduction)
	roomHandler := handler.NewRoomHandler(roomSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	bookingHandler := handler.NewBookingHandler(conflictSvc, generatorSvc, availabilitySvc)
	loanHandler := handler.NewLoanHandler(loanSvc)
	changeHandler := handler.NewChangeRequestHandler(changeSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/dev-token", authHandler.DevToken)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	rooms := protected.Group("/rooms")
	{
		rooms.GET("", roomHandler.List)
		rooms.GET("/:id", roomHandler.Get)
		rooms.GET("/:id/availability", bookingHandler.Availability)
		rooms.POST("", adminOnly, roomHandler.Create)
		rooms.PUT("/:id", adminOnly, roomHandler.Update)
		rooms.GET("/:id/dependencies", adminOnly, roomHandler.Dependencies)
		rooms.DELETE("/:id", adminOnly, roomHandler.Delete)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", adminOnly, courseHandler.Create)
		courses.PUT("/:id", adminOnly, courseHandler.Update)
		courses.DELETE("/:id", adminOnly, courseHandler.Delete)
	}

	templates := protected.Group("/templates")
	{
		templates.GET("", templateHandler.List)
		templates.GET("/:id", templateHandler.Get)
		templates.POST("", adminOnly, templateHandler.Create)
		templates.PUT("/:id", adminOnly, templateHandler.Update)
		templates.DELETE("/:id", adminOnly, templateHandler.Delete)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", bookingHandler.ListSessions)
		sessions.GET("/:id", bookingHandler.GetSession)
		sessions.POST("/generate", adminOnly, bookingHandler.Generate)
	}

	protected.POST("/bookings/check", bookingHandler.CheckConflict)

	loans := protected.Group("/loans")
	{
		loans.GET("", loanHandler.List)
		loans.GET("/:id", loanHandler.Get)
		loans.POST("", loanHandler.Create)
		loans.POST("/:id/accept", adminOnly, loanHandler.Accept)
		loans.POST("/:id/reject", adminOnly, loanHandler.Reject)
	}

	changes := protected.Group("/change-requests")
	{
		changes.GET("", changeHandler.List)
		changes.GET("/:id", changeHandler.Get)
		changes.POST("", changeHandler.Create)
		changes.POST("/:id/confirm", adminOnly, changeHandler.Confirm)
		changes.DELETE("/:id", changeHandler.Withdraw)
	}

	exports := protected.Group("/exports")
	{
		exports.POST("/schedule", adminOnly, middleware.Audit(auditRepo, "SCHEDULE_EXPORT", "export"), exportHandler.Export)
	}
	api.GET("/exports/:token", exportHandler.Download)

	protected.GET("/metrics/snapshot", adminOnly, metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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
