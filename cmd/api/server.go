package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	_ "amarms/api/swagger" // swagger docs
	"amarms/internal/config"
	"amarms/internal/database"
	"amarms/internal/handler"
	"amarms/internal/logging"
	"amarms/internal/mailer"
	"amarms/internal/middleware"
	"amarms/internal/repository"
	"amarms/internal/service"
	"amarms/internal/storage"
	"amarms/internal/token"
	"amarms/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 10 * time.Second

// serve wires repositories, services and handlers, then runs until ctx ends.
func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DB.DSN(), !cfg.Release())
	if err != nil {
		return err
	}
	logging.Logger.Info("Connected to PostgreSQL successfully.")
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	local, err := storage.NewLocalStore(cfg.StorageDir, cfg.StorageBaseURL)
	if err != nil {
		return err
	}
	store := storage.NewBreakerStore("object-storage", local)
	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	auth := middleware.NewAuth(tokens, cfg.Release(), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mail := mailer.NewLogMailer(logging.Logger)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORSOrigins)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, tokenRepo, auditRepo, txManager, tokens, mail, cfg.RefreshTokenTTL)
	memberService := service.NewMemberService(userRepo, tokenRepo, auditRepo, txManager)
	projectService := service.NewProjectService(projectRepo, taskRepo, userRepo, resourceRepo, auditRepo, txManager)
	milestoneService := service.NewMilestoneService(milestoneRepo, projectRepo, taskRepo, userRepo, auditRepo, txManager)
	taskService := service.NewTaskService(taskRepo, projectRepo, milestoneRepo, userRepo, auditRepo, txManager, store, wsHub)
	resourceService := service.NewResourceService(resourceRepo, venueRepo, auditRepo, txManager, store)
	campaignService := service.NewCampaignService(campaignRepo, projectRepo, auditRepo, txManager, store)
	commentService := service.NewCommentService(commentRepo, projectRepo, taskRepo, auditRepo, txManager)
	reportService := service.NewReportService(reportRepo, taskRepo, resourceRepo, campaignRepo)
	calendarService := service.NewCalendarService(taskRepo, milestoneRepo, campaignRepo)
	auditService := service.NewAuditService(auditRepo)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))
	router.Use(auth.Authenticate())

	// Uploaded files are served straight from disk when the base URL is local
	if strings.HasPrefix(cfg.StorageBaseURL, "/") {
		router.Static(cfg.StorageBaseURL, local.Root())
	}

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "OK",
			"storage":           store.State(),
			"websocket_clients": wsHub.ClientCount(),
		})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, tokens, c)
	})

	// API Routing
	api := router.Group("/api")
	for _, h := range []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewAuthHandler(authService, auth),
		handler.NewPermissionHandler(auth),
		handler.NewMemberHandler(memberService, auth),
		handler.NewProjectHandler(projectService, milestoneService, auth),
		handler.NewTaskHandler(taskService, auth),
		handler.NewResourceHandler(resourceService, auth),
		handler.NewCampaignHandler(campaignService, auth),
		handler.NewCommentHandler(commentService, auth),
		handler.NewReportHandler(reportService, calendarService, auth),
		handler.NewAuditHandler(auditService, auth),
	} {
		h.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
