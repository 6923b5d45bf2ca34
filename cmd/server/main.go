package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/config"
	"github.com/smarthive/community-backend/internal/database"
	"github.com/smarthive/community-backend/internal/handlers"
	"github.com/smarthive/community-backend/internal/metrics"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
	"github.com/smarthive/community-backend/pkg/jwt"
	"github.com/smarthive/community-backend/pkg/mailer"
	"github.com/smarthive/community-backend/pkg/realtime"
	"github.com/smarthive/community-backend/pkg/upload"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartHive Community Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(migrateCtx, db, logger)
		cancelMigrate()
		if err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	metrics.Register()

	// Real-time fan-out
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	hub := realtime.NewHub(logger)
	hub.SetObserver(metrics.ObserveDelivery)

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = realtime.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		pingCtx, cancelPing := context.WithTimeout(rootCtx, 5*time.Second)
		err := realtime.Ping(pingCtx, redisClient)
		cancelPing()
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}

		relay := realtime.NewRedisRelay(redisClient, cfg.Redis.Channel, logger)
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(rootCtx, hub.DeliverRemote); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Redis relay stopped")
			}
		}()
		logger.WithField("channel", cfg.Redis.Channel).Info("Redis relay enabled")
	} else {
		logger.Info("Redis not configured, fan-out limited to this instance")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	var sender mailer.Sender
	if cfg.SMTP.Mode == "production" {
		logger.WithField("host", cfg.SMTP.Host).Info("Email delivery via SMTP")
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			FromName: cfg.SMTP.FromName,
		})
	} else {
		logger.Info("Email in development mode (messages are logged, not sent)")
		sender = mailer.NewLogSender(logger)
	}

	images, err := upload.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		logger.Fatalf("Failed to prepare upload directory: %v", err)
	}

	dispatcher := services.NewDispatcher(logger, 4, 256, 30*time.Second)
	location := cfg.BookingLocation()

	userRepository := database.NewUserRepository(db)
	flatRepository := database.NewFlatRepository(db)
	amenityRepository := database.NewAmenityRepository(db)
	unknownVisitorRepository := database.NewUnknownVisitorRepository(db)
	knownVisitorRepository := database.NewKnownVisitorRepository(db)
	announcementRepository := database.NewAnnouncementRepository(db)
	maintenanceRepository := database.NewMaintenanceRepository(db)

	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)
	rateLimitService := services.NewRateLimitService(db, services.RateLimitConfig{
		MaxIPRequests: cfg.RateLimit.VisitorRequests,
		IPWindow:      cfg.RateLimit.VisitorWindow,
	})
	notificationService := services.NewNotificationService(sender, userRepository, cfg.SMTP.MaintenanceEmail, cfg.Server.BaseURL, logger)

	bookingService := services.NewBookingService(userRepository, amenityRepository, dispatcher, hub, location, cfg.Booking.LockTimeout, logger)
	visitorService := services.NewVisitorService(unknownVisitorRepository, images, notificationService, dispatcher, hub, logger)
	knownVisitorService := services.NewKnownVisitorService(knownVisitorRepository, notificationService, dispatcher, hub, location, logger)
	userService := services.NewUserService(userRepository, flatRepository, jwtService, cfg.Security.BcryptCost, logger)
	adminAuthService := services.NewAdminAuthService(cfg.Admin.Username, cfg.Admin.Password, userRepository, notificationService, dispatcher, jwtService, logger)
	announcementService := services.NewAnnouncementService(announcementRepository, notificationService, dispatcher, logger)
	maintenanceService := services.NewMaintenanceService(maintenanceRepository, userRepository, images, notificationService, dispatcher, location, logger)

	// Initialize and start cron service
	cronService := services.NewCronService(amenityRepository, rateLimitService, auditService, cfg.Booking.RetentionDays, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started")

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService, logger)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService, auditService, logger)
	amenityHandler := handlers.NewAmenityHandler(bookingService, auditService, logger)
	visitorHandler := handlers.NewVisitorHandler(visitorService, knownVisitorService, auditService, logger)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService, logger)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenanceService, logger)
	auditLogHandler := handlers.NewAuditLogHandler(auditService, logger)
	flatHandler := handlers.NewFlatHandler(flatRepository, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.CORS.AllowedOrigins, logger)

	var redisPinger handlers.Pinger
	if redisClient != nil {
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return realtime.Ping(ctx, redisClient)
		})
	}
	healthHandler := handlers.NewHealthHandler(version, db, redisPinger, hub.ClientCount)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	if containsWildcard(cfg.CORS.AllowedOrigins) {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static(cfg.Upload.PublicPrefix, images.Dir())

	requireAuth := middleware.AuthMiddleware(jwtService, logger)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")
	{
		api.GET("/ws", wsHandler.Serve)
		api.GET("/flats", flatHandler.List)

		users := api.Group("/users")
		{
			users.POST("/register", authHandler.Register)
			users.POST("/login", authHandler.Login)
			users.POST("/refresh", authHandler.RefreshToken)

			usersProtected := users.Group("")
			usersProtected.Use(requireAuth)
			{
				usersProtected.GET("/profile", authHandler.GetProfile)
				usersProtected.PUT("/profile", authHandler.UpdateProfile)
			}
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", adminAuthHandler.Login)

			adminProtected := admin.Group("")
			adminProtected.Use(requireAuth, requireAdmin)
			{
				adminProtected.GET("/pending-users", adminAuthHandler.PendingUsers)
				adminProtected.POST("/approve-user", adminAuthHandler.DecideUser)
				adminProtected.GET("/audit-logs", auditLogHandler.List)
			}
		}

		amenities := api.Group("/amenities")
		{
			amenities.GET("", amenityHandler.ListAmenities)
			amenities.POST("/book", requireAuth, amenityHandler.BookAmenity)
		}

		visitor := api.Group("/visitor")
		{
			// Gate tablets are not logged in; submissions are limited per client IP
			visitor.POST("/unknown", middleware.SubmissionRateLimit(rateLimitService, auditService, logger), visitorHandler.SubmitUnknown)

			visitorProtected := visitor.Group("")
			visitorProtected.Use(requireAuth)
			{
				visitorProtected.GET("/pending", visitorHandler.ListPending)
				visitorProtected.PUT("/approve/:id", visitorHandler.Approve)
				visitorProtected.PUT("/reject/:id", visitorHandler.Reject)
				visitorProtected.GET("/history", visitorHandler.History)
				visitorProtected.POST("/create", visitorHandler.CreatePass)
				visitorProtected.POST("/verify", visitorHandler.VerifyPass)
				visitorProtected.GET("", visitorHandler.ListPasses)
			}
		}

		announcements := api.Group("/announcements")
		{
			announcements.GET("", announcementHandler.List)
			announcements.POST("/create", requireAuth, requireAdmin, announcementHandler.Create)
		}

		requests := api.Group("/requests")
		requests.Use(requireAuth)
		{
			requests.POST("", maintenanceHandler.Submit)
			requests.GET("/mine", maintenanceHandler.ListMine)
			requests.GET("", requireAdmin, maintenanceHandler.List)
			requests.PATCH("/:id/status", requireAdmin, maintenanceHandler.UpdateStatus)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// Drain queued broadcasts and emails before closing their backends
	if err := dispatcher.Close(ctx); err != nil {
		logger.WithError(err).Warn("Dispatcher did not drain before shutdown")
	}

	stopRoot()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close Redis client")
		}
	}

	logger.Info("Server exited successfully")
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
