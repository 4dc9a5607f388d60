package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/voter-email/go/configs"
	"github.com/avatarctic/voter-email/go/internal/application/services"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/email"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/health"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/httpserver"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/redis"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/repositories"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting voter email service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Redis backed counters
	rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)
	apiUsage := repositories.NewAPIUsageRedisRepository(redisClient, "apiusage", logger)
	redisCache := redis.NewRedisCache(redisClient, "appcache")

	// Database repositories
	voterRepo := repositories.NewCachingVoterRepository(repositories.NewVoterRepository(database, logger), redisCache, 3*time.Minute)
	deviceRepo := repositories.NewDeviceLinkRepository(database, logger)
	emailRepo := repositories.NewEmailAddressRepository(database, logger)
	outboundRepo := repositories.NewOutboundRepository(database, logger)
	contactRepo := repositories.NewContactEmailRepository(database, logger)
	auditRepo := repositories.NewAuditRepository(database, logger)

	// Email infrastructure
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		logger.Fatal("Failed to load email templates:", err)
	}
	delivery := email.NewSendGridDelivery(&email.DeliveryConfig{
		APIKey:  cfg.Email.SendGridAPIKey,
		Host:    cfg.Email.SendGridHost,
		Timeout: cfg.Verification.HTTPTimeout,
	}, outboundRepo, logger)
	verifier := email.NewValidationClient(&email.ValidationConfig{
		APIKey:  cfg.Email.ValidationAPIKey,
		Host:    cfg.Email.SendGridHost,
		Timeout: cfg.Verification.HTTPTimeout,
	}, email.NewThrottle(cfg.Verification.RatePerSecond), logger)

	// Services
	reconciler := services.NewEmailReconciler(voterRepo, emailRepo, outboundRepo, logger)
	dispatch := services.NewEmailDispatchService(emailRepo, outboundRepo, renderer, delivery, &services.DispatchConfig{
		SenderEmail:   cfg.Email.FromEmail,
		SenderName:    cfg.Email.FromName,
		WebAppRootURL: cfg.Email.WebAppRootURL,
		ServerRootURL: cfg.Email.ServerRootURL,
		CordovaScheme: cfg.Email.CordovaScheme,
	}, logger)
	verification := services.NewEmailVerificationService(verifier, contactRepo, apiUsage, &services.VerificationConfig{
		BlockSize:       cfg.Verification.BlockSize,
		Workers:         cfg.Verification.Workers,
		MaxLoops:        cfg.Verification.MaxLoops,
		MaxFailedBlocks: cfg.Verification.MaxFailedBlocks,
		Cooldown:        cfg.Verification.Cooldown,
	}, logger)
	augmentation := services.NewContactAugmentationService(contactRepo, emailRepo, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	voterEmails := services.NewVoterEmailService(deviceRepo, voterRepo, emailRepo, reconciler, dispatch, &services.DeviceCodeConfig{
		Lifetime:          cfg.DeviceCode.Lifetime,
		MaxFailedAttempts: cfg.DeviceCode.MaxFailedAttempts,
	}, logger)
	rateLimiter := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         cfg.RateLimit.KeyPrefix,
	}, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		AdminAPIKey:    cfg.Server.AdminAPIKey,
	}

	deps := httpserver.ServerDeps{
		VoterEmailService:   voterEmails,
		Reconciler:          reconciler,
		VerificationService: verification,
		ContactAugmentation: augmentation,
		APIUsage:            apiUsage,
		AuditService:        auditService,
		RateLimiter:         rateLimiter,
		HealthCheckers:      hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
