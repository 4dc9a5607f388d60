package httpserver

import (
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	customMiddleware "github.com/avatarctic/voter-email/go/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/metrics"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	AdminAPIKey    string
}

type ServerDeps struct {
	VoterEmailService   ports.VoterEmailService
	Reconciler          ports.EmailReconciler
	VerificationService ports.EmailVerificationService
	ContactAugmentation ports.ContactAugmentationService
	APIUsage            ports.APIUsageCounter
	AuditService        ports.AuditService
	RateLimiter         ports.RequestLimiter
	HealthCheckers      []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	voterEmails    ports.VoterEmailService
	reconciler     ports.EmailReconciler
	verification   ports.EmailVerificationService
	augmentation   ports.ContactAugmentationService
	apiUsage       ports.APIUsageCounter
	auditSvc       ports.AuditService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		voterEmails:    deps.VoterEmailService,
		reconciler:     deps.Reconciler,
		verification:   deps.VerificationService,
		augmentation:   deps.ContactAugmentation,
		apiUsage:       deps.APIUsage,
		auditSvc:       deps.AuditService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiter,
			logger,
			serverConfig.AdminAPIKey,
			metrics.HTTPRequestsTotal,
			metrics.HTTPRequestDuration,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
