package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	config "github.com/avatarctic/voter-email/go/configs"
	"github.com/avatarctic/voter-email/go/internal/application/services"
	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/email"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/redis"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// env holds the connections and services a command needs. Close releases them.
type env struct {
	logger       *logrus.Logger
	voters       ports.VoterRepository
	emails       ports.EmailAddressRepository
	reconciler   ports.EmailReconciler
	verification ports.EmailVerificationService
	augmentation ports.ContactAugmentationService
	audit        ports.AuditService
	closers      []func() error
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func openDatabase() (*config.Config, *logrus.Logger, *db.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, logger, database, nil
}

func newEnv() (*env, error) {
	cfg, logger, database, err := openDatabase()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	voters := repositories.NewCachingVoterRepository(repositories.NewVoterRepository(database, logger), redis.NewRedisCache(redisClient, "appcache"), 3*time.Minute)
	emails := repositories.NewEmailAddressRepository(database, logger)
	outbound := repositories.NewOutboundRepository(database, logger)
	contacts := repositories.NewContactEmailRepository(database, logger)
	usage := repositories.NewAPIUsageRedisRepository(redisClient, "apiusage", logger)

	verifier := email.NewValidationClient(&email.ValidationConfig{
		APIKey:  cfg.Email.ValidationAPIKey,
		Host:    cfg.Email.SendGridHost,
		Timeout: cfg.Verification.HTTPTimeout,
	}, email.NewThrottle(cfg.Verification.RatePerSecond), logger)

	return &env{
		logger:     logger,
		voters:     voters,
		emails:     emails,
		reconciler: services.NewEmailReconciler(voters, emails, outbound, logger),
		verification: services.NewEmailVerificationService(verifier, contacts, usage, &services.VerificationConfig{
			BlockSize:       cfg.Verification.BlockSize,
			Workers:         cfg.Verification.Workers,
			MaxLoops:        cfg.Verification.MaxLoops,
			MaxFailedBlocks: cfg.Verification.MaxFailedBlocks,
			Cooldown:        cfg.Verification.Cooldown,
		}, logger),
		augmentation: services.NewContactAugmentationService(contacts, emails, logger),
		audit:        services.NewAuditService(repositories.NewAuditRepository(database, logger), logger),
		closers:      []func() error{redisClient.Close, database.Close},
	}, nil
}

func (e *env) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			e.logger.WithError(err).Warn("close failed")
		}
	}
}

// record writes a CLI action to the audit trail. A failed write is only logged.
func (e *env) record(ctx context.Context, action audit.AuditAction, voterID uuid.UUID, details any) {
	if err := e.audit.LogAction(ctx, &audit.CreateAuditLogRequest{
		VoterID:   &voterID,
		Action:    action,
		Resource:  audit.ResourceVoter,
		Details:   details,
		UserAgent: "emailctl",
	}); err != nil {
		e.logger.WithError(err).Warn("failed to record audit entry")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
