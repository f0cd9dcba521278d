package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"referral-deposit-go/internal/accrual"
	"referral-deposit-go/internal/api"
	"referral-deposit-go/internal/database"
	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/models"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services bundles everything a process needs to serve the ledger
type Services struct {
	DbService *database.Service
	Locker    lock.Locker
	Ledger    *api.LedgerService
	Accrual   *accrual.Engine

	redisClient *redis.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{DbService: dbService}

	if cfg.Lock.RedisAddr != "" {
		zap.L().Info("Using Redis for per-user locks", zap.String("addr", cfg.Lock.RedisAddr))
		services.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})
		if err := services.redisClient.Ping(ctx).Err(); err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Lock.RedisAddr, err)
		}
		locker, err := lock.NewRedisLocker(services.redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Locker = locker
	} else {
		zap.L().Info("Using in-process per-user locks")
		services.Locker = lock.NewMemoryLocker()
	}

	services.Ledger = api.NewLedgerService(dbService, services.Locker, cfg)
	services.Accrual = accrual.NewEngine(dbService, services.Locker, cfg.Plan)
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.redisClient != nil {
		if err := cs.redisClient.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
