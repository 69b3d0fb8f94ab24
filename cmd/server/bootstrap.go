package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/api"
	"github.com/charlesng35/innkeep/internal/app"
	"github.com/charlesng35/innkeep/internal/app/maintenance"
	iauth "github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/internal/cache"
	"github.com/charlesng35/innkeep/internal/database"
	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/monitoring"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/realtime"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/internal/security"
	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisClient
	Broker    *events.AMQPPublisher
	Hub       *realtime.Hub
	Health    *monitoring.HealthManager
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store, err := repository.NewStore(stack.DB)
	if err != nil {
		return nil, err
	}
	created, err := services.Bootstrap(ctx, store, cfg.Bootstrap.SuperadminAccount())
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("superadmin account created; password reset required on first login",
			zap.String("username", strings.TrimSpace(cfg.Bootstrap.Username)))
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Health = monitoring.NewHealthManager(cfg.Cache.Redis.Timeout)
	stack.Health.Register("database", monitoring.DatabaseProbe(stack.DB))
	if cfg.Cache.Redis.Enabled {
		var pinger monitoring.Pinger
		if stack.Redis != nil {
			pinger = stack.Redis
		}
		stack.Health.RegisterOptional("redis", monitoring.PingProbe(pinger))
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	evaluator, err := permissions.NewStoreEvaluator(store)
	if err != nil {
		return nil, err
	}
	auditSvc, err := services.NewAuditService(stack.DB, evaluator)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(auditSvc,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithAuditSchedule(cfg.Maintenance.Schedule),
		maintenance.WithCacheStore(dbStore),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Hub = realtime.NewHub()
	publisher := events.NewFanout().Add("board", realtime.NewBookingBoard(stack.Hub))
	if cfg.Events.AMQP.Enabled {
		stack.Broker, err = events.NewAMQPPublisher(cfg.Events.AMQPPublisherConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise amqp publisher: %w", err)
		}
		publisher.Add("amqp", stack.Broker)
		log.Info("booking events forwarded to amqp", zap.String("exchange", cfg.Events.AMQP.Exchange))
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	default:
		stack.RateStore = middleware.NewDatabaseRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(api.Options{
		DB:        stack.DB,
		JWT:       jwtSvc,
		Config:    cfg,
		Publisher: publisher,
		Hub:       stack.Hub,
		RateStore: stack.RateStore,
		Health:    stack.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	for _, check := range security.NewChecker(stack.DB, jwtSvc, cfg).Run(ctx).Failing() {
		log.Warn("security check",
			zap.String("id", check.ID),
			zap.String("status", string(check.Status)),
			zap.String("message", check.Message))
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Broker != nil {
		if err := s.Broker.Close(); err != nil {
			log.Warn("amqp shutdown", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConnConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(dbCfg.Driver)))
	return db, nil
}
