package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"status-service/internal/client"
	"status-service/internal/config"
	"status-service/internal/database"
	"status-service/internal/handler"
	"status-service/internal/job"
	"status-service/internal/metrics"
	"status-service/internal/middleware"
	"status-service/internal/pubsub"
	"status-service/internal/repository"
	"status-service/internal/router"
	"status-service/internal/service"
)

const (
	dbStatsInterval  = 15 * time.Second
	migrationRetries = 3
)

// app serves the operational routes until a database is attached, then swaps
// in the full router.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	redis     *redis.Client
	validator middleware.TokenValidator
	scheduler *job.Scheduler

	handler atomic.Value // http.Handler

	mu        sync.Mutex
	stopStats chan struct{}
}

func newApp(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, rdb *redis.Client) *app {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		redis:     rdb,
		validator: middleware.NewAuthServiceValidator(cfg.AuthAPI.BaseURL, cfg.JWT.Secret, cfg.AuthAPI.Timeout, logger),
		scheduler: job.NewScheduler(logger),
	}
	a.handler.Store(http.Handler(router.Setup(a.routerConfig())))
	return a
}

func (a *app) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.Load().(http.Handler).ServeHTTP(w, r)
}

func (a *app) routerConfig() router.Config {
	return router.Config{
		Logger:      a.logger,
		Metrics:     a.metrics,
		BasePath:    a.cfg.Server.BasePath,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Validator:   a.validator,
		GetDB:       database.GetDB,
		Redis:       a.redis,
	}
}

// attachDB wires the presence domain on top of db and starts the background jobs
func (a *app) attachDB(db *gorm.DB) error {
	if err := database.SafeAutoMigrateWithRetry(db, a.logger, migrationRetries); err != nil {
		return err
	}
	if err := database.RegisterMetricsCallbacks(db, a.metrics); err != nil {
		a.logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}

	statusRepo := repository.NewStatusRepository(db)
	membership := a.membershipChecker(db)

	var (
		publisher  service.EventPublisher
		subscriber handler.Subscriber
	)
	if a.redis != nil {
		broker := pubsub.NewRedisBroker(a.redis, a.logger)
		publisher = broker
		subscriber = broker
	} else {
		a.logger.Warn("Redis not configured, presence events and the live feed are disabled")
	}

	statusService := service.NewStatusService(
		statusRepo,
		membership,
		publisher,
		service.NewStatusServiceConfig(a.cfg.Presence),
		a.metrics,
		a.logger,
	)

	gauges := job.NewPresenceGaugeJob(statusRepo, a.cfg.Presence.StaleWindow, a.metrics, a.logger, nil)
	if err := a.scheduler.Add("presence-gauges", a.cfg.Presence.GaugeSchedule, gauges); err != nil {
		return err
	}

	rc := a.routerConfig()
	rc.StatusService = statusService
	rc.Membership = membership
	rc.Subscriber = subscriber

	a.mu.Lock()
	a.stopStats = database.StartDBStatsCollector(db, a.metrics, dbStatsInterval)
	a.mu.Unlock()

	a.scheduler.Start()
	a.handler.Store(http.Handler(router.Setup(rc)))

	a.logger.Info("Presence routes enabled",
		zap.Bool("live_feed", rc.Subscriber != nil),
		zap.Bool("remote_membership", a.cfg.UserAPI.BaseURL != ""),
	)
	return nil
}

func (a *app) membershipChecker(db *gorm.DB) service.MembershipChecker {
	var checker service.MembershipChecker
	if a.cfg.UserAPI.BaseURL != "" {
		userClient := client.NewUserClient(a.cfg.UserAPI.BaseURL, a.cfg.UserAPI.Timeout, a.metrics, a.logger)
		checker = service.NewRemoteMembershipChecker(userClient)
	} else {
		checker = service.NewLocalMembershipChecker(repository.NewMemberRepository(db))
	}
	return service.NewCachedMembershipChecker(checker, a.redis, a.cfg.Presence.MembershipCacheTTL, a.metrics, a.logger)
}

// onConnect is the database.NewAsync callback
func (a *app) onConnect(db *gorm.DB) {
	if err := a.attachDB(db); err != nil {
		a.logger.Error("Failed to enable presence routes", zap.Error(err))
	}
}

// shutdown stops background work and releases connections
func (a *app) shutdown(ctx context.Context) {
	a.scheduler.Stop(ctx)

	a.mu.Lock()
	if a.stopStats != nil {
		close(a.stopStats)
		a.stopStats = nil
	}
	a.mu.Unlock()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if db := database.GetDB(); db != nil {
		if err := database.Close(db); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
