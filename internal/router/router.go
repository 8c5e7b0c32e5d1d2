package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"status-service/internal/handler"
	"status-service/internal/metrics"
	"status-service/internal/middleware"
	"status-service/internal/service"
)

// Config holds the router dependencies. With a nil StatusService only the
// health, metrics and swagger routes are mounted.
type Config struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	BasePath    string
	CORSOrigins string

	Validator     middleware.TokenValidator
	StatusService service.StatusService
	Membership    service.MembershipChecker
	Subscriber    handler.Subscriber

	GetDB func() *gorm.DB
	Redis *redis.Client
}

// Setup builds the gin engine
func Setup(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	metricsHandler := gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	healthHandler := handler.NewHealthHandler(cfg.GetDB, cfg.Redis)

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	api := r.Group(cfg.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)
		api.GET("/metrics", metricsHandler)
		api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		if cfg.StatusService == nil {
			return r
		}

		statusHandler := handler.NewStatusHandler(cfg.StatusService, cfg.Logger)

		// authorization failures are decided per operation, so anonymous requests pass through
		authed := api.Group("")
		authed.Use(middleware.OptionalAuth(cfg.Validator, cfg.Logger))
		{
			authed.POST("/status", statusHandler.UpdateStatus)
			authed.POST("/status/sign-out", statusHandler.SignOut)
			authed.GET("/workspaces/:workspaceId/status", statusHandler.GetUserStatus)
			authed.GET("/workspaces/:workspaceId/statuses", statusHandler.GetWorkspaceStatuses)

			if cfg.Subscriber != nil && cfg.Membership != nil {
				feedHandler := handler.NewPresenceFeedHandler(cfg.StatusService, cfg.Membership, cfg.Subscriber, cfg.Metrics, cfg.Logger)
				authed.GET("/ws/workspaces/:workspaceId", feedHandler.Serve)
			}
		}
	}

	return r
}
