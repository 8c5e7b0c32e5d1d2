// @title           Status Service API
// @version         1.0
// @description     Workspace presence: debounced status writes, global sign-out and staleness-aware reads.

// @host      localhost:8003
// @BasePath  /api/status

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "status-service/docs" // Swagger docs import

	"status-service/internal/config"
	"status-service/internal/database"
	"status-service/internal/metrics"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Status Service",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("user_api_url", cfg.UserAPI.BaseURL),
		zap.String("auth_api_url", cfg.AuthAPI.BaseURL),
		zap.Duration("debounce_window", cfg.Presence.DebounceWindow),
		zap.Duration("stale_window", cfg.Presence.StaleWindow),
	)

	// Initialize metrics
	m := metrics.NewWithLogger(logger)

	// Redis is optional: without it there is no membership cache and no live feed
	var rdb *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Host != "" {
		rdb, err = database.NewRedis(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Failed to connect to redis, continuing without it", zap.Error(err))
			rdb = nil
		}
	}

	a := newApp(cfg, logger, m, rdb)

	// Initialize database (the server starts either way and /ready reports the state)
	dbConfig := database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Warn("Failed to connect to database on startup, will retry in background", zap.Error(err))
		database.NewAsync(dbConfig, 5*time.Second, logger, a.onConnect)
	} else {
		logger.Info("Database connected successfully")
		database.SetDB(db)
		if err := a.attachDB(db); err != nil {
			logger.Fatal("Failed to initialize presence service", zap.Error(err))
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      a,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Status Service started successfully",
			zap.String("address", srv.Addr),
			zap.String("swagger", fmt.Sprintf("http://localhost:%s%s/swagger/index.html", cfg.Server.Port, cfg.Server.BasePath)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	a.shutdown(ctx)

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
