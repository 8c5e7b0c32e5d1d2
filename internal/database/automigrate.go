package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"status-service/internal/domain"
)

// modelInfo holds information about a domain model and its table name
type modelInfo struct {
	model     interface{}
	tableName string
}

var models = []modelInfo{
	{&domain.StatusRecord{}, "user_statuses"},
	{&domain.WorkspaceMember{}, "workspace_members"},
}

// SafeAutoMigrate migrates every model, logging whether each table already existed
func SafeAutoMigrate(db *gorm.DB, logger *zap.Logger) error {
	migrator := db.Migrator()

	for _, m := range models {
		tableExists := migrator.HasTable(m.model)

		if err := db.AutoMigrate(m.model); err != nil {
			logger.Error("Failed to migrate table",
				zap.String("table", m.tableName),
				zap.Bool("table_existed", tableExists),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate table %s: %w", m.tableName, err)
		}

		logger.Info("Successfully migrated table",
			zap.String("table", m.tableName),
			zap.Bool("was_existing", tableExists),
		)
	}

	return nil
}

// SafeAutoMigrateWithRetry runs SafeAutoMigrate up to maxRetries times with linear backoff
func SafeAutoMigrateWithRetry(db *gorm.DB, logger *zap.Logger, maxRetries int) error {
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = SafeAutoMigrate(db, logger)
		if err == nil {
			return nil
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Migration attempt failed, retrying...",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("migration failed after %d attempts: %w", maxRetries, err)
}
