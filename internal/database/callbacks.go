package database

import (
	"time"

	"gorm.io/gorm"
)

// MetricsRecorder is an interface for recording database metrics
type MetricsRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
	UpdateDBStats(stats interface{})
}

const startTimeKey = "metrics:query_start_time"

// RegisterMetricsCallbacks registers GORM callbacks for metrics collection
func RegisterMetricsCallbacks(db *gorm.DB, recorder MetricsRecorder) error {
	cb := db.Callback()

	if err := cb.Query().Before("gorm:query").Register("metrics:query_before", startTimer); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:query_after", observe(recorder, "select")); err != nil {
		return err
	}
	if err := cb.Create().Before("gorm:create").Register("metrics:create_before", startTimer); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:create_after", observe(recorder, "insert")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:update_before", startTimer); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:update_after", observe(recorder, "update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:delete_before", startTimer); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("metrics:delete_after", observe(recorder, "delete"))
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func observe(recorder MetricsRecorder, operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startTime, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		recorder.RecordDBQuery(operation, table, time.Since(startTime.(time.Time)), db.Error)
	}
}

// StartDBStatsCollector starts periodic DB stats collection; close the returned channel to stop it
func StartDBStatsCollector(db *gorm.DB, recorder MetricsRecorder, interval time.Duration) chan struct{} {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					continue
				}
				recorder.UpdateDBStats(sqlDB.Stats())
			case <-done:
				return
			}
		}
	}()

	return done
}
