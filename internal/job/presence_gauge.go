// Package job runs periodic background work on a cron schedule.
package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"status-service/internal/metrics"
)

// OnlineCounter counts records stored as online, split by freshness
type OnlineCounter interface {
	CountOnline(ctx context.Context, freshSince int64) (fresh, stale int64, err error)
}

// PresenceGaugeJob publishes how many stored "online" records are still fresh and how
// many readers already report as offline. It only reads; stale records are not rewritten.
type PresenceGaugeJob struct {
	counter     OnlineCounter
	staleWindow time.Duration
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewPresenceGaugeJob creates the job. now may be nil to use time.Now.
func NewPresenceGaugeJob(counter OnlineCounter, staleWindow time.Duration, m *metrics.Metrics, logger *zap.Logger, now func() time.Time) *PresenceGaugeJob {
	if now == nil {
		now = time.Now
	}
	return &PresenceGaugeJob{
		counter:     counter,
		staleWindow: staleWindow,
		timeout:     5 * time.Second,
		metrics:     m,
		logger:      logger,
		now:         now,
	}
}

// Run implements cron.Job
func (j *PresenceGaugeJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.Collect(ctx); err != nil {
		j.logger.Error("Failed to collect presence gauges", zap.Error(err))
	}
}

// Collect counts online records and updates the gauges
func (j *PresenceGaugeJob) Collect(ctx context.Context) error {
	freshSince := j.now().UnixMilli() - j.staleWindow.Milliseconds()

	fresh, stale, err := j.counter.CountOnline(ctx, freshSince)
	if err != nil {
		return err
	}

	j.metrics.SetOnlineRecords(fresh, stale)
	j.logger.Debug("Presence gauges updated", zap.Int64("fresh", fresh), zap.Int64("stale", stale))
	return nil
}
