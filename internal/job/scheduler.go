package job

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs jobs on cron specs. Panics are recovered and overlapping runs skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Add registers job under spec ("@every 1m", "*/5 * * * *", ...)
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	id, err := s.cron.AddJob(spec, job)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled job", zap.String("job", name), zap.String("spec", spec), zap.Int("entry_id", int(id)))
	return nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
