package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// job is one periodic pass.
type job interface {
	name() string
	tick(ctx context.Context, now time.Time)
}

// Scheduler runs jobs on a fixed interval until ctx is canceled.
type Scheduler struct {
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	jobs     []job
}

// New creates a Scheduler polling every interval (60s when zero).
func New(log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{log: log, interval: interval, now: time.Now}
}

// Add registers a LateSweep or Reminder.
func (s *Scheduler) Add(j job) { s.jobs = append(s.jobs, j) }

// Run schedules every job and blocks until ctx is canceled and running
// passes have finished. A pass still running when the next one is due is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log.Sugar()})))
	spec := "@every " + s.interval.String()
	for _, j := range s.jobs {
		j := j
		if _, err := c.AddFunc(spec, func() { s.run(ctx, j, s.now()) }); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name(), err)
		}
	}
	c.Start()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval), zap.Int("jobs", len(s.jobs)))

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// run executes one job; a panicking job does not stop the scheduler.
func (s *Scheduler) run(ctx context.Context, j job, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("scheduler job panicked", zap.String("job", j.name()), zap.Any("panic", rec))
		}
	}()
	j.tick(ctx, now)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
