package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper drops expired intake sessions from a store that does not expire them itself.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionSweeper runs a Sweeper on a cron schedule.
type SessionSweeper struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper builds a sweeper for schedule, e.g. "@every 1m".
func NewSessionSweeper(sweeper Sweeper, schedule string, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &SessionSweeper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Run schedules the sweep and blocks until ctx is done, then waits for a running
// sweep to finish.
func (s *SessionSweeper) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("session sweeper started", zap.String("schedule", s.schedule))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("session sweeper stopped")
	return nil
}

func (s *SessionSweeper) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("expired intake sessions removed", zap.Int("count", removed))
	}
}
