package task

import (
	"context"
	"time"

	"habitquest/pkg/config"
	"habitquest/pkg/timeutil"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultSweepInterval = time.Hour

type jobQueue interface {
	EnqueueIssueDaily(ctx context.Context, day time.Time) (*Job, error)
	EnqueueSweep(ctx context.Context) (*Job, error)
}

// Scheduler enqueues the daily quest issue at the configured hour and the
// penalty sweep on a fixed interval.
type Scheduler struct {
	queue         jobQueue
	loc           *time.Location
	issueHour     int
	sweepInterval time.Duration
	now           func() time.Time
	after         func(time.Duration) <-chan time.Time
}

type SchedulerParams struct {
	fx.In
	Service *Service
	Config  *config.Config `optional:"true"`
}

func NewScheduler(p SchedulerParams) *Scheduler {
	s := &Scheduler{
		queue:         p.Service,
		loc:           time.UTC,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		after:         time.After,
	}
	if p.Config != nil {
		s.loc = p.Config.Engine.Location()
		s.issueHour = p.Config.Engine.QuestIssueHour
		if p.Config.Engine.SweepInterval > 0 {
			s.sweepInterval = p.Config.Engine.SweepInterval
		}
	}
	return s
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Run blocks until ctx is done. Today's quests are issued right away since
// issuing is idempotent.
func (s *Scheduler) Run(ctx context.Context) {
	zap.L().Info("[Scheduler] started",
		zap.Int("issue_hour", s.issueHour),
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.String("timezone", s.loc.String()),
	)

	s.issue(ctx)
	s.sweep(ctx)

	nextIssue := timeutil.NextRunTime(s.now().In(s.loc), s.issueHour, 0)
	sweepTick := s.after(s.sweepInterval)

	for {
		issueTick := s.after(nextIssue.Sub(s.now()))
		zap.L().Debug("[Scheduler] next issue scheduled", zap.Time("next_run", nextIssue))

		select {
		case <-ctx.Done():
			zap.L().Info("[Scheduler] stopped")
			return
		case <-issueTick:
			s.issue(ctx)
			nextIssue = timeutil.NextRunTime(s.now().In(s.loc), s.issueHour, 0)
		case <-sweepTick:
			s.sweep(ctx)
			sweepTick = s.after(s.sweepInterval)
		}
	}
}

func (s *Scheduler) issue(ctx context.Context) {
	day := timeutil.Day(s.now(), s.loc)
	if _, err := s.queue.EnqueueIssueDaily(ctx, day); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue daily quests", zap.Time("day", day), zap.Error(err))
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.queue.EnqueueSweep(ctx); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue quest sweep", zap.Error(err))
	}
}
