package task

import (
	"context"
	"errors"
	"time"

	"habitquest/pkg/repository"
	taskq "habitquest/pkg/task"
	"habitquest/services/quest"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	node     *snowflake.Node
	jobs     repository.Repository[Job]
	enqueuer taskq.Enqueuer
	now      func() time.Time
}

type Params struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Enqueuer taskq.Enqueuer `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		node:     p.Node,
		jobs:     repository.ProvideStore[Job](p.DB),
		enqueuer: p.Enqueuer,
		now:      time.Now,
	}
}

// Enqueue records a pending job and hands t to the queue under the job ID.
// A task already queued under its uniqueness lock is recorded as skipped.
func (s *Service) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*Job, error) {
	if s.enqueuer == nil {
		return nil, errors.New("task queue is not configured")
	}

	now := s.now()
	job := &Job{
		ID:        s.node.Generate().String(),
		TaskName:  t.Type(),
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  datatypes.JSON(t.Payload()),
	}
	if len(t.Payload()) == 0 {
		job.Metadata = nil
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	info, err := s.enqueuer.Enqueue(t, append(opts, asynq.TaskID(job.ID))...)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		job.Status = JobSkipped
		s.finish(ctx, job, err.Error())
		zap.L().Info("task already queued", zap.String("task_type", t.Type()), zap.String("job_id", job.ID))
		return job, nil
	case err != nil:
		job.Status = JobFailed
		s.finish(ctx, job, err.Error())
		return job, err
	}

	job.Queue = info.Queue
	if err := s.jobs.Update(ctx, job.ID, map[string]any{"queue": job.Queue, "updated_at": s.now()}); err != nil {
		zap.L().Warn("failed to record job queue", zap.String("job_id", job.ID), zap.Error(err))
	}

	zap.L().Info("task enqueued",
		zap.String("task_type", t.Type()),
		zap.String("queue", info.Queue),
		zap.String("job_id", job.ID),
	)
	return job, nil
}

func (s *Service) finish(ctx context.Context, job *Job, errMsg string) {
	now := s.now()
	job.ErrorMsg = errMsg
	job.CompletedAt = &now
	if err := s.jobs.Update(ctx, job.ID, map[string]any{
		"status":       job.Status,
		"error_msg":    errMsg,
		"completed_at": now,
		"updated_at":   now,
	}); err != nil {
		zap.L().Warn("failed to update job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *Service) EnqueueIssueDaily(ctx context.Context, day time.Time) (*Job, error) {
	t, err := quest.NewIssueDailyTask(day)
	if err != nil {
		return nil, err
	}
	return s.Enqueue(ctx, t)
}

func (s *Service) EnqueueSweep(ctx context.Context) (*Job, error) {
	t, err := quest.NewSweepTask()
	if err != nil {
		return nil, err
	}
	return s.Enqueue(ctx, t)
}

// Track is asynq middleware keeping the job row of each processed task in
// step with its execution. Tasks enqueued elsewhere get a row on first run.
func (s *Service) Track(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		id, ok := asynq.GetTaskID(ctx)
		if !ok {
			return next.ProcessTask(ctx, t)
		}

		return s.run(ctx, id, t, next)
	})
}

func (s *Service) run(ctx context.Context, id string, t *asynq.Task, next asynq.Handler) error {
	job := s.start(ctx, id, t)
	err := next.ProcessTask(ctx, t)
	if job == nil {
		return err
	}

	if err != nil {
		job.Status = JobFailed
		s.finish(ctx, job, err.Error())
		return err
	}
	job.Status = JobSuccess
	s.finish(ctx, job, "")
	return nil
}

func (s *Service) start(ctx context.Context, id string, t *asynq.Task) *Job {
	now := s.now()
	retried, _ := asynq.GetRetryCount(ctx)

	job, err := s.jobs.FindOne(ctx, &Job{ID: id})
	if err != nil {
		zap.L().Warn("failed to load job", zap.String("job_id", id), zap.Error(err))
		return nil
	}

	if job == nil {
		queue, _ := asynq.GetQueueName(ctx)
		job = &Job{
			ID:        id,
			TaskName:  t.Type(),
			Queue:     queue,
			Status:    JobRunning,
			Attempts:  retried + 1,
			StartedAt: &now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if len(t.Payload()) > 0 {
			job.Metadata = datatypes.JSON(t.Payload())
		}
		if err := s.jobs.Create(ctx, job); err != nil {
			zap.L().Warn("failed to record job", zap.String("job_id", id), zap.Error(err))
			return nil
		}
		return job
	}

	job.Status = JobRunning
	job.Attempts = retried + 1
	job.StartedAt = &now
	if err := s.jobs.Update(ctx, job.ID, map[string]any{
		"status":     job.Status,
		"attempts":   job.Attempts,
		"started_at": now,
		"updated_at": now,
	}); err != nil {
		zap.L().Warn("failed to mark job running", zap.String("job_id", id), zap.Error(err))
	}
	return job
}

// Recent lists the latest jobs of a task, newest first.
func (s *Service) Recent(ctx context.Context, taskName string, limit int) ([]*Job, error) {
	return s.jobs.Find(ctx, &Job{TaskName: taskName}, func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Limit(limit)
	})
}
