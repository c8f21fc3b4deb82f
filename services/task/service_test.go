package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitquest/pkg/taskname"
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	err   error
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{Type: t.Type(), Queue: "critical"}, nil
}

func newTestService(t *testing.T, enq *fakeEnqueuer) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Job{})
	svc := NewService(Params{DB: db, Node: testutil.NewNode(t), Enqueuer: enq})
	now := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func (s *Service) reload(t *testing.T, id string) *Job {
	t.Helper()
	job, err := s.jobs.FindOne(context.Background(), &Job{ID: id})
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func TestEnqueueRecordsPendingJob(t *testing.T) {
	enq := &fakeEnqueuer{}
	svc := newTestService(t, enq)

	job, err := svc.EnqueueSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.QuestSweep, enq.tasks[0].Type())

	got := svc.reload(t, job.ID)
	require.Equal(t, JobPending, got.Status)
	require.Equal(t, "critical", got.Queue)
	require.Equal(t, taskname.QuestSweep, got.TaskName)
}

func TestEnqueueDuplicateIsSkipped(t *testing.T) {
	svc := newTestService(t, &fakeEnqueuer{err: asynq.ErrDuplicateTask})

	job, err := svc.EnqueueIssueDaily(context.Background(), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	got := svc.reload(t, job.ID)
	require.Equal(t, JobSkipped, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.JSONEq(t, `{"day":"2026-05-01"}`, string(got.Metadata))
}

func TestEnqueueFailureIsRecorded(t *testing.T) {
	svc := newTestService(t, &fakeEnqueuer{err: errors.New("redis down")})

	job, err := svc.EnqueueSweep(context.Background())
	require.Error(t, err)
	require.NotNil(t, job)

	got := svc.reload(t, job.ID)
	require.Equal(t, JobFailed, got.Status)
	require.Equal(t, "redis down", got.ErrorMsg)
}

func TestEnqueueWithoutQueue(t *testing.T) {
	db := testutil.NewTestDB(t, &Job{})
	svc := NewService(Params{DB: db, Node: testutil.NewNode(t)})

	_, err := svc.EnqueueSweep(context.Background())
	require.Error(t, err)
}

func TestRunTracksEnqueuedJob(t *testing.T) {
	svc := newTestService(t, &fakeEnqueuer{})
	ctx := context.Background()

	job, err := svc.EnqueueSweep(ctx)
	require.NoError(t, err)

	var seen JobStatus
	next := asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		seen = svc.reload(t, job.ID).Status
		return nil
	})
	require.NoError(t, svc.run(ctx, job.ID, asynq.NewTask(taskname.QuestSweep, nil), next))
	require.Equal(t, JobRunning, seen)

	got := svc.reload(t, job.ID)
	require.Equal(t, JobSuccess, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
}

func TestRunRecordsUnknownTaskFailure(t *testing.T) {
	svc := newTestService(t, &fakeEnqueuer{})
	boom := errors.New("boom")

	err := svc.run(context.Background(), "external-1", asynq.NewTask(taskname.QuestIssueDaily, []byte(`{"day":"2026-05-01"}`)),
		asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return boom }))
	require.ErrorIs(t, err, boom)

	got := svc.reload(t, "external-1")
	require.Equal(t, JobFailed, got.Status)
	require.Equal(t, "boom", got.ErrorMsg)
	require.Equal(t, taskname.QuestIssueDaily, got.TaskName)

	recent, err := svc.Recent(context.Background(), taskname.QuestIssueDaily, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

type fakeQueue struct {
	mu     sync.Mutex
	days   []time.Time
	sweeps int
	calls  chan struct{}
}

func (q *fakeQueue) EnqueueIssueDaily(_ context.Context, day time.Time) (*Job, error) {
	q.mu.Lock()
	q.days = append(q.days, day)
	q.mu.Unlock()
	q.calls <- struct{}{}
	return &Job{}, nil
}

func (q *fakeQueue) EnqueueSweep(context.Context) (*Job, error) {
	q.mu.Lock()
	q.sweeps++
	q.mu.Unlock()
	q.calls <- struct{}{}
	return &Job{}, nil
}

func TestSchedulerRun(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC) // 06:30 on May 2 in loc

	q := &fakeQueue{calls: make(chan struct{}, 8)}
	issueCh := make(chan time.Time)
	sweepCh := make(chan time.Time)
	s := &Scheduler{
		queue:         q,
		loc:           loc,
		issueHour:     5,
		sweepInterval: time.Hour,
		now:           func() time.Time { return now },
		after: func(d time.Duration) <-chan time.Time {
			if d == time.Hour {
				return sweepCh
			}
			return issueCh
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	wait := func() {
		select {
		case <-q.calls:
		case <-time.After(time.Second):
			t.Fatal("scheduler did not enqueue")
		}
	}

	// catch-up issue and sweep on start
	wait()
	wait()

	sweepCh <- now
	wait()
	issueCh <- now
	wait()

	cancel()
	<-done

	q.mu.Lock()
	defer q.mu.Unlock()
	require.Equal(t, 2, q.sweeps)
	require.Len(t, q.days, 2)
	require.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), q.days[0])
}
