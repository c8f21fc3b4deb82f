package task

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestEnqueuerRejectsDuplicateTaskID(t *testing.T) {
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	enq := NewEnqueuer(client)
	task := asynq.NewTask("quest:sweep", []byte(`{}`))

	info, err := enq.Enqueue(task, asynq.Queue(QueueCritical), asynq.TaskID("job-1"))
	require.NoError(t, err)
	require.Equal(t, QueueCritical, info.Queue)
	require.Equal(t, Retention, info.Retention)

	_, err = enq.Enqueue(task, asynq.Queue(QueueCritical), asynq.TaskID("job-1"))
	require.True(t, errors.Is(err, asynq.ErrTaskIDConflict), "got %v", err)

	info, err = enq.Enqueue(task, asynq.Retention(time.Hour))
	require.NoError(t, err)
	require.Equal(t, time.Hour, info.Retention)
}
