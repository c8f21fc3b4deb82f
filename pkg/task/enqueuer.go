package task

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

const (
	// Retention keeps finished tasks inspectable in the queue for a day.
	Retention      = 24 * time.Hour
	enqueueTimeout = 5 * time.Second
)

// Enqueuer hands tasks to the asynq queues.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type clientEnqueuer struct {
	client  *asynq.Client
	timeout time.Duration
}

func NewEnqueuer(client *asynq.Client) Enqueuer {
	return &clientEnqueuer{client: client, timeout: enqueueTimeout}
}

// Enqueue applies Retention unless opts override it. Errors wrap the asynq
// sentinels, so ErrDuplicateTask and ErrTaskIDConflict stay detectable.
func (e *clientEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	opts = append([]asynq.Option{asynq.Retention(Retention)}, opts...)
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info, nil
}
