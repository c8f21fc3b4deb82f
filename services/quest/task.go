package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"habitquest/pkg/task"
	"habitquest/pkg/taskname"
	"habitquest/pkg/timeutil"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

type IssueDailyPayload struct {
	Day string `json:"day"`
}

type SweepPayload struct {
	// Now overrides the sweep instant; zero means time of processing.
	Now time.Time `json:"now,omitempty"`
}

func NewIssueDailyTask(day time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(IssueDailyPayload{Day: day.Format(dayLayout)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.QuestIssueDaily, payload,
		asynq.Queue(task.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Unique(time.Hour),
	), nil
}

func NewSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.QuestSweep, payload,
		asynq.Queue(task.QueueCritical),
		asynq.MaxRetry(3),
		asynq.Unique(5*time.Minute),
	), nil
}

// Handler runs quest tasks on the worker.
type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) HandleIssueDaily(ctx context.Context, t *asynq.Task) error {
	var payload IssueDailyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
	}

	day := timeutil.Day(time.Now(), h.tracker.loc)
	if payload.Day != "" {
		parsed, err := time.Parse(dayLayout, payload.Day)
		if err != nil {
			return fmt.Errorf("invalid day %q: %w: %w", payload.Day, err, asynq.SkipRetry)
		}
		day = parsed
	}

	log := zap.L().With(zap.String("task_type", t.Type()), zap.String("day", day.Format(dayLayout)))
	log.Info("start issuing daily quests")

	created, err := h.tracker.IssueDaily(ctx, day)
	if err != nil {
		log.Error("failed to issue daily quests", zap.Error(err))
		return err
	}

	log.Info("daily quests issued", zap.Int("created", created))
	return nil
}

func (h *Handler) HandleSweep(ctx context.Context, t *asynq.Task) error {
	var payload SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	now := payload.Now
	if now.IsZero() {
		now = time.Now()
	}

	res, err := h.tracker.Sweep(ctx, now)
	if err != nil {
		zap.L().Error("quest sweep failed", zap.String("task_type", t.Type()), zap.Error(err))
		return err
	}
	if res.Errors > 0 {
		return fmt.Errorf("quest sweep: %d quests could not be settled", res.Errors)
	}
	return nil
}
