package task

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
	// JobSkipped marks an enqueue rejected because the same task is already queued.
	JobSkipped JobStatus = "skipped"
)

// Job is an execution record of a background task. Its ID doubles as the
// asynq task ID so the worker can find the row it belongs to.
type Job struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	TaskName    string         `gorm:"column:task_name;type:varchar(100);not null;index" json:"task_name"`
	Queue       string         `gorm:"column:queue;type:varchar(50)" json:"queue,omitempty"`
	Status      JobStatus      `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	ErrorMsg    string         `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}
