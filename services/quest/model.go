package quest

import "time"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

type PenaltyType string

const (
	PenaltyMissedDailyQuest PenaltyType = "MISSED_DAILY_QUEST"
)

type PenaltyStatus string

const (
	PenaltyPending   PenaltyStatus = "PENDING"
	PenaltyCompleted PenaltyStatus = "COMPLETED"
	PenaltyFailed    PenaltyStatus = "FAILED"
)

const (
	bonusXPPerHabit     = 5
	bonusPointsPerHabit = 2
)

// DailyQuest asks a student to complete every habit of a campaign on QuestDate.
type DailyQuest struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID       string     `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_daily_quest" json:"student_id"`
	CampaignID      string     `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_daily_quest" json:"campaign_id"`
	QuestDate       time.Time  `gorm:"column:quest_date;type:date;not null;uniqueIndex:uq_daily_quest" json:"quest_date"`
	TotalHabits     int        `gorm:"column:total_habits;not null" json:"total_habits"`
	CompletedHabits int        `gorm:"column:completed_habits;not null;default:0" json:"completed_habits"`
	Status          Status     `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	BonusXP         int64      `gorm:"column:bonus_xp;not null" json:"bonus_xp"`
	BonusPoints     int64      `gorm:"column:bonus_points;not null" json:"bonus_points"`
	Deadline        time.Time  `gorm:"column:deadline;not null;index" json:"deadline"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (DailyQuest) TableName() string {
	return "daily_quests"
}

type PenaltyQuest struct {
	ID          string        `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID   string        `gorm:"column:student_id;type:varchar(32);not null;index:idx_penalty_lookup" json:"student_id"`
	CampaignID  string        `gorm:"column:campaign_id;type:varchar(32);not null;index:idx_penalty_lookup" json:"campaign_id"`
	Type        PenaltyType   `gorm:"column:type;type:varchar(30);not null;index:idx_penalty_lookup" json:"type"`
	Description string        `gorm:"column:description;type:text" json:"description"`
	PenaltyTask string        `gorm:"column:penalty_task;type:text" json:"penalty_task"`
	XPPenalty   int64         `gorm:"column:xp_penalty;not null" json:"xp_penalty"`
	Deadline    time.Time     `gorm:"column:deadline;not null" json:"deadline"`
	Status      PenaltyStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	CompletedAt *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (PenaltyQuest) TableName() string {
	return "penalty_quests"
}
