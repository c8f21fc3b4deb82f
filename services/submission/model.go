package submission

import "time"

type Rating string

const (
	RatingGreat Rating = "great"
	RatingGood  Rating = "good"
	RatingOkay  Rating = "okay"
	RatingHard  Rating = "hard"
)

func (r Rating) Valid() bool {
	switch r {
	case "", RatingGreat, RatingGood, RatingOkay, RatingHard:
		return true
	}
	return false
}

// Submission records that a student completed a campaign on a calendar day.
// At most one exists per (student, campaign, day); rows are never updated
// except for the points they earned.
type Submission struct {
	ID             string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID      string    `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_submission_day" json:"student_id"`
	CampaignID     string    `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_submission_day" json:"campaign_id"`
	SubmissionDate time.Time `gorm:"column:submission_date;type:date;not null;uniqueIndex:uq_submission_day" json:"submission_date"`
	Rating         Rating    `gorm:"column:rating;type:varchar(10)" json:"rating,omitempty"`
	StreakDays     int       `gorm:"column:streak_days;not null;default:0" json:"streak_days"`
	PointsEarned   int64     `gorm:"column:points_earned;not null;default:0" json:"points_earned"`
	SubmittedAt    time.Time `gorm:"column:submitted_at" json:"submitted_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// HabitCheck marks one habit done by a submission.
type HabitCheck struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	SubmissionID string    `gorm:"column:submission_id;type:varchar(32);not null;uniqueIndex:uq_habit_check" json:"submission_id"`
	HabitID      string    `gorm:"column:habit_id;type:varchar(32);not null;uniqueIndex:uq_habit_check" json:"habit_id"`
	StudentID    string    `gorm:"column:student_id;type:varchar(32);not null;index:idx_habit_check_day" json:"student_id"`
	CampaignID   string    `gorm:"column:campaign_id;type:varchar(32);not null;index:idx_habit_check_day" json:"campaign_id"`
	CheckDate    time.Time `gorm:"column:check_date;type:date;not null;index:idx_habit_check_day" json:"check_date"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (HabitCheck) TableName() string {
	return "habit_checks"
}
