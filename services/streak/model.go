package streak

import "time"

// Record is the consecutive-day completion state of one student in one campaign.
type Record struct {
	ID                 string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID          string     `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_streak_student_campaign" json:"student_id"`
	CampaignID         string     `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_streak_student_campaign" json:"campaign_id"`
	CurrentStreak      int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak      int        `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	LastSubmissionDate *time.Time `gorm:"column:last_submission_date;type:date" json:"last_submission_date,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Record) TableName() string {
	return "streaks"
}

// Advance applies a completion on day to r. day must be a calendar day
// (see timeutil.Day). A repeated or earlier day leaves the record untouched.
func Advance(r Record, day time.Time) Record {
	switch {
	case r.LastSubmissionDate == nil:
		r.CurrentStreak = 1
	case !day.After(*r.LastSubmissionDate):
		return r
	case r.LastSubmissionDate.AddDate(0, 0, 1).Equal(day):
		r.CurrentStreak++
	default:
		r.CurrentStreak = 1
	}

	if r.CurrentStreak > r.LongestStreak {
		r.LongestStreak = r.CurrentStreak
	}

	d := day
	r.LastSubmissionDate = &d
	return r
}
