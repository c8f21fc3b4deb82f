package campaign

import (
	"time"
)

type CampaignStatus string
type EnrollmentStatus string

const (
	CampaignStatusDraft    CampaignStatus = "DRAFT"
	CampaignStatusActive   CampaignStatus = "ACTIVE"
	CampaignStatusInactive CampaignStatus = "INACTIVE"
	CampaignStatusExpired  CampaignStatus = "EXPIRED"

	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusInactive  EnrollmentStatus = "INACTIVE"
)

// Campaign is a sponsor-backed habit programme students enroll in.
type Campaign struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Slug        string         `gorm:"column:slug;type:varchar(255);uniqueIndex" json:"slug"`
	Name        string         `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Status      CampaignStatus `gorm:"column:status;type:varchar(50);not null;default:'DRAFT'" json:"status"`
	StartAt     *time.Time     `gorm:"column:start_at" json:"start_at,omitempty"`
	EndAt       *time.Time     `gorm:"column:end_at" json:"end_at,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// IsActive checks if campaign is currently active based on time range & status.
func (c *Campaign) IsActive(now time.Time) bool {
	if c.Status != CampaignStatusActive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

type Habit struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CampaignID string    `gorm:"column:campaign_id;type:varchar(32);index;not null" json:"campaign_id"`
	Title      string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Position   int       `gorm:"column:position" json:"position"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Habit) TableName() string {
	return "habits"
}

type Enrollment struct {
	ID         string           `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID  string           `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_enrollment_student_campaign" json:"student_id"`
	CampaignID string           `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_enrollment_student_campaign" json:"campaign_id"`
	Status     EnrollmentStatus `gorm:"column:status;type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	EnrolledAt time.Time        `gorm:"column:enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// EnrollmentCounts feeds the campaign achievements.
type EnrollmentCounts struct {
	Total    int64
	Finished int64
}
