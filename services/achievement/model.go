package achievement

import "time"

type Category string

const (
	CategoryStreak   Category = "STREAK"
	CategoryLevel    Category = "LEVEL"
	CategoryRank     Category = "RANK"
	CategoryCampaign Category = "CAMPAIGN"
	CategorySocial   Category = "SOCIAL"
	CategorySpecial  Category = "SPECIAL"
)

// Achievement is an unlocked title. A title is held at most once per student.
type Achievement struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID    string    `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_achievement_student_title" json:"student_id"`
	Title        string    `gorm:"column:title;type:varchar(100);not null;uniqueIndex:uq_achievement_student_title" json:"title"`
	Category     Category  `gorm:"column:category;type:varchar(20);not null" json:"category"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	XPReward     int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	PointsReward int64     `gorm:"column:points_reward;not null;default:0" json:"points_reward"`
	UnlockedAt   time.Time `gorm:"column:unlocked_at" json:"unlocked_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// Grant describes an achievement to insert.
type Grant struct {
	Title        string
	Category     Category
	Description  string
	XPReward     int64
	PointsReward int64
}
