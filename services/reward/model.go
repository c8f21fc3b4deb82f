package reward

import "time"

type Type string

const (
	TypeRandomBox       Type = "RANDOM_BOX"
	TypeQuestCompletion Type = "QUEST_COMPLETION"
)

// Reward is an append-only record of a granted bonus.
type Reward struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID   string    `gorm:"column:student_id;type:varchar(32);not null;index" json:"student_id"`
	Type        Type      `gorm:"column:type;type:varchar(30);not null" json:"type"`
	Rarity      Rarity    `gorm:"column:rarity;type:varchar(20);not null" json:"rarity"`
	Name        string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	XPBonus     int64     `gorm:"column:xp_bonus;not null;default:0" json:"xp_bonus"`
	PointsBonus int64     `gorm:"column:points_bonus;not null;default:0" json:"points_bonus"`
	ReceivedAt  time.Time `gorm:"column:received_at" json:"received_at"`
}

func (Reward) TableName() string {
	return "rewards"
}
