package student

import "time"

type Rank string

const (
	RankE        Rank = "E"
	RankD        Rank = "D"
	RankC        Rank = "C"
	RankB        Rank = "B"
	RankA        Rank = "A"
	RankS        Rank = "S"
	RankNational Rank = "National"
)

var rankOrder = []Rank{RankE, RankD, RankC, RankB, RankA, RankS, RankNational}

// Ordinal returns the position of r in the rank ladder, or -1 when unknown.
func (r Rank) Ordinal() int {
	for i, v := range rankOrder {
		if v == r {
			return i
		}
	}
	return -1
}

type Student struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	DisplayName string    `gorm:"column:display_name;type:varchar(100);not null" json:"display_name"`
	Experience  int64     `gorm:"column:experience;not null;default:0" json:"experience"`
	Level       int       `gorm:"column:level;not null;default:1" json:"level"`
	Rank        Rank      `gorm:"column:rank;type:varchar(20);not null;default:'E'" json:"rank"`
	BonusPoints int64     `gorm:"column:bonus_points;not null;default:0" json:"bonus_points"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}
