package progression

import (
	"fmt"

	"habitquest/services/achievement"
	"habitquest/services/student"
)

// LevelCost is the experience needed to leave level.
func LevelCost(level int) int64 {
	return int64(level) * 100
}

// CumulativeThreshold is the total experience at which a student leaves level.
func CumulativeThreshold(level int) int64 {
	return 50 * int64(level) * int64(level+1)
}

type promotion struct {
	from, to student.Rank
}

var promotions = map[int]promotion{
	10: {from: student.RankE, to: student.RankD},
	20: {from: student.RankD, to: student.RankC},
	30: {from: student.RankC, to: student.RankB},
	40: {from: student.RankB, to: student.RankA},
	50: {from: student.RankA, to: student.RankS},
}

// rankGrant takes its rewards from the catalog entry of the same title so
// the promotion and the evaluator never disagree.
func rankGrant(p promotion) (achievement.Grant, error) {
	title := fmt.Sprintf("%s-Rank Hunter", p.to)
	def, ok := achievement.Lookup(title)
	if !ok {
		return achievement.Grant{}, fmt.Errorf("no catalog entry for %q", title)
	}
	return def.Grant(), nil
}

func levelGrant(level int) achievement.Grant {
	return achievement.Grant{
		Title:        fmt.Sprintf("Level %d Achieved", level),
		Category:     achievement.CategoryLevel,
		Description:  fmt.Sprintf("Reached level %d", level),
		XPReward:     int64(level) * 10,
		PointsReward: int64(level) * 5,
	}
}
