package achievement

import "time"

// Definition is a catalog entry. Predicate is a CEL expression over the
// attributes of a Snapshot.
type Definition struct {
	Title        string
	Category     Category
	Description  string
	XPReward     int64
	PointsReward int64
	Predicate    string

	// Metric and Target drive the progress percentage. Metric names a
	// Snapshot attribute; "rank" targets are rank ordinals.
	Metric string
	Target int64
}

func (d Definition) Grant() Grant {
	return Grant{
		Title:        d.Title,
		Category:     d.Category,
		Description:  d.Description,
		XPReward:     d.XPReward,
		PointsReward: d.PointsReward,
	}
}

// EarlyAdopterCutoff is the account creation instant before which a student
// counts as an early adopter.
var EarlyAdopterCutoff = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Definitions is evaluated in order; earlier entries are granted first.
var Definitions = []Definition{
	{Title: "D-Rank Hunter", Category: CategoryRank, Description: "Reach D-Rank", XPReward: 100, PointsReward: 50, Predicate: `rank == "D"`, Metric: "rank", Target: 1},
	{Title: "C-Rank Hunter", Category: CategoryRank, Description: "Reach C-Rank", XPReward: 200, PointsReward: 100, Predicate: `rank == "C"`, Metric: "rank", Target: 2},
	{Title: "B-Rank Hunter", Category: CategoryRank, Description: "Reach B-Rank", XPReward: 400, PointsReward: 200, Predicate: `rank == "B"`, Metric: "rank", Target: 3},
	{Title: "A-Rank Hunter", Category: CategoryRank, Description: "Reach A-Rank", XPReward: 800, PointsReward: 400, Predicate: `rank == "A"`, Metric: "rank", Target: 4},
	{Title: "S-Rank Hunter", Category: CategoryRank, Description: "Reach S-Rank", XPReward: 1600, PointsReward: 800, Predicate: `rank == "S"`, Metric: "rank", Target: 5},
	{Title: "National Level Hunter", Category: CategoryRank, Description: "Reach National Level", XPReward: 5000, PointsReward: 2500, Predicate: `rank == "National"`, Metric: "rank", Target: 6},

	{Title: "Streak Starter", Category: CategoryStreak, Description: "Maintain a 7-day streak", XPReward: 50, PointsReward: 25, Predicate: `max_streak >= 7`, Metric: "max_streak", Target: 7},
	{Title: "Dedicated Hunter", Category: CategoryStreak, Description: "Maintain a 30-day streak", XPReward: 200, PointsReward: 100, Predicate: `max_streak >= 30`, Metric: "max_streak", Target: 30},
	{Title: "Iron Will", Category: CategoryStreak, Description: "Maintain a 100-day streak", XPReward: 1000, PointsReward: 500, Predicate: `max_streak >= 100`, Metric: "max_streak", Target: 100},

	{Title: "Level 10 Reached", Category: CategoryLevel, Description: "Reach level 10", XPReward: 100, PointsReward: 50, Predicate: `level >= 10`, Metric: "level", Target: 10},
	{Title: "Level 25 Reached", Category: CategoryLevel, Description: "Reach level 25", XPReward: 250, PointsReward: 125, Predicate: `level >= 25`, Metric: "level", Target: 25},
	{Title: "Level 50 Reached", Category: CategoryLevel, Description: "Reach level 50", XPReward: 500, PointsReward: 250, Predicate: `level >= 50`, Metric: "level", Target: 50},

	{Title: "First Quest", Category: CategoryCampaign, Description: "Enroll in your first campaign", XPReward: 25, PointsReward: 10, Predicate: `enrollments >= 1`, Metric: "enrollments", Target: 1},
	{Title: "Quest Master", Category: CategoryCampaign, Description: "Finish 10 campaigns", XPReward: 300, PointsReward: 150, Predicate: `finished_enrollments >= 10`, Metric: "finished_enrollments", Target: 10},

	{Title: "Recruiter", Category: CategorySocial, Description: "Refer 3 friends", XPReward: 250, PointsReward: 100, Predicate: `referrals >= 3`, Metric: "referrals", Target: 3},

	{Title: "Early Adopter", Category: CategorySpecial, Description: "Join during the launch period", XPReward: 500, PointsReward: 250, Predicate: `created_at_unix < 1767225600`, Metric: "created_at_unix"},
}

// Lookup returns the catalog entry titled title.
func Lookup(title string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Title == title {
			return d, true
		}
	}
	return Definition{}, false
}
