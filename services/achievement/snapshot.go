package achievement

import "habitquest/services/student"

// Snapshot is the student state achievement predicates are evaluated against.
type Snapshot struct {
	Rank                student.Rank
	Level               int64
	MaxStreak           int64
	Enrollments         int64
	FinishedEnrollments int64
	CreatedAtUnix       int64
	Referrals           int64
}

func (s Snapshot) Attributes() map[string]any {
	return map[string]any{
		"rank":                 string(s.Rank),
		"level":                s.Level,
		"max_streak":           s.MaxStreak,
		"enrollments":          s.Enrollments,
		"finished_enrollments": s.FinishedEnrollments,
		"created_at_unix":      s.CreatedAtUnix,
		"referrals":            s.Referrals,
	}
}

// Percent reports progress of s toward d in [0, 100].
func (s Snapshot) Percent(d Definition, unlocked bool) float64 {
	if unlocked {
		return 100
	}

	var current int64
	switch d.Metric {
	case "rank":
		current = int64(max(s.Rank.Ordinal(), 0))
	case "level":
		current = s.Level
	case "max_streak":
		current = s.MaxStreak
	case "enrollments":
		current = s.Enrollments
	case "finished_enrollments":
		current = s.FinishedEnrollments
	case "referrals":
		current = s.Referrals
	default:
		return 0
	}

	if d.Target <= 0 {
		return 0
	}
	return min(100, float64(current)/float64(d.Target)*100)
}
