package achievement

import (
	"habitquest/pkg/db"
	"habitquest/services/campaign"
	"habitquest/services/streak"
	"habitquest/services/student"

	"go.uber.org/fx"
)

var Module = fx.Module("achievement.evaluator",
	fx.Provide(
		NewEvaluator,
		func(s *student.Service) StudentLoader { return s },
		func(t *streak.Tracker) StreakReader { return t },
		func(c *campaign.Service) EnrollmentCounter { return c },
	),
	db.AsModels(&Achievement{}),
)
