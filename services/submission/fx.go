package submission

import (
	"habitquest/pkg/db"
	"habitquest/services/campaign"
	"habitquest/services/leaderboard"
	"habitquest/services/points"
	"habitquest/services/progression"
	"habitquest/services/quest"
	"habitquest/services/streak"
	"habitquest/services/student"

	"go.uber.org/fx"
)

var Module = fx.Module("submission.service",
	fx.Provide(
		NewService,
		NewCheckStore,
		func(c *CheckStore) quest.CheckCounter { return c },
		func(s *student.Service) Students { return s },
		func(c *campaign.Service) Campaigns { return c },
		func(t *streak.Tracker) Streaks { return t },
		func(l *points.Ledger) Ledger { return l },
		func(t *quest.Tracker) Quests { return t },
		func(e *progression.Engine) Progression { return e },
	),
	db.AsModels(&Submission{}, &HabitCheck{}),
)

// Leaderboard feeds accepted submissions into the redis leaderboard.
var Leaderboard = fx.Module("submission.leaderboard",
	fx.Provide(func(b *leaderboard.Board) ScoreBoard { return b }),
)

var HTTP = fx.Module("submission.http",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)
