package progression

import (
	"habitquest/services/achievement"
	"habitquest/services/student"

	"go.uber.org/fx"
)

var Module = fx.Module("progression.engine",
	fx.Provide(
		NewEngine,
		func(s *student.Service) StudentStore { return s },
		func(e *achievement.Evaluator) Achievements { return e },
	),
)
