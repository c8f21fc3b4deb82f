package reward

import (
	"habitquest/pkg/db"
	"habitquest/services/progression"
	"habitquest/services/student"

	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(
		NewService,
		func(e *progression.Engine) Progression { return e },
		func(s *student.Service) BonusAccount { return s },
	),
	db.AsModels(&Reward{}),
)
