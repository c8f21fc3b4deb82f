package referral

import (
	"habitquest/pkg/db"
	"habitquest/services/achievement"
	"habitquest/services/progression"
	"habitquest/services/student"

	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(
		NewService,
		NewCounter,
		func(c *Counter) achievement.ReferralCounter { return c },
		func(s *student.Service) Students { return s },
		func(e *progression.Engine) Progression { return e },
	),
	db.AsModels(&Code{}, &Redemption{}),
)

var HTTP = fx.Module("referral.http",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)
