package pledge

import (
	"habitquest/pkg/db"
	"habitquest/services/campaign"
	"habitquest/services/points"

	"go.uber.org/fx"
)

var Module = fx.Module("pledge.service",
	fx.Provide(
		NewService,
		func(c *campaign.Service) Campaigns { return c },
		func(l *points.Ledger) PointsTotals { return l },
	),
	db.AsModels(&Pledge{}),
)

var HTTP = fx.Module("pledge.http",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)
