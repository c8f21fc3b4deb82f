package campaign

import (
	"habitquest/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("campaign.service",
	fx.Provide(NewService),
	db.AsModels(&Campaign{}, &Habit{}, &Enrollment{}),
)
