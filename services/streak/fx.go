package streak

import (
	"habitquest/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("streak.tracker",
	fx.Provide(NewTracker),
	db.AsModels(&Record{}),
)
