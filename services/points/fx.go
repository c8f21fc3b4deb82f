package points

import (
	"habitquest/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("points.ledger",
	fx.Provide(NewLedger),
	db.AsModels(&Entry{}),
)
