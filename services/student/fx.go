package student

import (
	"habitquest/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("student.service",
	fx.Provide(NewService),
	db.AsModels(&Student{}),
)
