package leaderboard

import "go.uber.org/fx"

var Module = fx.Module("leaderboard", fx.Provide(NewBoard))
