package task

import (
	"habitquest/pkg/db"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Module records jobs and runs the quest scheduler.
var Module = fx.Module("task.service",
	fx.Provide(
		NewService,
		NewScheduler,
	),
	fx.Invoke(StartScheduler),
	db.AsModels(&Job{}),
)

// Worker tracks every task processed by the worker mux as a job.
var Worker = fx.Module("task.worker",
	fx.Invoke(func(mux *asynq.ServeMux, s *Service) { mux.Use(s.Track) }),
)
