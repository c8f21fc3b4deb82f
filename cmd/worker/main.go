package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"habitquest/pkg/config"
	"habitquest/pkg/db"
	"habitquest/pkg/featureflags"
	"habitquest/pkg/gen"
	"habitquest/pkg/logger"
	"habitquest/pkg/otelcol"
	"habitquest/pkg/profiling"
	"habitquest/pkg/redis"
	"habitquest/pkg/sequence"
	"habitquest/pkg/task"
	"habitquest/services/achievement"
	"habitquest/services/campaign"
	"habitquest/services/points"
	"habitquest/services/progression"
	"habitquest/services/quest"
	"habitquest/services/referral"
	"habitquest/services/reward"
	"habitquest/services/streak"
	"habitquest/services/student"
	"habitquest/services/submission"
	jobs "habitquest/services/task"
)

// The worker issues daily quests and sweeps expired ones. It schedules its
// own tasks and processes them from the asynq queues.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		featureflags.Module,
		task.Client,
		task.Server,

		student.Module,
		campaign.Module,
		streak.Module,
		points.Module,
		achievement.Module,
		progression.Module,
		reward.Module,
		referral.Module,
		quest.Module,
		quest.TaskModule,
		submission.Module,

		jobs.Module,
		jobs.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})
