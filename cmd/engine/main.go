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
	"habitquest/pkg/httpapi"
	"habitquest/pkg/logger"
	"habitquest/pkg/otelcol"
	"habitquest/pkg/profiling"
	"habitquest/pkg/redis"
	"habitquest/pkg/sequence"
	"habitquest/pkg/server"
	"habitquest/pkg/task"
	"habitquest/services/achievement"
	"habitquest/services/campaign"
	"habitquest/services/leaderboard"
	"habitquest/services/pledge"
	"habitquest/services/points"
	"habitquest/services/progression"
	"habitquest/services/quest"
	"habitquest/services/referral"
	"habitquest/services/reward"
	"habitquest/services/streak"
	"habitquest/services/student"
	"habitquest/services/submission"
)

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

		student.Module,
		campaign.Module,
		streak.Module,
		points.Module,
		achievement.Module,
		progression.Module,
		reward.Module,
		quest.Module,
		referral.Module,
		pledge.Module,
		leaderboard.Module,
		submission.Module,
		submission.Leaderboard,

		httpapi.Module,
		student.HTTP,
		campaign.HTTP,
		submission.HTTP,
		points.HTTP,
		achievement.HTTP,
		leaderboard.HTTP,
		quest.HTTP,
		referral.HTTP,
		pledge.HTTP,
		reward.HTTP,
		server.ProvideHTTPServer,
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
