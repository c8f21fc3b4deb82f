package quest

import (
	"habitquest/pkg/db"
	"habitquest/pkg/taskname"
	"habitquest/services/campaign"
	"habitquest/services/progression"
	"habitquest/services/reward"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("quest.tracker",
	fx.Provide(
		NewTracker,
		func(c *campaign.Service) Campaigns { return c },
		func(e *progression.Engine) Progression { return e },
		func(s *reward.Service) RewardOpener { return s },
	),
	db.AsModels(&DailyQuest{}, &PenaltyQuest{}),
)

// TaskModule attaches the quest handlers to the worker mux.
var TaskModule = fx.Module("quest.task",
	fx.Provide(NewHandler),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(taskname.QuestIssueDaily, h.HandleIssueDaily)
	mux.HandleFunc(taskname.QuestSweep, h.HandleSweep)
}
