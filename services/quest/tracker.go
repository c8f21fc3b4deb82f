package quest

import (
	"context"
	"fmt"
	"time"

	"habitquest/pkg/config"
	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/featureflags"
	"habitquest/pkg/repository"
	"habitquest/pkg/timeutil"
	"habitquest/services/campaign"
	"habitquest/services/progression"
	"habitquest/services/reward"
	"habitquest/services/student"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	questsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitquest_daily_quests_completed_total",
		Help: "Daily quests completed.",
	})
	questsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitquest_daily_quests_failed_total",
		Help: "Daily quests failed by the sweep.",
	})
)

type Campaigns interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*campaign.Campaign, error)
	HabitCount(ctx context.Context, tx *gorm.DB, campaignID string) (int64, error)
	ActiveEnrollments(ctx context.Context) ([]*campaign.Enrollment, error)
}

type Progression interface {
	Apply(ctx context.Context, tx *gorm.DB, studentID string, delta int64) (*progression.Outcome, error)
	Deduct(ctx context.Context, tx *gorm.DB, studentID string, amount int64) (*student.Student, error)
}

type RewardOpener interface {
	Open(ctx context.Context, tx *gorm.DB, studentID string, typ reward.Type) (*reward.Outcome, error)
}

// CheckCounter counts the habits a student checked on a day.
type CheckCounter interface {
	CountChecks(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day time.Time) (int64, error)
}

type Tracker struct {
	db        *gorm.DB
	node      *snowflake.Node
	quests    repository.Repository[DailyQuest]
	penalties repository.Repository[PenaltyQuest]

	campaigns   Campaigns
	progression Progression
	rewards     RewardOpener
	checks      CheckCounter
	flags       featureflags.FeatureFlag
	loc         *time.Location
}

type TrackerParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Config      *config.Config `optional:"true"`
	Campaigns   Campaigns
	Progression Progression
	Rewards     RewardOpener
	Checks      CheckCounter
	Flags       featureflags.FeatureFlag `optional:"true"`
}

func NewTracker(p TrackerParams) *Tracker {
	loc := time.UTC
	if p.Config != nil {
		loc = p.Config.Engine.Location()
	}

	flags := p.Flags
	if flags == nil {
		flags = featureflags.Static{}
	}

	return &Tracker{
		db:          p.DB,
		node:        p.Node,
		quests:      repository.ProvideStore[DailyQuest](p.DB),
		penalties:   repository.ProvideStore[PenaltyQuest](p.DB),
		campaigns:   p.Campaigns,
		progression: p.Progression,
		rewards:     p.Rewards,
		checks:      p.Checks,
		flags:       flags,
		loc:         loc,
	}
}

func (t *Tracker) newQuest(studentID, campaignID string, day time.Time, total int) *DailyQuest {
	now := time.Now()
	return &DailyQuest{
		ID:          t.node.Generate().String(),
		StudentID:   studentID,
		CampaignID:  campaignID,
		QuestDate:   day,
		TotalHabits: total,
		Status:      StatusInProgress,
		BonusXP:     int64(total) * bonusXPPerHabit,
		BonusPoints: int64(total) * bonusPointsPerHabit,
		Deadline:    timeutil.EndOfDay(day, t.loc).UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ensure creates the quest of (student, campaign, day) unless it exists.
func (t *Tracker) ensure(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day time.Time, total int) (bool, error) {
	db := tx
	if db == nil {
		db = t.db
	}

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "campaign_id"}, {Name: "quest_date"}},
			DoNothing: true,
		}).
		Create(t.newQuest(studentID, campaignID, day, total))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IssueDaily creates the quest of day for every active enrollment in an
// active campaign that has habits. It returns the number of quests created.
func (t *Tracker) IssueDaily(ctx context.Context, day time.Time) (int, error) {
	enrollments, err := t.campaigns.ActiveEnrollments(ctx)
	if err != nil {
		return 0, err
	}

	type campaignInfo struct {
		active bool
		habits int64
	}
	seen := make(map[string]campaignInfo)
	now := time.Now()
	created := 0

	for _, e := range enrollments {
		info, ok := seen[e.CampaignID]
		if !ok {
			c, err := t.campaigns.Get(ctx, nil, e.CampaignID)
			if err != nil {
				zap.L().Warn("skip enrollment of unknown campaign", zap.String("campaign_id", e.CampaignID), zap.Error(err))
				seen[e.CampaignID] = campaignInfo{}
				continue
			}
			info.active = c.IsActive(now)
			if info.active {
				if info.habits, err = t.campaigns.HabitCount(ctx, nil, c.ID); err != nil {
					return created, err
				}
			}
			seen[e.CampaignID] = info
		}

		if !info.active || info.habits == 0 {
			continue
		}

		ok, err := t.ensure(ctx, nil, e.StudentID, e.CampaignID, day, int(info.habits))
		if err != nil {
			return created, fmt.Errorf("issue quest for %s/%s: %w", e.StudentID, e.CampaignID, err)
		}
		if ok {
			created++
		}
	}

	zap.L().Info("daily quests issued", zap.Time("day", day), zap.Int("created", created))
	return created, nil
}

type Progress struct {
	Quest       *DailyQuest          `json:"quest"`
	Completed   bool                 `json:"completed"`
	Progression *progression.Outcome `json:"progression,omitempty"`
	Reward      *reward.Outcome      `json:"reward,omitempty"`
}

// RecordProgress recounts the checked habits of day as of now. Completing
// the quest grants its bonus experience and, when enabled, a random box. A
// failing random box is logged and does not undo the completion. Once the
// deadline of day has passed the quest is neither created nor updated.
func (t *Tracker) RecordProgress(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day, now time.Time) (*Progress, error) {
	total, err := t.campaigns.HabitCount(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	closed := now.After(timeutil.EndOfDay(day, t.loc))
	if !closed {
		if _, err := t.ensure(ctx, tx, studentID, campaignID, day, int(total)); err != nil {
			return nil, err
		}
	}

	repo := t.quests.WithTrx(tx)
	q, err := repo.FindOne(ctx, &DailyQuest{StudentID: studentID, CampaignID: campaignID, QuestDate: day}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if q == nil {
		if closed {
			return nil, nil
		}
		return nil, errutil.Internal("daily quest missing after issue", nil)
	}

	out := &Progress{Quest: q}
	if q.Status != StatusInProgress || closed {
		return out, nil
	}

	checked, err := t.checks.CountChecks(ctx, tx, studentID, campaignID, day)
	if err != nil {
		return nil, err
	}

	q.CompletedHabits = int(min(checked, int64(q.TotalHabits)))
	q.UpdatedAt = now
	updates := map[string]any{
		"completed_habits": q.CompletedHabits,
		"updated_at":       now,
	}

	if q.CompletedHabits >= q.TotalHabits {
		q.Status = StatusCompleted
		q.CompletedAt = &now
		updates["status"] = q.Status
		updates["completed_at"] = now
	}

	if err := repo.Update(ctx, q.ID, updates); err != nil {
		return nil, err
	}

	if q.Status != StatusCompleted {
		return out, nil
	}

	out.Completed = true
	questsCompleted.Inc()

	if out.Progression, err = t.progression.Apply(ctx, tx, studentID, q.BonusXP); err != nil {
		return nil, fmt.Errorf("apply quest bonus: %w", err)
	}

	if t.flags.Enabled(ctx, featureflags.RandomBox, studentID, true) {
		out.Reward = t.openRandomBox(ctx, tx, studentID)
	}

	return out, nil
}

func (t *Tracker) openRandomBox(ctx context.Context, tx *gorm.DB, studentID string) *reward.Outcome {
	var out *reward.Outcome
	run := func(sp *gorm.DB) error {
		var err error
		out, err = t.rewards.Open(ctx, sp, studentID, reward.TypeQuestCompletion)
		return err
	}

	var err error
	if tx != nil {
		err = tx.Transaction(run)
	} else {
		err = t.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		zap.L().Warn("random box failed", zap.String("student_id", studentID), zap.Error(err))
		return nil
	}
	return out
}

type SweepResult struct {
	Failed          int `json:"failed"`
	PenaltiesIssued int `json:"penalties_issued"`
	Errors          int `json:"errors"`
}

// Sweep fails every in-progress quest whose deadline passed before now and
// issues the missed quest penalty. Each quest is settled in its own
// transaction; re-running is harmless.
func (t *Tracker) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	now = now.UTC()

	overdue, err := t.quests.Find(ctx, &DailyQuest{Status: StatusInProgress}, option.ApplyOperator(option.Condition{
		Field:    "deadline",
		Operator: option.LT,
		Value:    now,
	}))
	if err != nil {
		return res, err
	}

	for _, candidate := range overdue {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var failed, issued bool
		err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			failed, issued, err = t.failQuest(ctx, tx, candidate.ID, now)
			return err
		})
		if err != nil {
			res.Errors++
			zap.L().Error("failed to sweep quest", zap.String("quest_id", candidate.ID), zap.Error(err))
			continue
		}
		if failed {
			res.Failed++
			questsFailed.Inc()
		}
		if issued {
			res.PenaltiesIssued++
		}
	}

	zap.L().Info("quest sweep finished",
		zap.Int("failed", res.Failed),
		zap.Int("penalties", res.PenaltiesIssued),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

func (t *Tracker) failQuest(ctx context.Context, tx *gorm.DB, questID string, now time.Time) (bool, bool, error) {
	repo := t.quests.WithTrx(tx)

	q, err := repo.FindOne(ctx, &DailyQuest{ID: questID}, option.WithLockingUpdate())
	if err != nil {
		return false, false, err
	}
	// completed or swept since it was listed
	if q == nil || q.Status != StatusInProgress || !q.Deadline.Before(now) {
		return false, false, nil
	}

	if err := repo.Update(ctx, q.ID, map[string]any{
		"status":     StatusFailed,
		"updated_at": now,
	}); err != nil {
		return false, false, err
	}

	existing, err := t.penalties.WithTrx(tx).FindOne(ctx, &PenaltyQuest{
		StudentID:  q.StudentID,
		CampaignID: q.CampaignID,
		Type:       PenaltyMissedDailyQuest,
		Status:     PenaltyPending,
	})
	if err != nil {
		return true, false, err
	}
	if existing != nil {
		return true, false, nil
	}

	p := &PenaltyQuest{
		ID:          t.node.Generate().String(),
		StudentID:   q.StudentID,
		CampaignID:  q.CampaignID,
		Type:        PenaltyMissedDailyQuest,
		Description: "Failed to complete daily quest",
		PenaltyTask: fmt.Sprintf("Complete %d extra habits tomorrow to clear this penalty", q.TotalHabits*2),
		XPPenalty:   q.BonusXP,
		Deadline:    timeutil.EndOfDay(timeutil.AddDays(timeutil.Day(now, t.loc), 1), t.loc).UTC(),
		Status:      PenaltyPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.penalties.WithTrx(tx).Create(ctx, p); err != nil {
		return true, false, err
	}

	if _, err := t.progression.Deduct(ctx, tx, q.StudentID, p.XPPenalty); err != nil {
		return true, true, err
	}

	zap.L().Info("penalty issued",
		zap.String("student_id", q.StudentID),
		zap.String("campaign_id", q.CampaignID),
		zap.Int64("xp_penalty", p.XPPenalty),
	)
	return true, true, nil
}

// CompletePenalty settles a pending penalty. A penalty past its deadline is
// marked FAILED and reported as unprocessable.
func (t *Tracker) CompletePenalty(ctx context.Context, penaltyID string, now time.Time) (*PenaltyQuest, error) {
	var p *PenaltyQuest
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := t.penalties.WithTrx(tx)

		var err error
		p, err = repo.FindOne(ctx, &PenaltyQuest{ID: penaltyID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if p == nil {
			return errutil.NotFound("penalty quest not found", nil)
		}
		if p.Status != PenaltyPending {
			return errutil.Conflict("penalty quest already completed or failed", nil)
		}

		updates := map[string]any{"updated_at": now}
		if now.After(p.Deadline) {
			p.Status = PenaltyFailed
		} else {
			p.Status = PenaltyCompleted
			p.CompletedAt = &now
			updates["completed_at"] = now
		}
		updates["status"] = p.Status
		p.UpdatedAt = now

		return repo.Update(ctx, p.ID, updates)
	})
	if err != nil {
		return nil, err
	}

	if p.Status == PenaltyFailed {
		return p, errutil.UnprocessableEntity("penalty quest deadline exceeded", nil)
	}
	return p, nil
}

// Today returns the quest of day, or nil when none was issued.
func (t *Tracker) Today(ctx context.Context, studentID, campaignID string, day time.Time) (*DailyQuest, error) {
	return t.quests.FindOne(ctx, &DailyQuest{StudentID: studentID, CampaignID: campaignID, QuestDate: day})
}

func (t *Tracker) Penalties(ctx context.Context, studentID string) ([]*PenaltyQuest, error) {
	return t.penalties.Find(ctx, &PenaltyQuest{StudentID: studentID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
	}))
}
