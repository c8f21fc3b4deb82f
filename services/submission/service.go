package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitquest/pkg/config"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"
	"habitquest/pkg/timeutil"
	"habitquest/services/achievement"
	"habitquest/services/campaign"
	"habitquest/services/leaderboard"
	"habitquest/services/points"
	"habitquest/services/progression"
	"habitquest/services/quest"
	"habitquest/services/reward"
	"habitquest/services/streak"
	"habitquest/services/student"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const defaultBasePoints = 10

var (
	submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitquest_submissions_total",
		Help: "Accepted daily submissions.",
	})
	pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitquest_points_awarded_total",
		Help: "Points written to the points ledger.",
	})
)

type Students interface {
	Get(ctx context.Context, id string) (*student.Student, error)
	Load(ctx context.Context, tx *gorm.DB, id string) (*student.Student, error)
}

type Campaigns interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*campaign.Campaign, error)
	Habits(ctx context.Context, tx *gorm.DB, campaignID string) ([]*campaign.Habit, error)
	Enrollment(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*campaign.Enrollment, error)
	Enroll(ctx context.Context, tx *gorm.DB, studentID, campaignID string, now time.Time) (*campaign.Enrollment, bool, error)
	Unenroll(ctx context.Context, tx *gorm.DB, studentID, campaignID string, now time.Time) (*campaign.Enrollment, error)
}

type Streaks interface {
	Get(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*streak.Record, error)
	RecordCompletion(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day time.Time) (*streak.Record, error)
	Reset(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*streak.Record, error)
	Delete(ctx context.Context, tx *gorm.DB, studentID, campaignID string) error
}

type Ledger interface {
	Append(ctx context.Context, tx *gorm.DB, p points.EntryParams) (*points.Entry, error)
	Total(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (int64, error)
}

type Quests interface {
	RecordProgress(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day, now time.Time) (*quest.Progress, error)
	Today(ctx context.Context, studentID, campaignID string, day time.Time) (*quest.DailyQuest, error)
}

type Progression interface {
	Apply(ctx context.Context, tx *gorm.DB, studentID string, delta int64) (*progression.Outcome, error)
}

// ScoreBoard mirrors awarded points into the campaign leaderboard.
type ScoreBoard interface {
	Add(ctx context.Context, campaignID, studentID string, points int64) error
	Position(ctx context.Context, campaignID, studentID string) (*leaderboard.Standing, error)
}

// Service is the single entry point for enrollments and daily submissions.
type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	submissions repository.Repository[Submission]
	checks      repository.Repository[HabitCheck]

	students    Students
	campaigns   Campaigns
	streaks     Streaks
	ledger      Ledger
	quests      Quests
	progression Progression
	board       ScoreBoard

	basePoints int64
	loc        *time.Location
	now        func() time.Time
	group      singleflight.Group
}

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Config      *config.Config `optional:"true"`
	Students    Students
	Campaigns   Campaigns
	Streaks     Streaks
	Ledger      Ledger
	Quests      Quests
	Progression Progression
	Board       ScoreBoard `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:          p.DB,
		node:        p.Node,
		submissions: repository.ProvideStore[Submission](p.DB),
		checks:      repository.ProvideStore[HabitCheck](p.DB),
		students:    p.Students,
		campaigns:   p.Campaigns,
		streaks:     p.Streaks,
		ledger:      p.Ledger,
		quests:      p.Quests,
		progression: p.Progression,
		board:       p.Board,
		basePoints:  defaultBasePoints,
		loc:         time.UTC,
		now:         time.Now,
	}

	if p.Config != nil {
		if p.Config.Engine.BasePoints > 0 {
			s.basePoints = p.Config.Engine.BasePoints
		}
		s.loc = p.Config.Engine.Location()
	}
	return s
}

func (s *Service) today() time.Time {
	return timeutil.Day(s.now(), s.loc)
}

// evaluateAchievements runs the achievement cascade in a savepoint. A
// failure is logged and rolled back to the savepoint only.
func (s *Service) evaluateAchievements(ctx context.Context, tx *gorm.DB, studentID string) []*achievement.Achievement {
	var out *progression.Outcome
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		out, err = s.progression.Apply(ctx, sp, studentID, 0)
		return err
	})
	if err != nil {
		zap.L().Warn("achievement evaluation failed", zap.String("student_id", studentID), zap.Error(err))
		return nil
	}
	return out.AchievementsGranted
}

type EnrollResult struct {
	Enrollment          *campaign.Enrollment       `json:"enrollment"`
	Streak              *streak.Record             `json:"streak"`
	AlreadyEnrolled     bool                       `json:"already_enrolled"`
	AchievementsGranted []*achievement.Achievement `json:"achievements_granted,omitempty"`
}

// Enroll joins an active campaign. Joining again after leaving starts a
// fresh streak; enrolling twice while active changes nothing.
func (s *Service) Enroll(ctx context.Context, studentID, campaignID string) (*EnrollResult, error) {
	now := s.now()
	res := &EnrollResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.students.Load(ctx, tx, studentID); err != nil {
			return err
		}

		c, err := s.campaigns.Get(ctx, tx, campaignID)
		if err != nil {
			return err
		}
		if !c.IsActive(now) {
			return errutil.BadRequest("campaign is not active", nil)
		}

		e, already, err := s.campaigns.Enroll(ctx, tx, studentID, campaignID, now)
		if err != nil {
			return err
		}
		res.Enrollment = e
		res.AlreadyEnrolled = already

		if already {
			res.Streak, err = s.streaks.Get(ctx, tx, studentID, campaignID)
			return err
		}

		if res.Streak, err = s.streaks.Reset(ctx, tx, studentID, campaignID); err != nil {
			return fmt.Errorf("reset streak: %w", err)
		}

		res.AchievementsGranted = s.evaluateAchievements(ctx, tx, studentID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("campaign_id", campaignID),
		zap.Bool("already_enrolled", res.AlreadyEnrolled),
	)
	return res, nil
}

// Unenroll leaves a campaign and discards its streak.
func (s *Service) Unenroll(ctx context.Context, studentID, campaignID string) (*campaign.Enrollment, error) {
	var e *campaign.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if e, err = s.campaigns.Unenroll(ctx, tx, studentID, campaignID, s.now()); err != nil {
			return err
		}
		return s.streaks.Delete(ctx, tx, studentID, campaignID)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

type Request struct {
	StudentID  string
	CampaignID string
	// Day defaults to today in the engine timezone. Only its date is used.
	Day      time.Time
	Rating   Rating
	HabitIDs []string
}

type Result struct {
	Submission          *Submission                `json:"submission"`
	Streak              *streak.Record             `json:"streak"`
	Points              *points.Entry              `json:"points,omitempty"`
	Quest               *quest.Progress            `json:"quest,omitempty"`
	AchievementsGranted []*achievement.Achievement `json:"achievements_granted,omitempty"`
	Reward              *reward.Outcome            `json:"reward,omitempty"`
}

// Submit records a completed day: streak, points, habit checks, daily
// quest progress and achievements, all in one transaction.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	if !req.Rating.Valid() {
		return nil, errutil.BadRequest("invalid rating", nil)
	}

	today := s.today()
	day := today
	if !req.Day.IsZero() {
		day = timeutil.Date(req.Day.Year(), req.Day.Month(), req.Day.Day())
	}
	if day.After(today) {
		return nil, errutil.BadRequest("cannot submit for a future day", nil)
	}

	res := &Result{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.students.Load(ctx, tx, req.StudentID); err != nil {
			return err
		}
		if _, err := s.campaigns.Get(ctx, tx, req.CampaignID); err != nil {
			return err
		}

		e, err := s.campaigns.Enrollment(ctx, tx, req.StudentID, req.CampaignID)
		if err != nil {
			return err
		}
		if e == nil || e.Status != campaign.EnrollmentStatusActive {
			return errutil.NotFound("enrollment not found", nil)
		}

		habits, err := s.selectHabits(ctx, tx, req.CampaignID, req.HabitIDs)
		if err != nil {
			return err
		}

		sub, err := s.createSubmission(ctx, tx, req, day)
		if err != nil {
			return err
		}
		res.Submission = sub

		if res.Streak, err = s.streaks.RecordCompletion(ctx, tx, req.StudentID, req.CampaignID, day); err != nil {
			return fmt.Errorf("record streak: %w", err)
		}

		meta := map[string]any{"submission_date": day.Format("2006-01-02")}
		if req.Rating != "" {
			meta["rating"] = req.Rating
		}
		if res.Points, err = s.ledger.Append(ctx, tx, points.EntryParams{
			StudentID:       req.StudentID,
			CampaignID:      req.CampaignID,
			SubmissionID:    sub.ID,
			StreakDays:      res.Streak.CurrentStreak,
			BasePoints:      s.basePoints,
			BonusMultiplier: 1.0,
			Metadata:        meta,
		}); err != nil {
			return fmt.Errorf("append points: %w", err)
		}

		sub.StreakDays = res.Streak.CurrentStreak
		if res.Points != nil {
			sub.PointsEarned = res.Points.TotalPoints
		}
		if err := s.submissions.WithTrx(tx).Update(ctx, sub.ID, map[string]any{
			"streak_days":   sub.StreakDays,
			"points_earned": sub.PointsEarned,
		}); err != nil {
			return err
		}

		if err := s.checkHabits(ctx, tx, sub, habits); err != nil {
			return err
		}

		if res.Quest, err = s.quests.RecordProgress(ctx, tx, req.StudentID, req.CampaignID, day, s.now()); err != nil {
			return fmt.Errorf("quest progress: %w", err)
		}
		if res.Quest != nil {
			res.Reward = res.Quest.Reward
			if res.Quest.Progression != nil {
				res.AchievementsGranted = append(res.AchievementsGranted, res.Quest.Progression.AchievementsGranted...)
			}
		}

		res.AchievementsGranted = append(res.AchievementsGranted, s.evaluateAchievements(ctx, tx, req.StudentID)...)
		return nil
	})
	if err != nil {
		if !errors.As(err, new(errutil.BaseError)) {
			zap.L().Error("failed to submit",
				zap.String("student_id", req.StudentID),
				zap.String("campaign_id", req.CampaignID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	submissionsTotal.Inc()
	if res.Points != nil {
		pointsAwarded.Add(float64(res.Points.TotalPoints))
		if s.board != nil {
			if err := s.board.Add(ctx, req.CampaignID, req.StudentID, res.Points.TotalPoints); err != nil {
				zap.L().Warn("failed to update leaderboard", zap.String("campaign_id", req.CampaignID), zap.Error(err))
			}
		}
	}

	return res, nil
}

func (s *Service) createSubmission(ctx context.Context, tx *gorm.DB, req Request, day time.Time) (*Submission, error) {
	repo := s.submissions.WithTrx(tx)

	existing, err := repo.FindOne(ctx, &Submission{StudentID: req.StudentID, CampaignID: req.CampaignID, SubmissionDate: day})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("already submitted for this day", nil)
	}

	sub := &Submission{
		ID:             s.node.Generate().String(),
		StudentID:      req.StudentID,
		CampaignID:     req.CampaignID,
		SubmissionDate: day,
		Rating:         req.Rating,
		SubmittedAt:    s.now(),
	}
	if err := repo.Create(ctx, sub); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict("already submitted for this day", err)
		}
		return nil, err
	}
	return sub, nil
}

// selectHabits resolves the habits a submission checks. An empty list
// means every habit of the campaign.
func (s *Service) selectHabits(ctx context.Context, tx *gorm.DB, campaignID string, ids []string) ([]*campaign.Habit, error) {
	habits, err := s.campaigns.Habits(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return habits, nil
	}

	byID := make(map[string]*campaign.Habit, len(habits))
	for _, h := range habits {
		byID[h.ID] = h
	}

	seen := make(map[string]bool, len(ids))
	out := make([]*campaign.Habit, 0, len(ids))
	for _, id := range ids {
		h, ok := byID[id]
		if !ok {
			return nil, errutil.BadRequest("habit does not belong to campaign", nil, errutil.WithDetails(errutil.Detail{
				Field:   "habit_ids",
				Message: id,
			}))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, h)
	}
	return out, nil
}

func (s *Service) checkHabits(ctx context.Context, tx *gorm.DB, sub *Submission, habits []*campaign.Habit) error {
	checks := make([]*HabitCheck, 0, len(habits))
	for _, h := range habits {
		checks = append(checks, &HabitCheck{
			ID:           s.node.Generate().String(),
			SubmissionID: sub.ID,
			HabitID:      h.ID,
			StudentID:    sub.StudentID,
			CampaignID:   sub.CampaignID,
			CheckDate:    sub.SubmissionDate,
			CreatedAt:    sub.SubmittedAt,
		})
	}
	return s.checks.WithTrx(tx).BatchCreate(ctx, checks)
}
