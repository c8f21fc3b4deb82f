package progression

import (
	"context"
	"fmt"

	"habitquest/pkg/config"
	"habitquest/pkg/errutil"
	"habitquest/services/achievement"
	"habitquest/services/student"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCascadeLimit = 10

var (
	levelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitquest_level_ups_total",
		Help: "Levels gained by students.",
	})
	rankPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitquest_rank_promotions_total",
		Help: "Rank promotions, by new rank.",
	}, []string{"rank"})
)

type StudentStore interface {
	Lock(ctx context.Context, tx *gorm.DB, id string) (*student.Student, error)
	SaveProgress(ctx context.Context, tx *gorm.DB, st *student.Student) error
}

type Achievements interface {
	Evaluate(ctx context.Context, tx *gorm.DB, studentID string) ([]*achievement.Achievement, error)
	Grant(ctx context.Context, tx *gorm.DB, studentID string, g achievement.Grant) (*achievement.Achievement, bool, error)
}

// Engine owns experience, level and rank of students.
type Engine struct {
	db           *gorm.DB
	students     StudentStore
	achievements Achievements
	cascadeLimit int
}

type EngineParams struct {
	fx.In

	DB           *gorm.DB
	Config       *config.Config `optional:"true"`
	Students     StudentStore
	Achievements Achievements
}

func NewEngine(p EngineParams) *Engine {
	limit := defaultCascadeLimit
	if p.Config != nil && p.Config.Engine.CascadeLimit > 0 {
		limit = p.Config.Engine.CascadeLimit
	}

	return &Engine{
		db:           p.DB,
		students:     p.Students,
		achievements: p.Achievements,
		cascadeLimit: limit,
	}
}

type Outcome struct {
	Student             *student.Student           `json:"student"`
	AchievementsGranted []*achievement.Achievement `json:"achievements_granted,omitempty"`
	LevelsGained        int                        `json:"levels_gained"`
	PreviousRank        student.Rank               `json:"previous_rank"`
	RankChanged         bool                       `json:"rank_changed"`
}

func (e *Engine) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return e.db.WithContext(ctx).Transaction(fn)
}

// Apply adds delta experience and settles levels, ranks and achievements.
// Experience granted by achievements unlocked on the way is applied in turn
// until nothing new unlocks or the cascade limit is hit. A zero delta only
// runs the cascade.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, studentID string, delta int64) (*Outcome, error) {
	if delta < 0 {
		return nil, errutil.BadRequest("experience delta must not be negative", nil)
	}

	var out *Outcome
	err := e.inTx(ctx, tx, func(tx *gorm.DB) error {
		st, err := e.students.Lock(ctx, tx, studentID)
		if err != nil {
			return err
		}

		out = &Outcome{Student: st, PreviousRank: st.Rank}
		pending := delta

		for iter := 1; ; iter++ {
			st.Experience += pending
			pending = 0

			created, err := e.settle(ctx, tx, st, out)
			if err != nil {
				return err
			}

			if err := e.students.SaveProgress(ctx, tx, st); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}

			created = append(created, e.evaluate(ctx, tx, studentID)...)

			for _, a := range created {
				pending += a.XPReward
				st.BonusPoints += a.PointsReward
			}
			out.AchievementsGranted = append(out.AchievementsGranted, created...)

			if pending == 0 {
				break
			}

			if iter >= e.cascadeLimit {
				zap.L().Warn("achievement cascade limit reached",
					zap.String("student_id", studentID),
					zap.Int("limit", e.cascadeLimit),
					zap.Int64("pending_xp", pending),
				)
				st.Experience += pending
				more, err := e.settle(ctx, tx, st, out)
				if err != nil {
					return err
				}
				for _, a := range more {
					st.BonusPoints += a.PointsReward
				}
				out.AchievementsGranted = append(out.AchievementsGranted, more...)
				break
			}
		}

		if err := e.students.SaveProgress(ctx, tx, st); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.RankChanged = out.Student.Rank != out.PreviousRank
	return out, nil
}

// evaluate runs the catalog inside a savepoint. A failure rolls back only
// the grants of this evaluation; experience already settled is kept.
func (e *Engine) evaluate(ctx context.Context, tx *gorm.DB, studentID string) []*achievement.Achievement {
	var evaluated []*achievement.Achievement
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		evaluated, err = e.achievements.Evaluate(ctx, sp, studentID)
		return err
	})
	if err != nil {
		zap.L().Warn("evaluate achievements",
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		return nil
	}
	return evaluated
}

// settle raises the level while experience covers the current threshold,
// promoting rank and granting milestones for every level crossed.
func (e *Engine) settle(ctx context.Context, tx *gorm.DB, st *student.Student, out *Outcome) ([]*achievement.Achievement, error) {
	var created []*achievement.Achievement

	grant := func(g achievement.Grant) error {
		a, ok, err := e.achievements.Grant(ctx, tx, st.ID, g)
		if err != nil {
			return err
		}
		if ok {
			created = append(created, a)
		}
		return nil
	}

	if st.Level < 1 {
		st.Level = 1
	}

	for st.Experience >= CumulativeThreshold(st.Level) {
		st.Level++
		out.LevelsGained++
		levelUps.Inc()

		if st.Level%10 == 0 {
			if err := grant(levelGrant(st.Level)); err != nil {
				return nil, err
			}
		}

		p, ok := promotions[st.Level]
		if !ok || st.Rank != p.from {
			continue
		}
		st.Rank = p.to
		rankPromotions.WithLabelValues(string(p.to)).Inc()
		zap.L().Info("rank promoted",
			zap.String("student_id", st.ID),
			zap.String("rank", string(p.to)),
			zap.Int("level", st.Level),
		)
		g, err := rankGrant(p)
		if err != nil {
			return nil, err
		}
		if err := grant(g); err != nil {
			return nil, err
		}
	}

	return created, nil
}

// Deduct removes experience, floored at zero. Level and rank are kept.
func (e *Engine) Deduct(ctx context.Context, tx *gorm.DB, studentID string, amount int64) (*student.Student, error) {
	if amount < 0 {
		return nil, errutil.BadRequest("deduction must not be negative", nil)
	}

	var st *student.Student
	err := e.inTx(ctx, tx, func(tx *gorm.DB) error {
		var err error
		st, err = e.students.Lock(ctx, tx, studentID)
		if err != nil {
			return err
		}

		st.Experience = max(0, st.Experience-amount)
		return e.students.SaveProgress(ctx, tx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
