package achievement

import (
	"context"
	"fmt"
	"time"

	"habitquest/pkg/celengine"
	"habitquest/pkg/db/option"
	"habitquest/pkg/repository"
	"habitquest/services/campaign"
	"habitquest/services/student"

	"github.com/bwmarrin/snowflake"
	"github.com/google/cel-go/cel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var achievementsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "habitquest_achievements_granted_total",
	Help: "Achievements unlocked, by category.",
}, []string{"category"})

type StudentLoader interface {
	Load(ctx context.Context, tx *gorm.DB, id string) (*student.Student, error)
}

type StreakReader interface {
	MaxCurrent(ctx context.Context, tx *gorm.DB, studentID string) (int, error)
}

type EnrollmentCounter interface {
	CountEnrollments(ctx context.Context, tx *gorm.DB, studentID string) (campaign.EnrollmentCounts, error)
}

type ReferralCounter interface {
	CountReferrals(ctx context.Context, tx *gorm.DB, referrerID string) (int64, error)
}

type compiled struct {
	def     Definition
	program cel.Program
}

// Evaluator grants catalog achievements whose predicates hold. It never
// applies experience itself; callers own the cascade.
type Evaluator struct {
	db           *gorm.DB
	node         *snowflake.Node
	achievements repository.Repository[Achievement]

	students    StudentLoader
	streaks     StreakReader
	enrollments EnrollmentCounter
	referrals   ReferralCounter

	catalog []compiled
}

type EvaluatorParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Students    StudentLoader
	Streaks     StreakReader
	Enrollments EnrollmentCounter
	Referrals   ReferralCounter `optional:"true"`
}

func NewEvaluator(p EvaluatorParams) (*Evaluator, error) {
	catalog, err := Compile(Definitions)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		db:           p.DB,
		node:         p.Node,
		achievements: repository.ProvideStore[Achievement](p.DB),
		students:     p.Students,
		streaks:      p.Streaks,
		enrollments:  p.Enrollments,
		referrals:    p.Referrals,
		catalog:      catalog,
	}, nil
}

// Compile type-checks every predicate against the snapshot attributes.
func Compile(defs []Definition) ([]compiled, error) {
	env, err := celengine.BuildCelEnvFromAttributes(Snapshot{}.Attributes())
	if err != nil {
		return nil, fmt.Errorf("build achievement env: %w", err)
	}

	out := make([]compiled, 0, len(defs))
	for _, d := range defs {
		prg, err := celengine.CompileBool(env, d.Predicate)
		if err != nil {
			return nil, fmt.Errorf("compile achievement %q: %w", d.Title, err)
		}
		out = append(out, compiled{def: d, program: prg})
	}
	return out, nil
}

func (e *Evaluator) Snapshot(ctx context.Context, tx *gorm.DB, studentID string) (Snapshot, error) {
	st, err := e.students.Load(ctx, tx, studentID)
	if err != nil {
		return Snapshot{}, err
	}

	maxStreak, err := e.streaks.MaxCurrent(ctx, tx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("max streak: %w", err)
	}

	counts, err := e.enrollments.CountEnrollments(ctx, tx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count enrollments: %w", err)
	}

	var referrals int64
	if e.referrals != nil {
		if referrals, err = e.referrals.CountReferrals(ctx, tx, studentID); err != nil {
			return Snapshot{}, fmt.Errorf("count referrals: %w", err)
		}
	}

	return Snapshot{
		Rank:                st.Rank,
		Level:               int64(st.Level),
		MaxStreak:           int64(maxStreak),
		Enrollments:         counts.Total,
		FinishedEnrollments: counts.Finished,
		CreatedAtUnix:       st.CreatedAt.Unix(),
		Referrals:           referrals,
	}, nil
}

// Evaluate grants, in catalog order, every definition the student does not
// hold yet whose predicate holds. Only newly created achievements are returned.
func (e *Evaluator) Evaluate(ctx context.Context, tx *gorm.DB, studentID string) ([]*Achievement, error) {
	snap, err := e.Snapshot(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	held, err := e.heldTitles(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	attrs := snap.Attributes()
	var granted []*Achievement
	for _, c := range e.catalog {
		if held[c.def.Title] {
			continue
		}

		ok, err := celengine.EvalBool(c.program, attrs)
		if err != nil {
			zap.L().Warn("achievement predicate failed",
				zap.String("title", c.def.Title),
				zap.String("student_id", studentID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		a, created, err := e.Grant(ctx, tx, studentID, c.def.Grant())
		if err != nil {
			return granted, err
		}
		if created {
			granted = append(granted, a)
		}
	}

	return granted, nil
}

// Grant inserts the achievement unless the student already holds the title.
// The bool reports whether a row was created.
func (e *Evaluator) Grant(ctx context.Context, tx *gorm.DB, studentID string, g Grant) (*Achievement, bool, error) {
	db := tx
	if db == nil {
		db = e.db
	}

	a := &Achievement{
		ID:           e.node.Generate().String(),
		StudentID:    studentID,
		Title:        g.Title,
		Category:     g.Category,
		Description:  g.Description,
		XPReward:     g.XPReward,
		PointsReward: g.PointsReward,
		UnlockedAt:   time.Now(),
	}

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "title"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return nil, false, fmt.Errorf("grant achievement %q: %w", g.Title, res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := e.achievements.WithTrx(tx).FindOne(ctx, &Achievement{StudentID: studentID, Title: g.Title})
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	achievementsGranted.WithLabelValues(string(g.Category)).Inc()
	zap.L().Info("achievement unlocked",
		zap.String("student_id", studentID),
		zap.String("title", g.Title),
	)
	return a, true, nil
}

func (e *Evaluator) heldTitles(ctx context.Context, tx *gorm.DB, studentID string) (map[string]bool, error) {
	list, err := e.achievements.WithTrx(tx).Find(ctx, &Achievement{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(list))
	for _, a := range list {
		held[a.Title] = true
	}
	return held, nil
}

func (e *Evaluator) List(ctx context.Context, studentID string) ([]*Achievement, error) {
	return e.achievements.Find(ctx, &Achievement{StudentID: studentID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "unlocked_at",
		OrderBy: "asc",
	}))
}

type DefinitionProgress struct {
	Title        string     `json:"title"`
	Category     Category   `json:"category"`
	Description  string     `json:"description"`
	XPReward     int64      `json:"xp_reward"`
	PointsReward int64      `json:"points_reward"`
	Unlocked     bool       `json:"unlocked"`
	UnlockedAt   *time.Time `json:"unlocked_at,omitempty"`
	Percent      float64    `json:"percent"`
}

// Progress lists every catalog definition with the student's progress toward it.
func (e *Evaluator) Progress(ctx context.Context, studentID string) ([]DefinitionProgress, error) {
	snap, err := e.Snapshot(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}

	list, err := e.achievements.Find(ctx, &Achievement{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]*Achievement, len(list))
	for _, a := range list {
		unlocked[a.Title] = a
	}

	out := make([]DefinitionProgress, 0, len(e.catalog))
	for _, c := range e.catalog {
		p := DefinitionProgress{
			Title:        c.def.Title,
			Category:     c.def.Category,
			Description:  c.def.Description,
			XPReward:     c.def.XPReward,
			PointsReward: c.def.PointsReward,
		}
		if a, ok := unlocked[c.def.Title]; ok {
			p.Unlocked = true
			p.UnlockedAt = &a.UnlockedAt
		}
		p.Percent = snap.Percent(c.def, p.Unlocked)
		out = append(out, p)
	}
	return out, nil
}
