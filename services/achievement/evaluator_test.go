package achievement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"habitquest/pkg/timeutil"
	"habitquest/services/campaign"
	"habitquest/services/streak"
	"habitquest/services/student"
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeReferrals map[string]int64

func (f fakeReferrals) CountReferrals(_ context.Context, _ *gorm.DB, referrerID string) (int64, error) {
	return f[referrerID], nil
}

type fixture struct {
	evaluator *Evaluator
	students  *student.Service
	campaigns *campaign.Service
	streaks   *streak.Tracker
	referrals fakeReferrals
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&student.Student{},
		&campaign.Campaign{}, &campaign.Habit{}, &campaign.Enrollment{},
		&streak.Record{},
		&Achievement{},
	)
	node := testutil.NewNode(t)

	f := &fixture{
		students:  student.NewService(student.ServiceParams{DB: db, Node: node}),
		campaigns: campaign.NewService(campaign.ServiceParams{DB: db, Node: node}),
		streaks:   streak.NewTracker(streak.TrackerParams{DB: db, Node: node}),
		referrals: fakeReferrals{},
	}

	ev, err := NewEvaluator(EvaluatorParams{
		DB:          db,
		Node:        node,
		Students:    f.students,
		Streaks:     f.streaks,
		Enrollments: f.campaigns,
		Referrals:   f.referrals,
	})
	require.NoError(t, err)
	f.evaluator = ev
	return f
}

func titles(list []*Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Title)
	}
	return out
}

func TestCatalogCompiles(t *testing.T) {
	catalog, err := Compile(Definitions)
	require.NoError(t, err)
	require.Len(t, catalog, len(Definitions))
}

func TestCompileRejectsNonBoolPredicate(t *testing.T) {
	_, err := Compile([]Definition{{Title: "broken", Predicate: "level + 1"}})
	require.Error(t, err)
}

func TestFirstQuestGrantedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.students.Register(ctx, "Jin")
	require.NoError(t, err)

	granted, err := f.evaluator.Evaluate(ctx, nil, st.ID)
	require.NoError(t, err)
	require.Empty(t, granted)

	c, _, err := f.campaigns.Create(ctx, campaign.CreateParams{Name: "Read daily", Habits: []string{"read"}})
	require.NoError(t, err)
	_, _, err = f.campaigns.Enroll(ctx, nil, st.ID, c.ID, time.Now())
	require.NoError(t, err)

	granted, err = f.evaluator.Evaluate(ctx, nil, st.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"First Quest"}, titles(granted))
	require.Equal(t, int64(25), granted[0].XPReward)

	granted, err = f.evaluator.Evaluate(ctx, nil, st.ID)
	require.NoError(t, err)
	require.Empty(t, granted)

	list, err := f.evaluator.List(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestEvaluateGrantsInCatalogOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.students.RegisterAt(ctx, "Cha", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	day := timeutil.Date(2026, 5, 1)
	for i := 0; i < 7; i++ {
		_, err := f.streaks.RecordCompletion(ctx, nil, st.ID, "c1", timeutil.AddDays(day, i))
		require.NoError(t, err)
	}

	st.Level = 10
	st.Rank = student.RankD
	require.NoError(t, f.students.SaveProgress(ctx, nil, st))
	f.referrals[st.ID] = 3

	granted, err := f.evaluator.Evaluate(ctx, nil, st.ID)
	require.NoError(t, err)
	require.Equal(t, []string{
		"D-Rank Hunter",
		"Streak Starter",
		"Level 10 Reached",
		"Recruiter",
		"Early Adopter",
	}, titles(granted))
}

func TestGrantIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := Grant{Title: "Level 10 Achieved", Category: CategoryLevel, XPReward: 100, PointsReward: 50}

	first, created, err := f.evaluator.Grant(ctx, nil, "s1", g)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := f.evaluator.Grant(ctx, nil, "s1", g)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, again.ID)
}

func TestProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.students.Register(ctx, "Hae")
	require.NoError(t, err)

	day := timeutil.Date(2026, 5, 1)
	for i := 0; i < 3; i++ {
		_, err := f.streaks.RecordCompletion(ctx, nil, st.ID, "c1", timeutil.AddDays(day, i))
		require.NoError(t, err)
	}
	_, _, err = f.evaluator.Grant(ctx, nil, st.ID, Definitions[12].Grant())
	require.NoError(t, err)

	progress, err := f.evaluator.Progress(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, progress, len(Definitions))

	byTitle := make(map[string]DefinitionProgress, len(progress))
	for _, p := range progress {
		byTitle[p.Title] = p
	}

	require.True(t, byTitle["First Quest"].Unlocked)
	require.Equal(t, 100.0, byTitle["First Quest"].Percent)
	require.InDelta(t, 3.0/7*100, byTitle["Streak Starter"].Percent, 0.001)
	require.InDelta(t, 10.0, byTitle["Level 10 Reached"].Percent, 0.001)
	require.Zero(t, byTitle["D-Rank Hunter"].Percent)
	require.Zero(t, byTitle["Early Adopter"].Percent)
}
