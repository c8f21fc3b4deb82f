package referral

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitquest/pkg/errutil"
	"habitquest/services/achievement"
	"habitquest/services/campaign"
	"habitquest/services/progression"
	"habitquest/services/streak"
	"habitquest/services/student"
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGenerator struct {
	prefixes []string
}

func (g *fakeGenerator) NextReferralCode(_ context.Context, prefix string) (string, error) {
	g.prefixes = append(g.prefixes, prefix)
	return fmt.Sprintf("%s%04d", prefix, len(g.prefixes)), nil
}

type fixture struct {
	svc       *Service
	students  *student.Service
	generator *fakeGenerator
	evaluator *achievement.Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&student.Student{},
		&campaign.Campaign{}, &campaign.Habit{}, &campaign.Enrollment{},
		&streak.Record{},
		&achievement.Achievement{},
		&Code{}, &Redemption{},
	)
	node := testutil.NewNode(t)

	students := student.NewService(student.ServiceParams{DB: db, Node: node})
	ev, err := achievement.NewEvaluator(achievement.EvaluatorParams{
		DB:          db,
		Node:        node,
		Students:    students,
		Streaks:     streak.NewTracker(streak.TrackerParams{DB: db, Node: node}),
		Enrollments: campaign.NewService(campaign.ServiceParams{DB: db, Node: node}),
		Referrals:   NewCounter(db),
	})
	require.NoError(t, err)
	engine := progression.NewEngine(progression.EngineParams{DB: db, Students: students, Achievements: ev})

	gen := &fakeGenerator{}
	return &fixture{
		svc: NewService(ServiceParams{
			DB:          db,
			Node:        node,
			Students:    students,
			Progression: engine,
			Generator:   gen,
		}),
		students:  students,
		generator: gen,
		evaluator: ev,
	}
}

func (f *fixture) register(t *testing.T, name string) *student.Student {
	t.Helper()
	st, err := f.students.RegisterAt(context.Background(), name, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return st
}

func TestCodePrefix(t *testing.T) {
	require.Equal(t, "ALI", codePrefix("alice"))
	require.Equal(t, "JOD", codePrefix("Jo Doe"))
	require.Equal(t, "AL", codePrefix("Al"))
	require.Equal(t, "HQX", codePrefix("42"))
	require.Equal(t, "ZOE", codePrefix("Zoë Estrada"))
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	alice := f.register(t, "alice")
	code, err := f.svc.Generate(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Equal(t, "ALI0001", code.Code)
	require.Equal(t, DefaultMaxUses, code.MaxUses)
	require.True(t, code.ExpiresAt.Equal(now.Add(30*24*time.Hour)))

	_, err = f.svc.Generate(ctx, "missing", 3)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestApplyRewardsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	alice := f.register(t, "alice")
	_, err := f.svc.Generate(ctx, alice.ID, 5)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		friend := f.register(t, fmt.Sprintf("friend %d", i))
		res, err := f.svc.Apply(ctx, friend.ID, " ali0001 ", now.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, alice.ID, res.Redemption.ReferrerID)
		require.Equal(t, ReferredXP, res.Referred.Student.Experience)
	}

	got, err := f.students.Get(ctx, alice.ID)
	require.NoError(t, err)
	// three referrals plus the Recruiter achievement
	require.Equal(t, 3*ReferrerXP+250, got.Experience)

	list, err := f.evaluator.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Recruiter", list[0].Title)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Codes)
	require.Equal(t, int64(3), stats.Redemptions)
	require.InDelta(t, 300.0, stats.ConversionRate, 1e-9)
	require.Equal(t, []TopReferrer{{StudentID: alice.ID, Referrals: 3}}, stats.TopReferrers)
}

func TestApplyRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	single, err := f.svc.Generate(ctx, alice.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, bob.ID, "NOPE", now)
	require.True(t, errutil.Is(err, errutil.StatusNotFound), "unknown: %v", err)

	_, err = f.svc.Apply(ctx, alice.ID, single.Code, now)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "self: %v", err)

	_, err = f.svc.Apply(ctx, bob.ID, single.Code, now.Add(31*24*time.Hour))
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity), "expired: %v", err)

	_, err = f.svc.Apply(ctx, bob.ID, single.Code, now)
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, carol.ID, single.Code, now)
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity), "exhausted: %v", err)

	other, err := f.svc.Generate(ctx, carol.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, bob.ID, other.Code, now)
	require.True(t, errutil.Is(err, errutil.StatusConflict), "already referred: %v", err)

	got, err := f.students.Get(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, ReferredXP, got.Experience)
}
