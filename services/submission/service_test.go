package submission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitquest/pkg/errutil"
	"habitquest/pkg/featureflags"
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
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

type fixture struct {
	svc       *Service
	students  *student.Service
	campaigns *campaign.Service
	ledger    *points.Ledger
	quests    *quest.Tracker
	board     *leaderboard.Board
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&student.Student{},
		&campaign.Campaign{}, &campaign.Habit{}, &campaign.Enrollment{},
		&streak.Record{},
		&points.Entry{},
		&achievement.Achievement{},
		&reward.Reward{},
		&quest.DailyQuest{}, &quest.PenaltyQuest{},
		&Submission{}, &HabitCheck{},
	)
	node := testutil.NewNode(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	students := student.NewService(student.ServiceParams{DB: db, Node: node})
	campaigns := campaign.NewService(campaign.ServiceParams{DB: db, Node: node})
	streaks := streak.NewTracker(streak.TrackerParams{DB: db, Node: node})
	ledger := points.NewLedger(points.LedgerParams{DB: db, Node: node})
	board := leaderboard.NewBoard(leaderboard.Params{Redis: rdb})

	ev, err := achievement.NewEvaluator(achievement.EvaluatorParams{
		DB:          db,
		Node:        node,
		Students:    students,
		Streaks:     streaks,
		Enrollments: campaigns,
	})
	require.NoError(t, err)

	engine := progression.NewEngine(progression.EngineParams{DB: db, Students: students, Achievements: ev})
	rewards := reward.NewService(reward.ServiceParams{
		DB:          db,
		Node:        node,
		Progression: engine,
		Bonus:       students,
		Source:      fixedSource(0),
	})
	quests := quest.NewTracker(quest.TrackerParams{
		DB:          db,
		Node:        node,
		Campaigns:   campaigns,
		Progression: engine,
		Rewards:     rewards,
		Checks:      NewCheckStore(db),
		Flags:       featureflags.Static{featureflags.RandomBox: false},
	})

	svc := NewService(ServiceParams{
		DB:          db,
		Node:        node,
		Students:    students,
		Campaigns:   campaigns,
		Streaks:     streaks,
		Ledger:      ledger,
		Quests:      quests,
		Progression: engine,
		Board:       board,
	})

	return &fixture{
		svc:       svc,
		students:  students,
		campaigns: campaigns,
		ledger:    ledger,
		quests:    quests,
		board:     board,
	}
}

// at pins the service clock to noon of day.
func (f *fixture) at(day time.Time) {
	f.svc.now = func() time.Time { return day.Add(12 * time.Hour) }
}

func (f *fixture) seed(t *testing.T, habits ...string) (*student.Student, *campaign.Campaign, []*campaign.Habit) {
	t.Helper()
	ctx := context.Background()

	st, err := f.students.RegisterAt(ctx, "Ada", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	c, hs, err := f.campaigns.Create(ctx, campaign.CreateParams{Name: "Morning routine", Habits: habits})
	require.NoError(t, err)
	return st, c, hs
}

func titles(as []*achievement.Achievement) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Title)
	}
	return out
}

func TestSubmitScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch", "Read")

	day1 := timeutil.Date(2026, 5, 4)
	f.at(day1)

	enrolled, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.False(t, enrolled.AlreadyEnrolled)
	require.Equal(t, 0, enrolled.Streak.CurrentStreak)
	require.Equal(t, []string{"First Quest"}, titles(enrolled.AchievementsGranted))

	cases := []struct {
		offset int
		streak int
		points int64
	}{
		{0, 1, 10},
		{1, 2, 10},
		{2, 3, 12},
		// day 4 skipped
		{4, 1, 10},
	}

	for _, tc := range cases {
		f.at(timeutil.AddDays(day1, tc.offset))
		res, err := f.svc.Submit(ctx, Request{
			StudentID:  st.ID,
			CampaignID: c.ID,
			Day:        timeutil.AddDays(day1, tc.offset),
			Rating:     RatingGood,
		})
		require.NoError(t, err)
		require.Equal(t, tc.streak, res.Streak.CurrentStreak)
		require.NotNil(t, res.Points)
		require.Equal(t, tc.points, res.Points.TotalPoints)
		require.Equal(t, tc.points, res.Submission.PointsEarned)
		require.NotNil(t, res.Quest)
		require.True(t, res.Quest.Completed)
		require.Nil(t, res.Reward)
	}

	total, err := f.ledger.Total(ctx, nil, st.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(42), total)

	ok, err := f.ledger.VerifyChain(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := f.students.Get(ctx, st.ID)
	require.NoError(t, err)
	// First Quest plus four quest bonuses of 2 habits x 5.
	require.Equal(t, int64(25+4*10), got.Experience)
	require.Equal(t, 1, got.Level)
	require.Equal(t, int64(10), got.BonusPoints)

	standing, err := f.board.Position(ctx, c.ID, st.ID)
	require.NoError(t, err)
	require.Equal(t, int64(42), standing.Points)
	require.Equal(t, int64(1), standing.Position)

	d, err := f.svc.Dashboard(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(42), d.PointsTotal)
	require.Equal(t, 1, d.Streak.CurrentStreak)
	require.Equal(t, 3, d.Streak.LongestStreak)
	require.NotNil(t, d.Today)
	require.Equal(t, quest.StatusCompleted, d.Today.Status)
	require.Equal(t, int64(42), d.Standing.Points)
}

func TestSubmitDuplicateDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch")

	day := timeutil.Date(2026, 5, 4)
	f.at(day)
	_, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, Day: day})
	require.True(t, errutil.Is(err, errutil.StatusConflict), "got %v", err)

	total, err := f.ledger.Total(ctx, nil, st.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
}

func TestSubmitRejectsDayBeforeLastSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch")

	start := timeutil.Date(2026, 7, 8)
	f.at(start)
	_, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.at(timeutil.AddDays(start, i))
		_, err := f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
		require.NoError(t, err)
	}

	f.at(timeutil.Date(2026, 7, 11))
	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, Day: timeutil.Date(2026, 7, 5)})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "got %v", err)

	got, err := f.students.Get(ctx, st.ID)
	require.NoError(t, err)
	// First Quest plus three quest bonuses of 1 habit x 5.
	require.Equal(t, int64(25+3*5), got.Experience)

	res, err := f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.NoError(t, err)
	require.Equal(t, 4, res.Streak.CurrentStreak)
	require.Equal(t, 4, res.Streak.LongestStreak)
}

func TestSubmitPastDaySkipsClosedQuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch")

	today := timeutil.Date(2026, 7, 10)
	f.at(today)
	_, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, Day: timeutil.Date(2026, 7, 8)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Streak.CurrentStreak)
	require.Nil(t, res.Quest)
	require.Nil(t, res.Reward)

	got, err := f.students.Get(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, int64(25), got.Experience)

	res, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Quest)
	require.True(t, res.Quest.Completed)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch")

	day := timeutil.Date(2026, 5, 4)
	f.at(day)

	_, err := f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.True(t, errutil.Is(err, errutil.StatusNotFound), "not enrolled: %v", err)

	_, err = f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, Rating: "amazing"})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "rating: %v", err)

	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, Day: timeutil.AddDays(day, 1)})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "future day: %v", err)

	_, err = f.svc.Submit(ctx, Request{StudentID: "missing", CampaignID: c.ID})
	require.True(t, errutil.Is(err, errutil.StatusNotFound), "student: %v", err)

	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID, HabitIDs: []string{"not-a-habit"}})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "habit: %v", err)

	// the rejected submission left nothing behind
	res, err := f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.NoError(t, err)
	require.Equal(t, 1, res.Streak.CurrentStreak)
}

func TestSubmitPartialHabitsKeepsQuestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, habits := f.seed(t, "Stretch", "Read", "Journal")

	day := timeutil.Date(2026, 5, 4)
	f.at(day)
	_, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, Request{
		StudentID:  st.ID,
		CampaignID: c.ID,
		HabitIDs:   []string{habits[0].ID, habits[2].ID, habits[0].ID},
	})
	require.NoError(t, err)
	require.False(t, res.Quest.Completed)
	require.Equal(t, 2, res.Quest.Quest.CompletedHabits)
	require.Equal(t, 3, res.Quest.Quest.TotalHabits)
	require.Equal(t, quest.StatusInProgress, res.Quest.Quest.Status)

	n, err := NewCheckStore(f.svc.db).CountChecks(ctx, nil, st.ID, c.ID, day)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestEnrollLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, c, _ := f.seed(t, "Stretch")

	day := timeutil.Date(2026, 5, 4)
	f.at(day)
	_, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, Request{StudentID: st.ID, CampaignID: c.ID})
	require.NoError(t, err)

	again, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.True(t, again.AlreadyEnrolled)
	require.Equal(t, 1, again.Streak.CurrentStreak)
	require.Empty(t, again.AchievementsGranted)

	_, err = f.svc.Unenroll(ctx, st.ID, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Unenroll(ctx, st.ID, c.ID)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	back, err := f.svc.Enroll(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.False(t, back.AlreadyEnrolled)
	require.Equal(t, 0, back.Streak.CurrentStreak)
	require.Equal(t, 0, back.Streak.LongestStreak)
}

func TestEnrollDraftCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.students.Register(ctx, "Ada")
	require.NoError(t, err)
	c, _, err := f.campaigns.Create(ctx, campaign.CreateParams{Name: "Later", Draft: true})
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, st.ID, c.ID)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = f.svc.Enroll(ctx, st.ID, "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestDashboardIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	st, c, _ := f.seed(t, "Stretch")
	f.at(timeutil.Date(2026, 5, 4))

	_, err := f.svc.Enroll(context.Background(), st.ID, c.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := f.svc.Dashboard(ctx, st.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, st.ID, d.Student.ID)
	require.NotNil(t, d.Streak)
}
