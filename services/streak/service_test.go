package streak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitquest/pkg/errutil"
	"habitquest/pkg/timeutil"
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	db := testutil.NewTestDB(t, &Record{})
	return NewTracker(TrackerParams{DB: db, Node: testutil.NewNode(t)})
}

func TestAdvanceConsecutiveAndGap(t *testing.T) {
	start := timeutil.Date(2026, 1, 30)

	r := Record{}
	r = Advance(r, start)
	require.Equal(t, 1, r.CurrentStreak)

	r = Advance(r, timeutil.AddDays(start, 1))
	r = Advance(r, timeutil.AddDays(start, 2))
	require.Equal(t, 3, r.CurrentStreak)
	require.Equal(t, 3, r.LongestStreak)

	r = Advance(r, timeutil.AddDays(start, 4))
	require.Equal(t, 1, r.CurrentStreak)
	require.Equal(t, 3, r.LongestStreak)
}

func TestAdvanceSameDayIsNoop(t *testing.T) {
	day := timeutil.Date(2026, 4, 1)

	r := Advance(Record{}, day)
	again := Advance(r, day)
	require.Equal(t, r.CurrentStreak, again.CurrentStreak)
	require.Equal(t, r.LongestStreak, again.LongestStreak)
}

func TestAdvanceEarlierDayIsNoop(t *testing.T) {
	start := timeutil.Date(2026, 7, 8)

	r := Record{}
	for i := 0; i < 3; i++ {
		r = Advance(r, timeutil.AddDays(start, i))
	}
	require.Equal(t, 3, r.CurrentStreak)

	back := Advance(r, timeutil.Date(2026, 7, 5))
	require.Equal(t, 3, back.CurrentStreak)
	require.True(t, back.LastSubmissionDate.Equal(timeutil.Date(2026, 7, 10)))

	next := Advance(back, timeutil.Date(2026, 7, 11))
	require.Equal(t, 4, next.CurrentStreak)
	require.Equal(t, 4, next.LongestStreak)
}

func TestAdvanceLongestIsRunningMax(t *testing.T) {
	// 1 = submitted, 0 = skipped
	pattern := []int{1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 1, 0, 1}

	r := Record{}
	best := 0
	day := timeutil.Date(2026, 2, 1)
	for _, submitted := range pattern {
		if submitted == 1 {
			r = Advance(r, day)
			best = max(best, r.CurrentStreak)
			require.Equal(t, best, r.LongestStreak)
			require.GreaterOrEqual(t, r.LongestStreak, r.CurrentStreak)
		}
		day = timeutil.AddDays(day, 1)
	}
	require.Equal(t, 4, r.LongestStreak)
	require.Equal(t, 1, r.CurrentStreak)
}

func TestTrackerRecordCompletion(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	day := timeutil.Date(2026, 3, 10)

	r, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", day)
	require.NoError(t, err)
	require.Equal(t, 1, r.CurrentStreak)

	r, err = tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.AddDays(day, 1))
	require.NoError(t, err)
	require.Equal(t, 2, r.CurrentStreak)

	stored, err := tracker.Get(ctx, nil, "s1", "c1")
	require.NoError(t, err)
	require.Equal(t, 2, stored.CurrentStreak)
	require.Equal(t, 2, stored.LongestStreak)
	require.True(t, stored.LastSubmissionDate.Equal(timeutil.AddDays(day, 1)))

	r, err = tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.AddDays(day, 5))
	require.NoError(t, err)
	require.Equal(t, 1, r.CurrentStreak)
	require.Equal(t, 2, r.LongestStreak)
}

func TestTrackerCorrectsBrokenRecord(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	last := timeutil.Date(2026, 3, 1)

	require.NoError(t, tracker.records.Create(ctx, &Record{
		ID: "r1", StudentID: "s1", CampaignID: "c1",
		CurrentStreak: 5, LongestStreak: 2, LastSubmissionDate: &last,
	}))

	r, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.AddDays(last, 1))
	require.NoError(t, err)
	require.Equal(t, 6, r.CurrentStreak)
	require.Equal(t, 6, r.LongestStreak)
}

func TestTrackerResetAndDelete(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", day)
	require.NoError(t, err)

	r, err := tracker.Reset(ctx, nil, "s1", "c1")
	require.NoError(t, err)
	require.Zero(t, r.CurrentStreak)
	require.Zero(t, r.LongestStreak)
	require.Nil(t, r.LastSubmissionDate)

	require.NoError(t, tracker.Delete(ctx, nil, "s1", "c1"))
	gone, err := tracker.Get(ctx, nil, "s1", "c1")
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestTrackerMaxCurrent(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	day := timeutil.Date(2026, 3, 10)

	for i := 0; i < 3; i++ {
		_, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.AddDays(day, i))
		require.NoError(t, err)
	}
	_, err := tracker.RecordCompletion(ctx, nil, "s1", "c2", day)
	require.NoError(t, err)

	best, err := tracker.MaxCurrent(ctx, nil, "s1")
	require.NoError(t, err)
	require.Equal(t, 3, best)
}

func TestTrackerRejectsEarlierDay(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	start := timeutil.Date(2026, 7, 8)

	for i := 0; i < 3; i++ {
		_, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.AddDays(start, i))
		require.NoError(t, err)
	}

	_, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.Date(2026, 7, 5))
	require.True(t, errutil.Is(err, errutil.StatusBadRequest), "got %v", err)

	r, err := tracker.RecordCompletion(ctx, nil, "s1", "c1", timeutil.Date(2026, 7, 11))
	require.NoError(t, err)
	require.Equal(t, 4, r.CurrentStreak)
	require.True(t, r.LastSubmissionDate.Equal(timeutil.Date(2026, 7, 11)))
}
