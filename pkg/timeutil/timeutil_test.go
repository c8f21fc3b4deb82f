package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayUsesObserverZone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	instant := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) // 03:00 next day in WIB

	require.True(t, Day(instant, time.UTC).Equal(Date(2026, 3, 1)))
	require.True(t, Day(instant, jakarta).Equal(Date(2026, 3, 2)))
}

func TestAddDaysAcrossMonth(t *testing.T) {
	require.True(t, AddDays(Date(2026, 1, 31), 1).Equal(Date(2026, 2, 1)))
	require.True(t, AddDays(Date(2026, 3, 2), -3).Equal(Date(2026, 2, 27)))
}

func TestEndOfDay(t *testing.T) {
	end := EndOfDay(Date(2026, 5, 4), time.UTC)
	require.Equal(t, 23, end.Hour())
	require.True(t, end.Before(Date(2026, 5, 5)))
}

func TestNextRunTime(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	require.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), NextRunTime(now, 0, 0))
	require.Equal(t, time.Date(2026, 5, 4, 11, 30, 0, 0, time.UTC), NextRunTime(now, 11, 30))
	require.Equal(t, time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC), NextRunTime(now, 10, 0))
}
