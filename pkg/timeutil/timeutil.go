// Package timeutil converts instants to calendar days.
//
// A calendar day is represented as midnight UTC of that date, independent of
// the zone it was observed in. Stores compare days with Equal and never mix
// them with instants.
package timeutil

import "time"

// Day returns the calendar date of t as observed in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar day.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// EndOfDay returns the last instant of the calendar day in loc.
func EndOfDay(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999999999, loc)
}

// NextRunTime returns the next wall-clock occurrence of hour:minute after now.
func NextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
