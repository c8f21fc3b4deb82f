package points

import "math"

// multiplier tiers in tenths, highest threshold first.
var tiers = []struct {
	minDays int
	tenths  int64
}{
	{30, 20},
	{7, 15},
	{3, 12},
	{0, 10},
}

func tierTenths(streakDays int) int64 {
	for _, t := range tiers {
		if streakDays >= t.minDays {
			return t.tenths
		}
	}
	return 10
}

// Multiplier returns the streak multiplier for a streak of streakDays.
func Multiplier(streakDays int) float64 {
	return float64(tierTenths(streakDays)) / 10
}

// ComputePoints returns floor(base × multiplier(streakDays) × bonus).
// Negative inputs yield 0.
func ComputePoints(streakDays int, basePoints int64, bonusMultiplier float64) int64 {
	if basePoints <= 0 || bonusMultiplier <= 0 || math.IsNaN(bonusMultiplier) {
		return 0
	}

	scaled := float64(basePoints*tierTenths(streakDays)) * bonusMultiplier
	return int64(math.Floor(scaled / 10))
}
