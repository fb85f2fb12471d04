package forecast

import (
	"time"

	"air-quality-stack/internal/models"
)

// HoursPerDay is the number of slots in an HourlyProfile
const HoursPerDay = 24

// HourlyProfile holds the average value observed at each hour of the day
type HourlyProfile [HoursPerDay]float64

// EstimateHourlyProfile buckets readings by local hour-of-day and averages
// each bucket. Empty buckets take the mean of the nearest known neighbour on
// each side (no wrap-around at midnight); every slot of a multi-hour gap gets
// that same value. Only an empty history fails.
func EstimateHourlyProfile(history []models.Reading, loc *time.Location) (HourlyProfile, error) {
	var profile HourlyProfile
	if len(history) == 0 {
		return profile, ErrEmptyHistory
	}
	if loc == nil {
		loc = time.Local
	}

	var sums [HoursPerDay]float64
	var counts [HoursPerDay]int
	for _, r := range history {
		hour := r.Timestamp.In(loc).Hour()
		sums[hour] += r.Value
		counts[hour]++
	}

	var known [HoursPerDay]bool
	for h := 0; h < HoursPerDay; h++ {
		if counts[h] > 0 {
			profile[h] = sums[h] / float64(counts[h])
			known[h] = true
		}
	}

	// Neighbours are looked up against the bucket means only, so filled slots
	// never feed into later fills.
	for h := 0; h < HoursPerDay; h++ {
		if known[h] {
			continue
		}
		prev := h - 1
		for prev >= 0 && !known[prev] {
			prev--
		}
		next := h + 1
		for next < HoursPerDay && !known[next] {
			next++
		}

		switch {
		case prev >= 0 && next < HoursPerDay:
			profile[h] = (profile[prev] + profile[next]) / 2
		case prev >= 0:
			profile[h] = profile[prev]
		default:
			profile[h] = profile[next]
		}
	}

	return profile, nil
}
