package appointment

import (
	"errors"
	"slices"
	"time"
)

var ErrEmptySnapshot = errors.New("snapshot has no appointments")

// scarceGapDays is the largest gap between two consecutive appointment dates
// that still counts as regular availability.
const scarceGapDays = 6

// EarliestScarceCutoff estimates where regular availability begins.
//
// Distinct dates are walked from the latest to the earliest. The first time
// two neighbouring dates are more than scarceGapDays apart, the later of the
// two is the cutoff: everything before it is sparse and considered scarce.
// Without such a gap the earliest date is returned. This is a heuristic about
// booking density, not a guarantee.
func EarliestScarceCutoff(snapshot []Appointment) (time.Time, error) {
	if len(snapshot) == 0 {
		return time.Time{}, ErrEmptySnapshot
	}

	dates := distinctDates(snapshot)
	slices.SortFunc(dates, func(a, b time.Time) int { return b.Compare(a) })

	cutoff := dates[len(dates)-1]
	for i := 0; i+1 < len(dates); i++ {
		later, earlier := dates[i], dates[i+1]
		if daysBetween(later, earlier) > scarceGapDays {
			cutoff = later
			break
		}
	}
	return cutoff, nil
}

func distinctDates(snapshot []Appointment) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, a := range snapshot {
		d := a.Date()
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	return dates
}
