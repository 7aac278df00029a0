package analytics

import (
	"time"

	"gymfloor/internal/domain/attendance"
)

// GlobalStats summarises the whole filtered set rather than any one user.
type GlobalStats struct {
	TotalCheckIns int
	// ActiveCount counts rows flagged active, not distinct people: a user
	// with two flagged rows contributes two.
	ActiveCount                    int
	AverageCompletedSessionMinutes int
}

// ComputeStats reduces events into GlobalStats. The average is a single
// division over every completed session, not an average of user averages.
func ComputeStats(events []attendance.Event) GlobalStats {
	var (
		stats     GlobalStats
		total     time.Duration
		completed int
	)
	for _, e := range events {
		stats.TotalCheckIns++
		if e.IsActive {
			stats.ActiveCount++
		}
		if s := attendance.Resolve(e); s.Completed() {
			total += s.Duration
			completed++
		}
	}
	stats.AverageCompletedSessionMinutes = attendance.AverageMinutes(total, completed)
	return stats
}
