package attendance

import "time"

// Session is a single event read as a time interval.
type Session struct {
	EventID  string
	Start    time.Time
	End      time.Time     // zero when Open
	Duration time.Duration // zero when Open or not Valid
	Open     bool
	Valid    bool // false when End precedes Start
}

// Resolve turns an event into its session. It never looks at other events.
// PRE: e.CheckInAt is set
// POST: Open sessions are Valid with zero Duration; a negative interval is
// marked invalid and its Duration left at zero rather than clamped.
func Resolve(e Event) Session {
	s := Session{
		EventID: e.ID,
		Start:   e.CheckInAt,
		End:     e.CheckOutAt,
		Open:    e.IsOpen(),
		Valid:   true,
	}
	if s.Open {
		return s
	}
	d := e.CheckOutAt.Sub(e.CheckInAt)
	if d < 0 {
		s.Valid = false
		return s
	}
	s.Duration = d
	return s
}

// Completed reports whether the session counts toward duration averages.
func (s Session) Completed() bool {
	return !s.Open && s.Valid
}

// RoundMinutes converts a duration to whole minutes, rounding half up.
func RoundMinutes(d time.Duration) int {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 30000) / 60000)
}

// AverageMinutes divides total by count and rounds to whole minutes.
// Returns 0 when count is 0.
func AverageMinutes(total time.Duration, count int) int {
	if count <= 0 {
		return 0
	}
	ms := total.Milliseconds()
	if ms <= 0 {
		return 0
	}
	c := int64(count) * 60000
	return int((2*ms + c) / (2 * c))
}
