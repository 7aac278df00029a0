package web

import (
	"time"

	"gymfloor/internal/application/listutil"
	"gymfloor/internal/application/projections"
	"gymfloor/internal/domain/analytics"
	"gymfloor/internal/domain/attendance"
)

// JSON shapes served by the attendance API. Open check-outs serialize as null.

type statsJSON struct {
	TotalCheckIns                  int `json:"total_check_ins"`
	ActiveCount                    int `json:"active_count"`
	AverageCompletedSessionMinutes int `json:"average_completed_session_minutes"`
}

type sessionJSON struct {
	EventID         string     `json:"event_id"`
	CheckInAt       time.Time  `json:"check_in_at"`
	CheckOutAt      *time.Time `json:"check_out_at"`
	Open            bool       `json:"open"`
	Valid           bool       `json:"valid"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          string     `json:"reason,omitempty"`
}

type summaryJSON struct {
	UserID                 string        `json:"user_id"`
	DisplayName            string        `json:"display_name"`
	Role                   string        `json:"role"`
	HasIdentity            bool          `json:"has_identity"`
	TotalCheckIns          int           `json:"total_check_ins"`
	IsCurrentlyActive      bool          `json:"is_currently_active"`
	LastCheckInAt          *time.Time    `json:"last_check_in_at"`
	CompletedSessionCount  int           `json:"completed_session_count"`
	TotalSessionDurationMs int64         `json:"total_session_duration_ms"`
	AverageSessionMinutes  int           `json:"average_session_minutes"`
	Sessions               []sessionJSON `json:"sessions,omitempty"`
}

type reportJSON struct {
	Window      string        `json:"window"`
	Role        string        `json:"role"`
	WindowStart *time.Time    `json:"window_start"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats       statsJSON     `json:"stats"`
	Summaries   []summaryJSON `json:"summaries"`
}

type logEntryJSON struct {
	EventID         string     `json:"event_id"`
	UserID          string     `json:"user_id"`
	DisplayName     string     `json:"display_name"`
	Role            string     `json:"role"`
	CheckInAt       time.Time  `json:"check_in_at"`
	CheckOutAt      *time.Time `json:"check_out_at"`
	IsActive        bool       `json:"is_active"`
	DurationMinutes int        `json:"duration_minutes"`
	Valid           bool       `json:"valid"`
	Reason          string     `json:"reason,omitempty"`
}

type logJSON struct {
	Window  string            `json:"window"`
	Role    string            `json:"role"`
	Stats   statsJSON         `json:"stats"`
	Page    listutil.PageInfo `json:"page"`
	Entries []logEntryJSON    `json:"entries"`
}

type eventJSON struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	UserRole   string     `json:"user_role"`
	CheckInAt  time.Time  `json:"check_in_at"`
	CheckOutAt *time.Time `json:"check_out_at"`
	IsActive   bool       `json:"is_active"`
	Reason     string     `json:"reason,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toStatsJSON(s analytics.GlobalStats) statsJSON {
	return statsJSON{
		TotalCheckIns:                  s.TotalCheckIns,
		ActiveCount:                    s.ActiveCount,
		AverageCompletedSessionMinutes: s.AverageCompletedSessionMinutes,
	}
}

func toSummaryJSON(s analytics.UserSummary, withSessions bool) summaryJSON {
	out := summaryJSON{
		UserID:                 s.UserID,
		DisplayName:            s.DisplayName,
		Role:                   string(s.Role),
		HasIdentity:            s.HasIdentity,
		TotalCheckIns:          s.TotalCheckIns,
		IsCurrentlyActive:      s.IsCurrentlyActive,
		LastCheckInAt:          optionalTime(s.LastCheckInAt),
		CompletedSessionCount:  s.CompletedSessionCount,
		TotalSessionDurationMs: s.TotalSessionDuration.Milliseconds(),
		AverageSessionMinutes:  s.AverageSessionMinutes,
	}
	if !withSessions {
		return out
	}
	out.Sessions = make([]sessionJSON, 0, len(s.Sessions))
	for i, sess := range s.Sessions {
		out.Sessions = append(out.Sessions, sessionJSON{
			EventID:         sess.EventID,
			CheckInAt:       sess.Start,
			CheckOutAt:      optionalTime(sess.End),
			Open:            sess.Open,
			Valid:           sess.Valid,
			DurationMinutes: attendance.RoundMinutes(sess.Duration),
			Reason:          s.Events[i].Reason,
		})
	}
	return out
}

func toReportJSON(r analytics.Report) reportJSON {
	out := reportJSON{
		Window:      string(r.Window),
		Role:        string(r.Role),
		WindowStart: optionalTime(r.WindowStart),
		GeneratedAt: r.GeneratedAt,
		Stats:       toStatsJSON(r.Stats),
		Summaries:   make([]summaryJSON, 0, len(r.Summaries)),
	}
	for _, s := range r.Summaries {
		out.Summaries = append(out.Summaries, toSummaryJSON(s, false))
	}
	return out
}

func toLogJSON(r projections.GetCheckInLogResult) logJSON {
	out := logJSON{
		Window:  string(r.Window),
		Role:    string(r.Role),
		Stats:   toStatsJSON(r.Stats),
		Page:    r.Page,
		Entries: make([]logEntryJSON, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, logEntryJSON{
			EventID:         e.EventID,
			UserID:          e.UserID,
			DisplayName:     e.DisplayName,
			Role:            string(e.Role),
			CheckInAt:       e.CheckInAt,
			CheckOutAt:      optionalTime(e.CheckOutAt),
			IsActive:        e.IsActive,
			DurationMinutes: e.DurationMinutes,
			Valid:           e.Valid,
			Reason:          e.Reason,
		})
	}
	return out
}

func toEventJSON(e attendance.Event) eventJSON {
	return eventJSON{
		ID:         e.ID,
		UserID:     e.UserID,
		UserRole:   string(e.UserRole),
		CheckInAt:  e.CheckInAt,
		CheckOutAt: optionalTime(e.CheckOutAt),
		IsActive:   e.IsActive,
		Reason:     e.Reason,
	}
}
