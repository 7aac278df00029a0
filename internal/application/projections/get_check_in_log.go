package projections

import (
	"context"
	"sort"
	"time"

	"gymfloor/internal/application/listutil"
	"gymfloor/internal/domain/analytics"
	domainAttendance "gymfloor/internal/domain/attendance"
)

// GetCheckInLogQuery carries query parameters.
type GetCheckInLogQuery struct {
	Window string
	Role   string
	Now    time.Time
	Page   listutil.PageParams
}

// CheckInLogEntry is one event joined with its user's display details.
type CheckInLogEntry struct {
	EventID         string
	UserID          string
	DisplayName     string
	Role            domainAttendance.Role
	CheckInAt       time.Time
	CheckOutAt      time.Time
	IsActive        bool
	DurationMinutes int
	Valid           bool
	Reason          string
}

// GetCheckInLogResult carries the query result.
type GetCheckInLogResult struct {
	Window  analytics.TimeWindow
	Role    analytics.RoleFilter
	Entries []CheckInLogEntry
	Page    listutil.PageInfo
	Stats   analytics.GlobalStats
}

// QueryGetCheckInLog lists the selected events newest first.
// PRE: deps stores are non-nil
// POST: Page.Total == Stats.TotalCheckIns; Entries holds the requested page
func QueryGetCheckInLog(ctx context.Context, query GetCheckInLogQuery, deps GetAttendanceReportDeps) (GetCheckInLogResult, error) {
	report, err := buildReport(ctx, query.Window, query.Role, query.Now, deps)
	if err != nil {
		return GetCheckInLogResult{}, err
	}

	entries := make([]CheckInLogEntry, 0, report.Stats.TotalCheckIns)
	for _, s := range report.Summaries {
		for i, e := range s.Events {
			session := s.Sessions[i]
			entries = append(entries, CheckInLogEntry{
				EventID:         e.ID,
				UserID:          e.UserID,
				DisplayName:     s.DisplayName,
				Role:            s.Role,
				CheckInAt:       e.CheckInAt,
				CheckOutAt:      e.CheckOutAt,
				IsActive:        e.IsActive,
				DurationMinutes: domainAttendance.RoundMinutes(session.Duration),
				Valid:           session.Valid,
				Reason:          e.Reason,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CheckInAt.Equal(entries[j].CheckInAt) {
			return entries[i].CheckInAt.After(entries[j].CheckInAt)
		}
		return entries[i].EventID < entries[j].EventID
	})

	page := listutil.NewPageInfo(query.Page, len(entries))
	return GetCheckInLogResult{
		Window:  report.Window,
		Role:    report.Role,
		Entries: listutil.Slice(entries, page),
		Page:    page,
		Stats:   report.Stats,
	}, nil
}
