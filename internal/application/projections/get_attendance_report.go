package projections

import (
	"context"
	"errors"
	"time"

	"gymfloor/internal/adapters/metrics"
	"gymfloor/internal/adapters/storage/attendance"
	"gymfloor/internal/domain/analytics"
)

// GetAttendanceReportQuery carries query parameters. Empty Window and Role
// select today and all.
type GetAttendanceReportQuery struct {
	Window string
	Role   string
	Now    time.Time // optional, defaults to time.Now()
}

// GetAttendanceReportDeps holds dependencies for GetAttendanceReport.
type GetAttendanceReportDeps struct {
	AttendanceStore AttendanceStore
	IdentityStore   IdentityStore
	Location        *time.Location // calendar windows are anchored here; nil means UTC
	Metrics         ReportObserver // optional
}

// GetAttendanceReportResult carries the query result.
type GetAttendanceReportResult struct {
	Report analytics.Report
}

// QueryGetAttendanceReport builds the per-user attendance report for one
// window and role selection.
// PRE: deps stores are non-nil
// POST: Returns a complete report, or an error wrapping the parse, store or
// contract failure
func QueryGetAttendanceReport(ctx context.Context, query GetAttendanceReportQuery, deps GetAttendanceReportDeps) (GetAttendanceReportResult, error) {
	start := time.Now()
	report, err := buildReport(ctx, query.Window, query.Role, query.Now, deps)

	if deps.Metrics != nil {
		status := metrics.StatusSuccess
		switch {
		case errors.Is(err, analytics.ErrUnknownTimeWindow), errors.Is(err, analytics.ErrUnknownRoleFilter):
			status = metrics.StatusInvalid
		case err != nil:
			status = metrics.StatusFailure
		}
		deps.Metrics.ObserveReport(string(report.Window), string(report.Role), status,
			time.Since(start).Seconds(), report.Stats.TotalCheckIns)
	}
	if err != nil {
		return GetAttendanceReportResult{}, err
	}
	return GetAttendanceReportResult{Report: report}, nil
}

// buildReport parses the selection, fetches with pushdown and runs the
// analytics pipeline. Window and Role on a failed report are still set when
// they parsed, so callers can label the failure.
func buildReport(ctx context.Context, window, role string, now time.Time, deps GetAttendanceReportDeps) (analytics.Report, error) {
	w, err := analytics.ParseTimeWindow(window)
	if err != nil {
		return analytics.Report{}, err
	}
	r, err := analytics.ParseRoleFilter(role)
	if err != nil {
		return analytics.Report{Window: w}, err
	}
	params := analytics.Params{Window: w, Role: r, Now: anchor(now, deps.Location)}
	partial := analytics.Report{Window: w, Role: r}

	events, err := deps.AttendanceStore.List(ctx, attendance.ListFilter{
		Since: analytics.WindowStart(w, params.Now),
		Role:  string(r.StoredRole()),
	})
	if err != nil {
		return partial, err
	}
	identities, err := identitiesFor(ctx, deps.IdentityStore, events)
	if err != nil {
		return partial, err
	}
	report, err := analytics.BuildReport(events, identities, params)
	if err != nil {
		return partial, err
	}
	return report, nil
}

// anchor resolves the report clock in the configured zone.
func anchor(now time.Time, loc *time.Location) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}
