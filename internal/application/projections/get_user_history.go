package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	identityStore "gymfloor/internal/adapters/storage/identity"
	"gymfloor/internal/domain/analytics"
	domainIdentity "gymfloor/internal/domain/identity"
)

// ErrUserNotFound is returned when a user has neither an identity nor any
// recorded events.
var ErrUserNotFound = errors.New("user not found")

// GetUserHistoryQuery carries query parameters. An empty Window selects all.
type GetUserHistoryQuery struct {
	UserID string
	Window string
	Now    time.Time
}

// GetUserHistoryResult carries the query result. Summary is zero-valued
// apart from identity fields when the user has no events in the window.
type GetUserHistoryResult struct {
	Window  analytics.TimeWindow
	Summary analytics.UserSummary
}

// QueryGetUserHistory returns one user's summary with grouped sessions,
// newest first.
// PRE: query.UserID is non-empty
// POST: Returns the summary or ErrUserNotFound
func QueryGetUserHistory(ctx context.Context, query GetUserHistoryQuery, deps GetAttendanceReportDeps) (GetUserHistoryResult, error) {
	window := query.Window
	if window == "" {
		window = string(analytics.WindowAll)
	}
	w, err := analytics.ParseTimeWindow(window)
	if err != nil {
		return GetUserHistoryResult{}, err
	}

	id, err := deps.IdentityStore.GetByID(ctx, query.UserID)
	hasIdentity := err == nil
	if err != nil && !errors.Is(err, identityStore.ErrNotFound) {
		return GetUserHistoryResult{}, err
	}

	events, err := deps.AttendanceStore.ListByUserID(ctx, query.UserID)
	if err != nil {
		return GetUserHistoryResult{}, err
	}
	if !hasIdentity && len(events) == 0 {
		return GetUserHistoryResult{}, fmt.Errorf("%w: %s", ErrUserNotFound, query.UserID)
	}

	identities := map[string]domainIdentity.Identity{}
	if hasIdentity {
		identities[id.ID] = id
	}
	report, err := analytics.BuildReport(events, identities, analytics.Params{
		Window: w,
		Role:   analytics.RoleAll,
		Now:    anchor(query.Now, deps.Location),
	})
	if err != nil {
		return GetUserHistoryResult{}, err
	}

	result := GetUserHistoryResult{Window: w}
	if len(report.Summaries) == 1 {
		result.Summary = report.Summaries[0]
		return result, nil
	}
	result.Summary = analytics.UserSummary{UserID: query.UserID, DisplayName: domainIdentity.UnknownDisplayName}
	if hasIdentity {
		result.Summary.DisplayName = id.DisplayName()
		result.Summary.Role = id.Role
		result.Summary.HasIdentity = true
	}
	return result, nil
}
