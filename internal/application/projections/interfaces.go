package projections

import (
	"context"

	"gymfloor/internal/adapters/storage/attendance"
	domainAttendance "gymfloor/internal/domain/attendance"
	domainIdentity "gymfloor/internal/domain/identity"
)

// AttendanceStore interface for attendance event queries.
type AttendanceStore interface {
	List(ctx context.Context, filter attendance.ListFilter) ([]domainAttendance.Event, error)
	ListByUserID(ctx context.Context, userID string) ([]domainAttendance.Event, error)
}

// IdentityStore interface for identity lookups.
type IdentityStore interface {
	GetByID(ctx context.Context, id string) (domainIdentity.Identity, error)
	ListByIDs(ctx context.Context, ids []string) ([]domainIdentity.Identity, error)
}

// ReportObserver receives one observation per report request.
// *metrics.Metrics satisfies it.
type ReportObserver interface {
	ObserveReport(window, role, status string, seconds float64, events int)
}

// identitiesFor loads the identities of every user appearing in events,
// keyed by ID. Users without an identity are simply absent.
func identitiesFor(ctx context.Context, store IdentityStore, events []domainAttendance.Event) (map[string]domainIdentity.Identity, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	out := make(map[string]domainIdentity.Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range list {
		out[id.ID] = id
	}
	return out, nil
}
