package analytics

import (
	"time"

	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// UserSummary rolls up one user's events in the filtered set. Events and
// Sessions keep the grouped history in input order so a detail view can
// render it without another query.
type UserSummary struct {
	UserID                string
	DisplayName           string
	Role                  attendance.Role
	HasIdentity           bool
	TotalCheckIns         int
	IsCurrentlyActive     bool
	LastCheckInAt         time.Time
	CompletedSessionCount int
	TotalSessionDuration  time.Duration
	AverageSessionMinutes int
	Events                []attendance.Event
	Sessions              []attendance.Session
}

// newSummary starts an empty bucket for the user of e. Name and role come
// from the identity when present, else the placeholder name and the role
// stamped on the first event seen.
func newSummary(e attendance.Event, identities map[string]identity.Identity) UserSummary {
	s := UserSummary{
		UserID:      e.UserID,
		DisplayName: identity.UnknownDisplayName,
		Role:        e.UserRole,
	}
	if id, ok := identities[e.UserID]; ok {
		s.DisplayName = id.DisplayName()
		s.Role = id.Role
		s.HasIdentity = true
	}
	return s
}

// add folds one event into the summary and returns the result.
func (s UserSummary) add(e attendance.Event) UserSummary {
	session := attendance.Resolve(e)

	s.TotalCheckIns++
	s.IsCurrentlyActive = s.IsCurrentlyActive || e.IsActive
	if e.CheckInAt.After(s.LastCheckInAt) {
		s.LastCheckInAt = e.CheckInAt
	}
	if session.Completed() {
		s.CompletedSessionCount++
		s.TotalSessionDuration += session.Duration
	}
	s.AverageSessionMinutes = attendance.AverageMinutes(s.TotalSessionDuration, s.CompletedSessionCount)
	s.Events = append(s.Events, e)
	s.Sessions = append(s.Sessions, session)
	return s
}

// Aggregate groups events by user. Summaries come back in the order each
// user first appears in events. No event is dropped, including those whose
// user has no identity.
func Aggregate(events []attendance.Event, identities map[string]identity.Identity) []UserSummary {
	out := make([]UserSummary, 0)
	index := make(map[string]int)
	for _, e := range events {
		i, ok := index[e.UserID]
		if !ok {
			i = len(out)
			index[e.UserID] = i
			out = append(out, newSummary(e, identities))
		}
		out[i] = out[i].add(e)
	}
	return out
}

// Merge combines two aggregations of possibly overlapping event sets. Each
// event is counted once, keyed by its ID, so merging a result with itself
// returns an equal result. User order follows first appearance in a, then b.
func Merge(a, b []UserSummary) []UserSummary {
	out := make([]UserSummary, 0, len(a)+len(b))
	index := make(map[string]int)
	seen := make(map[string]struct{})

	for _, src := range [][]UserSummary{a, b} {
		for _, s := range src {
			i, ok := index[s.UserID]
			if !ok {
				i = len(out)
				index[s.UserID] = i
				out = append(out, UserSummary{
					UserID:      s.UserID,
					DisplayName: s.DisplayName,
					Role:        s.Role,
					HasIdentity: s.HasIdentity,
				})
			}
			for _, e := range s.Events {
				key := eventKey(e)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out[i] = out[i].add(e)
			}
		}
	}
	return out
}

// eventKey identifies an event for de-duplication. Rows without an ID fall
// back to their content.
func eventKey(e attendance.Event) string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return "row:" + e.UserID + "|" + e.CheckInAt.UTC().Format(time.RFC3339Nano) + "|" + e.CheckOutAt.UTC().Format(time.RFC3339Nano)
}
