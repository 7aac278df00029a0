// Package analytics turns raw attendance events into per-user summaries and
// global statistics for one time-window and role selection. Everything here
// is a pure function of its arguments; callers fetch the data and pass in the
// clock.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// TimeWindow names the period a report covers.
type TimeWindow string

// RoleFilter restricts a report to one population.
type RoleFilter string

const (
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowAll   TimeWindow = "all"

	RoleAll      RoleFilter = "all"
	RoleMembers  RoleFilter = "members"
	RoleTrainers RoleFilter = "trainers"
)

var (
	ErrUnknownTimeWindow = errors.New("time window must be one of today, week, month, all")
	ErrUnknownRoleFilter = errors.New("role filter must be one of all, members, trainers")
)

// Valid reports whether w is a known window.
func (w TimeWindow) Valid() bool {
	switch w {
	case WindowToday, WindowWeek, WindowMonth, WindowAll:
		return true
	}
	return false
}

// Valid reports whether r is a known role filter.
func (r RoleFilter) Valid() bool {
	switch r {
	case RoleAll, RoleMembers, RoleTrainers:
		return true
	}
	return false
}

// ParseTimeWindow parses a query value. An empty string selects today.
func ParseTimeWindow(s string) (TimeWindow, error) {
	if s == "" {
		return WindowToday, nil
	}
	w := TimeWindow(s)
	if !w.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeWindow, s)
	}
	return w, nil
}

// ParseRoleFilter parses a query value. An empty string selects all.
func ParseRoleFilter(s string) (RoleFilter, error) {
	if s == "" {
		return RoleAll, nil
	}
	r := RoleFilter(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoleFilter, s)
	}
	return r, nil
}

// WindowStart returns the inclusive lower bound for w, evaluated in now's
// location. The zero time means unbounded.
func WindowStart(w TimeWindow, now time.Time) time.Time {
	switch w {
	case WindowToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case WindowWeek:
		return now.Add(-7 * 24 * time.Hour)
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

// Matches reports whether a user with the given identity passes r.
// Users without an identity only pass RoleAll.
func (r RoleFilter) Matches(id identity.Identity, ok bool) bool {
	switch r {
	case RoleAll:
		return true
	case RoleMembers:
		return ok && id.Role == attendance.RoleMember
	case RoleTrainers:
		return ok && id.Role == attendance.RoleTrainer
	}
	return false
}

// StoredRole returns the identity role r selects, or "" for RoleAll.
func (r RoleFilter) StoredRole() attendance.Role {
	switch r {
	case RoleMembers:
		return attendance.RoleMember
	case RoleTrainers:
		return attendance.RoleTrainer
	}
	return ""
}

// Filter keeps the events inside the window whose user passes the role
// filter. The identity role decides, not the role stamped on the event.
// Input order is preserved. There is no upper bound: future check-ins pass.
func Filter(events []attendance.Event, identities map[string]identity.Identity, p Params) []attendance.Event {
	start := WindowStart(p.Window, p.Now)
	out := make([]attendance.Event, 0, len(events))
	for _, e := range events {
		if !start.IsZero() && e.CheckInAt.Before(start) {
			continue
		}
		id, ok := identities[e.UserID]
		if !p.Role.Matches(id, ok) {
			continue
		}
		out = append(out, e)
	}
	return out
}
