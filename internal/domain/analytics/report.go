package analytics

import (
	"errors"
	"fmt"
	"time"

	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// ErrContractViolation is the root of every error BuildReport returns for
// malformed input. Data-quality problems never produce it.
var ErrContractViolation = errors.New("attendance input violates report contract")

// ErrMissingNow is returned when Params.Now is the zero time.
var ErrMissingNow = errors.New("report clock must be set")

// ContractError reports the event that could not be aggregated.
type ContractError struct {
	Index   int
	EventID string
	Err     error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("event %d (id=%q): %v", e.Index, e.EventID, e.Err)
}

// Unwrap exposes both the specific cause and ErrContractViolation.
func (e *ContractError) Unwrap() []error {
	return []error{ErrContractViolation, e.Err}
}

// Params selects the slice of events a report covers. Now anchors the
// window and is echoed back as Report.GeneratedAt.
type Params struct {
	Window TimeWindow
	Role   RoleFilter
	Now    time.Time
}

// Report is the ordered per-user view plus global statistics for one
// selection.
type Report struct {
	Window      TimeWindow
	Role        RoleFilter
	WindowStart time.Time
	GeneratedAt time.Time
	Summaries   []UserSummary
	Stats       GlobalStats
}

// BuildReport runs the full pipeline: filter, aggregate, sort, and stats.
// PRE: identities is keyed by user ID (nil is allowed)
// POST: Either a complete Report or an error, never a partial result
// INVARIANT: the sum of Summaries[i].TotalCheckIns equals Stats.TotalCheckIns
func BuildReport(events []attendance.Event, identities map[string]identity.Identity, p Params) (Report, error) {
	if !p.Window.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownTimeWindow, p.Window)
	}
	if !p.Role.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownRoleFilter, p.Role)
	}
	if p.Now.IsZero() {
		return Report{}, ErrMissingNow
	}
	for i, e := range events {
		if err := checkContract(e); err != nil {
			return Report{}, &ContractError{Index: i, EventID: e.ID, Err: err}
		}
	}

	filtered := Filter(events, identities, p)
	return Report{
		Window:      p.Window,
		Role:        p.Role,
		WindowStart: WindowStart(p.Window, p.Now),
		GeneratedAt: p.Now,
		Summaries:   SortSummaries(Aggregate(filtered, identities)),
		Stats:       ComputeStats(filtered),
	}, nil
}

// checkContract accepts anything the pipeline can compute over. Role
// mismatches and reversed intervals are data-quality issues, not violations.
func checkContract(e attendance.Event) error {
	if e.UserID == "" {
		return attendance.ErrMissingUser
	}
	if e.CheckInAt.IsZero() {
		return attendance.ErrMissingCheckIn
	}
	return nil
}
