package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gymfloor/internal/adapters/metrics"
	attendanceStore "gymfloor/internal/adapters/storage/attendance"
	identityStore "gymfloor/internal/adapters/storage/identity"
	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

var (
	ErrMissingUserID    = errors.New("user must be selected before checking in or out")
	ErrUnknownUser      = errors.New("user has no identity record")
	ErrAlreadyCheckedIn = errors.New("user is already checked in")
	ErrNotCheckedIn     = errors.New("user is not checked in")
)

// CheckInIdentityStore defines the identity lookup needed to check in.
type CheckInIdentityStore interface {
	GetByID(ctx context.Context, id string) (identity.Identity, error)
}

// CheckInAttendanceStore defines the attendance persistence needed to check
// in and out. InsertActive must refuse atomically, returning
// attendanceStore.ErrActiveExists, when the user already has an active event.
type CheckInAttendanceStore interface {
	Save(ctx context.Context, e attendance.Event) error
	InsertActive(ctx context.Context, e attendance.Event) error
	ListActiveByUserID(ctx context.Context, userID string) ([]attendance.Event, error)
}

// CheckInRecorder counts check-in actions. *metrics.Metrics satisfies it.
type CheckInRecorder interface {
	IncCheckIns(action string, n int)
}

// CheckInInput carries input for the check-in orchestrator.
type CheckInInput struct {
	UserID string
	Reason string    // optional free text
	Now    time.Time // optional, defaults to time.Now()
}

// CheckInDeps holds dependencies for CheckIn and CheckOut.
type CheckInDeps struct {
	IdentityStore   CheckInIdentityStore
	AttendanceStore CheckInAttendanceStore
	Metrics         CheckInRecorder // optional
}

// CheckInResult carries the created event.
type CheckInResult struct {
	Event attendance.Event
}

// ExecuteCheckIn opens a new attendance event for a known user.
// PRE: UserID refers to an existing identity
// POST: An active event with CheckInAt=now and the identity's role is stored
// INVARIANT: A user has at most one active event
func ExecuteCheckIn(ctx context.Context, input CheckInInput, deps CheckInDeps) (CheckInResult, error) {
	if input.UserID == "" {
		return CheckInResult{}, ErrMissingUserID
	}
	id, err := deps.IdentityStore.GetByID(ctx, input.UserID)
	if errors.Is(err, identityStore.ErrNotFound) {
		return CheckInResult{}, fmt.Errorf("%w: %s", ErrUnknownUser, input.UserID)
	}
	if err != nil {
		return CheckInResult{}, err
	}

	active, err := deps.AttendanceStore.ListActiveByUserID(ctx, input.UserID)
	if err != nil {
		return CheckInResult{}, err
	}
	if len(active) > 0 {
		return CheckInResult{}, fmt.Errorf("%w since %s", ErrAlreadyCheckedIn, active[0].CheckInAt.Format(time.Kitchen))
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	e := attendance.Event{
		ID:        uuid.New().String(),
		UserID:    id.ID,
		UserRole:  id.Role,
		CheckInAt: now,
		IsActive:  true,
		Reason:    input.Reason,
	}
	if err := e.Validate(); err != nil {
		return CheckInResult{}, err
	}
	// a concurrent check-in may have landed since the lookup above
	if err := deps.AttendanceStore.InsertActive(ctx, e); err != nil {
		if errors.Is(err, attendanceStore.ErrActiveExists) {
			return CheckInResult{}, fmt.Errorf("%w: %s", ErrAlreadyCheckedIn, input.UserID)
		}
		return CheckInResult{}, err
	}

	slog.Info("checkin_event", "event", "user_checked_in", "user_id", id.ID, "name", id.DisplayName(), "role", string(id.Role))
	if deps.Metrics != nil {
		deps.Metrics.IncCheckIns(metrics.ActionCheckIn, 1)
	}
	return CheckInResult{Event: e}, nil
}

// CheckOutInput carries input for the check-out orchestrator.
type CheckOutInput struct {
	UserID string
	Now    time.Time // optional, defaults to time.Now()
}

// CheckOutResult carries the events that were closed.
type CheckOutResult struct {
	Closed []attendance.Event
}

// ExecuteCheckOut closes every active event of the user. Users without an
// identity can still be checked out so stray open rows can be cleaned up.
// PRE: UserID is non-empty
// POST: The user has no active events; each closed event has CheckOutAt=now
func ExecuteCheckOut(ctx context.Context, input CheckOutInput, deps CheckInDeps) (CheckOutResult, error) {
	if input.UserID == "" {
		return CheckOutResult{}, ErrMissingUserID
	}
	active, err := deps.AttendanceStore.ListActiveByUserID(ctx, input.UserID)
	if err != nil {
		return CheckOutResult{}, err
	}
	if len(active) == 0 {
		return CheckOutResult{}, fmt.Errorf("%w: %s", ErrNotCheckedIn, input.UserID)
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	closed := make([]attendance.Event, 0, len(active))
	for _, e := range active {
		e.CheckOutAt = now
		e.IsActive = false
		if err := deps.AttendanceStore.Save(ctx, e); err != nil {
			return CheckOutResult{Closed: closed}, fmt.Errorf("close event %s: %w", e.ID, err)
		}
		closed = append(closed, e)
	}

	slog.Info("checkin_event", "event", "user_checked_out", "user_id", input.UserID, "closed", len(closed))
	if deps.Metrics != nil {
		deps.Metrics.IncCheckIns(metrics.ActionCheckOut, len(closed))
	}
	return CheckOutResult{Closed: closed}, nil
}
