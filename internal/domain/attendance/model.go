package attendance

import (
	"errors"
	"time"
)

// Role is the role a user held when the event was recorded.
type Role string

// Business rule constants
const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
)

// Domain errors
var (
	ErrMissingUser    = errors.New("attendance event must be associated with a user")
	ErrMissingCheckIn = errors.New("check-in time must be set")
	ErrUnknownRole    = errors.New("user role must be 'member' or 'trainer'")
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleTrainer
}

// Event is one check-in row. The check-out and active flag live on the same
// row and may be updated independently of each other by the source system.
type Event struct {
	ID         string
	UserID     string
	UserRole   Role      // denormalized at check-in time
	CheckInAt  time.Time
	CheckOutAt time.Time // zero while the session is still open
	IsActive   bool
	Reason     string
}

// Validate checks the fields the aggregation contract relies on.
// PRE: Event struct is initialized
// POST: Returns error if a contract field is missing, nil otherwise
// INVARIANT: CheckOutAt before CheckInAt is NOT a validation failure; it is
// reported as an invalid session by Resolve.
func (e *Event) Validate() error {
	if e.UserID == "" {
		return ErrMissingUser
	}
	if e.CheckInAt.IsZero() {
		return ErrMissingCheckIn
	}
	if !e.UserRole.Valid() {
		return ErrUnknownRole
	}
	return nil
}

// IsOpen returns true if no check-out has been recorded.
func (e *Event) IsOpen() bool {
	return e.CheckOutAt.IsZero()
}
