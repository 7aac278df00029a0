package identity

import (
	"errors"
	"strings"

	"gymfloor/internal/domain/attendance"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// UnknownDisplayName labels a user with no usable name or no identity record.
const UnknownDisplayName = "Unknown User"

// Domain errors
var (
	ErrMissingID   = errors.New("identity must have an id")
	ErrNameTooLong = errors.New("name cannot exceed 100 characters")
	ErrUnknownRole = errors.New("role must be 'member' or 'trainer'")
)

// Identity is the current profile for a user. Role here is authoritative and
// may differ from the role stamped on older attendance events.
type Identity struct {
	ID       string
	FullName string
	Username string
	Role     attendance.Role
}

// Validate checks if the Identity has valid data.
// PRE: Identity struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (i *Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrMissingID
	}
	if len(i.FullName) > MaxNameLength || len(i.Username) > MaxNameLength {
		return ErrNameTooLong
	}
	if !i.Role.Valid() {
		return ErrUnknownRole
	}
	return nil
}

// DisplayName returns the best available label for the user.
func (i *Identity) DisplayName() string {
	if name := strings.TrimSpace(i.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(i.Username); name != "" {
		return name
	}
	return UnknownDisplayName
}

// IsTrainer returns true if the identity currently holds the trainer role.
func (i *Identity) IsTrainer() bool {
	return i.Role == attendance.RoleTrainer
}
