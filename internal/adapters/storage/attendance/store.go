package attendance

import (
	"context"
	"time"

	domain "gymfloor/internal/domain/attendance"
)

// Store persists attendance events.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	InsertActive(ctx context.Context, value domain.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Event, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]domain.Event, error)
}

// ListFilter carries filtering parameters for List operations.
// Since and Role are pushdown hints; callers still filter in memory.
type ListFilter struct {
	Since  time.Time // zero means no lower bound
	Role   string    // identity role; empty means any
	Limit  int       // 0 means no limit
	Offset int
}
