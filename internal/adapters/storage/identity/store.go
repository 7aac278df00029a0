package identity

import (
	"context"

	domain "gymfloor/internal/domain/identity"
)

// Store persists user identities.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Identity, error)
	Save(ctx context.Context, value domain.Identity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Identity, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Identity, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
}
