package port

import (
	"context"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

// ItemStore is the minimal remote contract the synchronizer consumes.
// Records are keyed by (userID, name).
type ItemStore interface {
	// GetItem returns nil when no record exists for name
	GetItem(ctx context.Context, userID, name string) (*domain.Item, error)

	// GetAllItems returns every record in the user's scope
	GetAllItems(ctx context.Context, userID string) ([]domain.Item, error)

	// CreateItem inserts a new record, domain.ErrAlreadyExists if present
	CreateItem(ctx context.Context, userID, name string, quantity int) error

	// IncrementItem atomically adds delta to an existing record, domain.ErrNotFound if absent
	IncrementItem(ctx context.Context, userID, name string, delta int) error

	// DeleteItem removes one record; deleting an absent record is not an error
	DeleteItem(ctx context.Context, userID, name string) error

	// DeleteScope removes every record belonging to the user
	DeleteScope(ctx context.Context, userID string) error
}

// Upserter is implemented by stores that can create-or-increment in one request.
type Upserter interface {
	AddQuantity(ctx context.Context, userID, name string, delta int) error
}

// Withdrawer is implemented by stores that can decrement-or-delete in one request.
type Withdrawer interface {
	// TakeQuantity removes amount units and deletes the record when nothing
	// remains. Returns the remaining quantity or domain.ErrNotFound.
	TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error)
}
