package todo

import "context"

// Store is the one authoritative collection both write paths share.
//
// Implementations assign ID and CreatedAt on Create, return List results
// newest first, and report unknown ids with ErrNotFound. Create rejects
// blank text with a *ValidationError. Any other failure is a *StoreError.
type Store interface {
	// Create persists a new, not completed record
	Create(ctx context.Context, text string, source Source) (Todo, error)

	// List returns the records matching opts ordered by CreatedAt descending
	List(ctx context.Context, opts ListOptions) ([]Todo, error)

	// Update sets the completion state and returns the updated record
	Update(ctx context.Context, id string, completed bool) (Todo, error)

	// Delete removes a record and returns it as it was before removal
	Delete(ctx context.Context, id string) (Todo, error)

	// Close releases any resources held by the store
	Close() error
}
