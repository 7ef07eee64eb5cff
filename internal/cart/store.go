package cart

import "context"

// Store is the durable, server-owned cart keyed by owner identity.
type Store interface {
	// FetchByOwner returns every line item for the owner with embedded
	// product detail.
	FetchByOwner(ctx context.Context, ownerID string) ([]LineItem, error)
	// Find returns the line item for (owner, product, size), or
	// ErrItemNotFound.
	Find(ctx context.Context, ownerID, productID, size string) (*LineItem, error)
	// Insert creates a new row. Returns ErrDuplicateItem if a row for
	// (owner, product, size) already exists.
	Insert(ctx context.Context, ownerID, productID, size string, quantity int) (*LineItem, error)
	// AddItem atomically inserts or increments in a single statement.
	AddItem(ctx context.Context, ownerID, productID, size string, quantity int) (*LineItem, error)
	UpdateQuantity(ctx context.Context, lineItemID string, quantity int) (*LineItem, error)
	Delete(ctx context.Context, lineItemID string) error
	Clear(ctx context.Context, ownerID string) error
}

// SnapshotStore holds the anonymous cart snapshot under a single well-known
// key per guest session.
type SnapshotStore interface {
	// Load returns the snapshot in insertion order. A missing key is an
	// empty snapshot, not an error.
	Load(ctx context.Context, key string) ([]SnapshotItem, error)
	Save(ctx context.Context, key string, items []SnapshotItem) error
	// Clear removes the key entirely.
	Clear(ctx context.Context, key string) error
}

// Notifier reports merge outcomes to the user without blocking the flow.
// The HTTP layer surfaces these as non-blocking notifications.
type Notifier interface {
	Notify(kind, message string)
}
