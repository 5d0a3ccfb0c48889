// internal/domain/collection/repository_port.go
package collection

import "context"

// Default collection names.
const (
	DefaultCartCollection     = "carts"
	DefaultWishlistCollection = "wishlists"
)

// SetOptions controls how Set writes a document.
type SetOptions struct {
	// Merge overwrites only the top-level fields present in the payload.
	// When false the document is replaced.
	Merge bool
}

// DocumentStore is a persistence port for mirrored documents.
//
// Storage layout:
// - collection: carts / wishlists (configurable)
// - docId: userId (Firebase UID)
// - fields: userId, items, updatedAt, timestamp
type DocumentStore interface {
	// Get returns (nil, nil) if the document does not exist.
	Get(ctx context.Context, collection, key string) (map[string]any, error)

	// Set writes payload under collection/key.
	Set(ctx context.Context, collection, key string, payload map[string]any, opts SetOptions) error
}
