// internal/application/usecase/wishlist_usecase.go
package usecase

import (
	coldom "storefront/internal/domain/collection"
)

// NewWishlistStore returns a presence-only mirrored store.
// Re-adding an item is a no-op; TotalCount is the number of entries.
func NewWishlistStore(cfg StoreConfig) *MirroredStore {
	return NewMirroredStore(cfg.Store, MirroredStoreOptions{
		Collection:       cfg.wishlistCollection(),
		Merge:            coldom.KeepExisting,
		CountMode:        coldom.CountItems,
		DebounceInterval: cfg.DebounceInterval,
		VerifyWrites:     cfg.VerifyWrites,
		Clock:            cfg.Clock,
		Logger:           cfg.Logger,
		BaseContext:      cfg.BaseContext,
	})
}
