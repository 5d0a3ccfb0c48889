// internal/application/usecase/cart_usecase.go
package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	coldom "storefront/internal/domain/collection"
)

// StoreConfig is shared by the cart and wishlist presets.
type StoreConfig struct {
	Store coldom.DocumentStore

	CartCollection     string
	WishlistCollection string

	DebounceInterval time.Duration
	VerifyWrites     bool

	Clock       Clock
	Logger      *zap.Logger
	BaseContext context.Context

	// CartMerge overrides the cart duplicate-add policy (default IncrementQuantity).
	CartMerge coldom.MergePolicy
}

func (c StoreConfig) cartCollection() string {
	if v := strings.TrimSpace(c.CartCollection); v != "" {
		return v
	}
	return coldom.DefaultCartCollection
}

func (c StoreConfig) wishlistCollection() string {
	if v := strings.TrimSpace(c.WishlistCollection); v != "" {
		return v
	}
	return coldom.DefaultWishlistCollection
}

// NewCartStore returns a quantity-aware mirrored store.
// Re-adding an item increments its quantity; TotalCount sums quantities.
func NewCartStore(cfg StoreConfig) *MirroredStore {
	merge := cfg.CartMerge
	if merge == nil {
		merge = coldom.IncrementQuantity
	}
	return NewMirroredStore(cfg.Store, MirroredStoreOptions{
		Collection:       cfg.cartCollection(),
		Merge:            merge,
		CountMode:        coldom.CountQuantities,
		DebounceInterval: cfg.DebounceInterval,
		VerifyWrites:     cfg.VerifyWrites,
		Clock:            cfg.Clock,
		Logger:           cfg.Logger,
		BaseContext:      cfg.BaseContext,
	})
}
