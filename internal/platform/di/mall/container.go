// internal/platform/di/mall/container.go
package mall

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	usecase "storefront/internal/application/usecase"
	shared "storefront/internal/platform/di/shared"
)

// Container is the Mall DI container.
// Pure DI: build deps only. No routing branching.
type Container struct {
	Infra    *shared.Infra
	Registry *usecase.Registry

	log *zap.Logger

	// baseCtx outlives requests; background loads and writes run on it.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	evictDone  chan struct{}
	closeOnce  sync.Once
}

// NewContainer wires the session registry on top of infra and starts the
// idle-session evictor.
func NewContainer(ctx context.Context, infra *shared.Infra) (*Container, error) {
	if infra == nil {
		return nil, errors.New("di.mall: infra is nil")
	}
	if infra.DocumentStore == nil {
		return nil, errors.New("di.mall: infra.DocumentStore is nil")
	}
	logger := infra.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := infra.Settings

	reg := usecase.NewRegistry(usecase.StoreConfig{
		Store:              infra.DocumentStore,
		CartCollection:     s.CartCollection,
		WishlistCollection: s.WishlistCollection,
		DebounceInterval:   s.DebounceInterval,
		VerifyWrites:       s.VerifyWrites,
		Logger:             logger,
		BaseContext:        baseCtx,
	})

	c := &Container{
		Infra:      infra,
		Registry:   reg,
		log:        logger.With(zap.String("component", "di.mall")),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		evictDone:  make(chan struct{}),
	}

	go func() {
		defer close(c.evictDone)
		reg.RunEvictor(baseCtx, s.SessionIdleTTL, s.EvictInterval)
	}()

	c.log.Info("mall container ready",
		zap.String("cart_collection", s.CartCollection),
		zap.String("wishlist_collection", s.WishlistCollection),
		zap.Duration("debounce", s.DebounceInterval),
		zap.Duration("session_idle_ttl", s.SessionIdleTTL),
	)
	return c, nil
}

// Shutdown flushes every live session within ctx, then stops background work.
func (c *Container) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		err = c.Registry.CloseAll(ctx)
		c.cancelBase()
		<-c.evictDone
		if err != nil {
			c.log.Warn("shutdown flush incomplete", zap.Error(err))
		}
	})
	return err
}

// Close implements the boot closer with a bounded flush.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.Shutdown(ctx)
}
