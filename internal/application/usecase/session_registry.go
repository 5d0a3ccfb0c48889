// internal/application/usecase/session_registry.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	sessiondom "storefront/internal/domain/session"
)

// Registry owns the live storefront sessions of this process.
type Registry struct {
	cfg   StoreConfig
	clock Clock
	log   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Storefront
}

func NewRegistry(cfg StoreConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		clock:    cfg.Clock,
		log:      cfg.Logger.With(zap.String("component", "session_registry")),
		sessions: map[string]*Storefront{},
	}
}

// Create starts an anonymous session.
func (r *Registry) Create(ctx context.Context) *Storefront {
	sess := sessiondom.New(r.clock.Now())
	sf := NewStorefront(ctx, sess, r.cfg)

	r.mu.Lock()
	r.sessions[sess.ID()] = sf
	n := len(r.sessions)
	r.mu.Unlock()

	r.log.Debug("session created", zap.String("session", sess.ID()), zap.Int("live", n))
	return sf
}

// Get returns the session and records activity on it.
func (r *Registry) Get(id string) (*Storefront, error) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	sf, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sf.Session().Touch(r.clock.Now())
	return sf, nil
}

// Delete flushes pending writes of the session, then closes and forgets it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	sf, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	err := sf.Flush(ctx)
	sf.Close()
	r.log.Debug("session deleted", zap.String("session", id))
	return err
}

// EvictIdle deletes sessions not seen for longer than ttl and returns how many.
func (r *Registry) EvictIdle(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-ttl)

	r.mu.RLock()
	var stale []string
	for id, sf := range r.sessions {
		if sf.Session().LastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if err := r.Delete(ctx, id); err == nil {
			n++
		}
	}
	if n > 0 {
		r.log.Info("evicted idle sessions", zap.Int("count", n))
	}
	return n
}

// FlushAll persists pending writes of every session concurrently.
func (r *Registry) FlushAll(ctx context.Context) error {
	r.mu.RLock()
	all := make([]*Storefront, 0, len(r.sessions))
	for _, sf := range r.sessions {
		all = append(all, sf)
	}
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for _, sf := range all {
		g.Go(func() error {
			return sf.Flush(gctx)
		})
	}
	return g.Wait()
}

// CloseAll flushes and closes every session (graceful shutdown).
func (r *Registry) CloseAll(ctx context.Context) error {
	err := r.FlushAll(ctx)

	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Storefront{}
	r.mu.Unlock()

	for _, sf := range all {
		sf.Close()
	}
	r.log.Info("closed all sessions", zap.Int("count", len(all)))
	return err
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RunEvictor evicts idle sessions every interval until ctx is done.
func (r *Registry) RunEvictor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.EvictIdle(ctx, ttl)
		}
	}
}
