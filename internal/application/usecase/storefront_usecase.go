// internal/application/usecase/storefront_usecase.go
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

// Kind names a mirrored collection of a Storefront.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// ParseKind accepts "cart"/"wishlist" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCart:
		return KindCart, nil
	case KindWishlist:
		return KindWishlist, nil
	default:
		return "", ErrUnknownCollection
	}
}

// Storefront binds one session to its cart and wishlist.
// Every identity transition reloads both collections concurrently.
type Storefront struct {
	session  *sessiondom.Session
	cart     *MirroredStore
	wishlist *MirroredStore
	log      *zap.Logger

	unsubscribe func()
}

func NewStorefront(ctx context.Context, sess *sessiondom.Session, cfg StoreConfig) *Storefront {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	cfg.Logger = cfg.Logger.With(zap.String("session", sess.ID()))

	sf := &Storefront{
		session:  sess,
		cart:     NewCartStore(cfg),
		wishlist: NewWishlistStore(cfg),
		log:      cfg.Logger.With(zap.String("component", "storefront")),
	}

	fan := newIdentityFanout(sess)
	sf.unsubscribe = sess.Subscribe(func(uid string) {
		sf.log.Info("identity changed; reloading collections", zap.String("uid", MaskUID(uid)))
		fan.notify(uid)
	})

	var g errgroup.Group
	g.Go(func() error {
		sf.cart.Bind(ctx, fan)
		return nil
	})
	g.Go(func() error {
		sf.wishlist.Bind(ctx, fan)
		return nil
	})
	_ = g.Wait()
	return sf
}

// identityFanout relays session transitions to its listeners concurrently
// and returns once every listener is done.
type identityFanout struct {
	src IdentitySource

	mu     sync.Mutex
	nextID int
	subs   map[int]sessiondom.Listener
}

func newIdentityFanout(src IdentitySource) *identityFanout {
	return &identityFanout{src: src, subs: map[int]sessiondom.Listener{}}
}

func (f *identityFanout) Identity() (string, bool) { return f.src.Identity() }

func (f *identityFanout) Subscribe(fn sessiondom.Listener) func() {
	if fn == nil {
		return func() {}
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *identityFanout) notify(uid string) {
	f.mu.Lock()
	fns := make([]sessiondom.Listener, 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	var g errgroup.Group
	for _, fn := range fns {
		g.Go(func() error {
			fn(uid)
			return nil
		})
	}
	_ = g.Wait()
}

func (sf *Storefront) Session() *sessiondom.Session { return sf.session }

func (sf *Storefront) Cart() *MirroredStore { return sf.cart }

func (sf *Storefront) Wishlist() *MirroredStore { return sf.wishlist }

// Store returns the collection for kind.
func (sf *Storefront) Store(kind Kind) (*MirroredStore, error) {
	switch kind {
	case KindCart:
		return sf.cart, nil
	case KindWishlist:
		return sf.wishlist, nil
	default:
		return nil, ErrUnknownCollection
	}
}

// Login switches the session to uid; both collections reload before it returns.
func (sf *Storefront) Login(uid string) {
	sf.session.SetIdentity(uid)
}

// Logout drops the identity; both collections become empty and local-only.
func (sf *Storefront) Logout() {
	sf.session.ClearIdentity()
}

// MoveToCart copies a wishlist item into the cart (quantity 1) and removes it
// from the wishlist.
func (sf *Storefront) MoveToCart(id string) error {
	it, ok := sf.wishlist.Get(id)
	if !ok {
		return ErrItemNotInCollection
	}
	it.Quantity = 1
	it.LastModified = time.Time{}
	if err := sf.cart.Add(it); err != nil {
		return err
	}
	sf.wishlist.Remove(it.ID)
	return nil
}

// Flush persists pending writes of both collections and waits for them.
func (sf *Storefront) Flush(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sf.cart.Flush(gctx)
		return nil
	})
	g.Go(func() error {
		sf.wishlist.Flush(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close stops following the session and cancels pending writes.
func (sf *Storefront) Close() {
	if sf.unsubscribe != nil {
		sf.unsubscribe()
	}
	sf.cart.Close()
	sf.wishlist.Close()
}
