// internal/application/usecase/mirrored_store.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	coldom "storefront/internal/domain/collection"
	sessiondom "storefront/internal/domain/session"
)

// DefaultDebounceInterval is the quiescence window before a mutation is persisted.
const DefaultDebounceInterval = 500 * time.Millisecond

// IdentitySource supplies the current identity and its transitions.
// *session.Session implements it.
type IdentitySource interface {
	Identity() (string, bool)
	Subscribe(fn sessiondom.Listener) func()
}

// MirroredStoreOptions configures a MirroredStore.
type MirroredStoreOptions struct {
	// Collection is the remote collection name (e.g. "carts").
	Collection string

	// Merge is applied when an item with an existing id is added.
	// nil = KeepExisting (presence-only).
	Merge coldom.MergePolicy

	// CountMode selects TotalCount semantics.
	CountMode coldom.CountMode

	// DebounceInterval defaults to DefaultDebounceInterval.
	DebounceInterval time.Duration

	// VerifyWrites re-reads the document after each debounced write.
	VerifyWrites bool

	Clock  Clock
	Logger *zap.Logger

	// BaseContext is used for background writes and identity-triggered loads.
	BaseContext context.Context
}

// MirroredStore is an in-memory ordered collection owned by one session and
// mirrored to a per-user remote document.
//
//   - local mutations are synchronous and authoritative
//   - remote writes are debounced and fire-and-forget, and land in the order issued
//   - nothing is written before the initial load for the current identity completes
//   - remote failures are logged, never returned
type MirroredStore struct {
	store      coldom.DocumentStore
	collection string
	merge      coldom.MergePolicy
	countMode  coldom.CountMode
	debounce   time.Duration
	verify     bool
	clock      Clock
	log        *zap.Logger
	baseCtx    context.Context

	mu          sync.Mutex
	items       coldom.Collection
	uid         string
	loading     bool
	initialLoad bool
	loadGen     uint64

	timer    Timer
	timerGen uint64
	pending  bool

	inflight  int
	idle      chan struct{}
	lastWrite chan struct{} // closed when the most recently issued write is done

	unsubscribe func()
	closed      bool
}

func NewMirroredStore(store coldom.DocumentStore, opts MirroredStoreOptions) *MirroredStore {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = DefaultDebounceInterval
	}
	if opts.Merge == nil {
		opts.Merge = coldom.KeepExisting
	}
	col := strings.TrimSpace(opts.Collection)

	return &MirroredStore{
		store:      store,
		collection: col,
		merge:      opts.Merge,
		countMode:  opts.CountMode,
		debounce:   opts.DebounceInterval,
		verify:     opts.VerifyWrites,
		clock:      opts.Clock,
		log: opts.Logger.With(
			zap.String("component", "mirrored_store"),
			zap.String("collection", col),
		),
		baseCtx: opts.BaseContext,
		items:   coldom.Collection{},
	}
}

// Bind subscribes to identity transitions and initializes with the current identity.
func (s *MirroredStore) Bind(ctx context.Context, src IdentitySource) {
	if src == nil {
		return
	}
	unsub := src.Subscribe(func(uid string) {
		s.Initialize(s.baseCtx, uid)
	})

	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsub
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	uid, _ := src.Identity()
	s.Initialize(ctx, uid)
}

// Initialize (re)loads the collection for uid; uid == "" is anonymous.
// It blocks until the load completes and never returns the fetch error:
// absent, malformed or unreachable documents all yield an empty collection.
func (s *MirroredStore) Initialize(ctx context.Context, uid string) {
	uid = strings.TrimSpace(uid)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.loadGen++
	gen := s.loadGen
	s.uid = uid
	s.items = coldom.Collection{}

	if uid == "" {
		s.loading = false
		s.initialLoad = false
		s.mu.Unlock()
		s.log.Debug("initialized anonymous collection")
		return
	}

	s.loading = true
	s.initialLoad = true
	s.mu.Unlock()

	items := s.load(ctx, uid)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		s.log.Debug("discarding stale load", zap.String("uid", MaskUID(uid)))
		return
	}
	s.items = items
	s.loading = false
	s.initialLoad = false
}

func (s *MirroredStore) load(ctx context.Context, uid string) coldom.Collection {
	if s.store == nil {
		return coldom.Collection{}
	}
	raw, err := s.store.Get(ctx, s.collection, uid)
	if err != nil {
		s.log.Warn("load failed; falling back to empty collection",
			zap.String("uid", MaskUID(uid)), zap.Error(err))
		return coldom.Collection{}
	}
	if raw == nil {
		s.log.Debug("no remote document", zap.String("uid", MaskUID(uid)))
		return coldom.Collection{}
	}

	doc := coldom.DecodeDocument(raw)
	s.log.Debug("loaded remote document",
		zap.String("uid", MaskUID(uid)), zap.Int("items", len(doc.Items)))
	return doc.Items
}

// Add appends item, or applies the merge policy when its id already exists.
// The only error is coldom.ErrInvalidItem.
func (s *MirroredStore) Add(item coldom.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed, err := s.items.Add(item, s.merge)
	if err != nil {
		return err
	}
	if changed {
		s.items = next
		s.schedulePersistLocked()
	}
	return nil
}

// Remove drops id. No-op if absent.
func (s *MirroredStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next, changed := s.items.Remove(id); changed {
		s.items = next
		s.schedulePersistLocked()
	}
}

// SetQuantity sets the quantity of id; qty <= 0 removes it.
func (s *MirroredStore) SetQuantity(id string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next, changed := s.items.SetQuantity(id, qty); changed {
		s.items = next
		s.schedulePersistLocked()
	}
}

// Clear empties the collection and, with an identity present, immediately
// overwrites the remote document with an empty list (no debounce).
// A load still in flight is discarded so the clear sticks.
func (s *MirroredStore) Clear() {
	s.mu.Lock()
	s.items = coldom.Collection{}
	s.stopTimerLocked()
	if s.loading {
		s.loadGen++
		s.loading = false
		s.initialLoad = false
	}

	uid := s.uid
	if uid == "" || s.closed || s.store == nil {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	prev, done := s.nextWriteLocked()
	s.mu.Unlock()

	go func() {
		defer s.endWrite(done)
		if !s.waitTurn(s.baseCtx, prev) {
			s.log.Warn("clear write abandoned", zap.String("uid", MaskUID(uid)))
			return
		}
		doc := coldom.NewRemoteDocument(uid, coldom.Collection{}, now)
		if err := s.store.Set(s.baseCtx, s.collection, uid, doc.Encode(), coldom.SetOptions{Merge: false}); err != nil {
			s.log.Warn("clear write failed", zap.String("uid", MaskUID(uid)), zap.Error(err))
			return
		}
		s.log.Debug("cleared remote document", zap.String("uid", MaskUID(uid)))
	}()
}

func (s *MirroredStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Contains(id)
}

// Get returns a copy of the item with id.
func (s *MirroredStore) Get(id string) (coldom.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Get(id)
}

// Items returns a copy of the collection.
func (s *MirroredStore) Items() coldom.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

func (s *MirroredStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Identity returns the uid the collection currently belongs to ("" = anonymous).
func (s *MirroredStore) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// TotalCount is the length or the quantity sum, depending on CountMode.
func (s *MirroredStore) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Count(s.countMode)
}

func (s *MirroredStore) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Subtotal()
}

// Flush runs a pending debounced write now and waits for every in-flight write.
func (s *MirroredStore) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.pending {
		s.stopTimerLocked()
		uid, items, now := s.uid, s.items.Clone(), s.clock.Now()
		prev, done := s.nextWriteLocked()
		s.mu.Unlock()

		if s.waitTurn(ctx, prev) {
			s.persist(ctx, uid, items, now)
		}
		s.endWrite(done)
	} else {
		s.mu.Unlock()
	}

	s.waitIdle(ctx)
}

// Close cancels any pending write and stops following identity changes.
// In-flight writes are not interrupted.
func (s *MirroredStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// ----------------------------
// persistence path
// ----------------------------

func (s *MirroredStore) schedulePersistLocked() {
	if s.uid == "" || s.loading || s.initialLoad || s.closed || s.store == nil {
		return
	}

	s.stopTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.pending = true
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

func (s *MirroredStore) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

func (s *MirroredStore) fire(gen uint64) {
	s.mu.Lock()
	if !s.pending || gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	uid, items, now := s.uid, s.items.Clone(), s.clock.Now()
	prev, done := s.nextWriteLocked()
	s.mu.Unlock()

	defer s.endWrite(done)
	if !s.waitTurn(s.baseCtx, prev) {
		s.log.Warn("save abandoned", zap.String("uid", MaskUID(uid)))
		return
	}
	s.persist(s.baseCtx, uid, items, now)
}

func (s *MirroredStore) persist(ctx context.Context, uid string, items coldom.Collection, now time.Time) {
	doc := coldom.NewRemoteDocument(uid, items, now)

	if err := s.store.Set(ctx, s.collection, uid, doc.Encode(), coldom.SetOptions{Merge: true}); err != nil {
		s.log.Warn("save failed", zap.String("uid", MaskUID(uid)), zap.Error(err))
		return
	}
	s.log.Debug("saved remote document",
		zap.String("uid", MaskUID(uid)), zap.Int("items", len(items)))

	if !s.verify {
		return
	}
	raw, err := s.store.Get(ctx, s.collection, uid)
	if err != nil {
		s.log.Warn("verify read failed", zap.String("uid", MaskUID(uid)), zap.Error(err))
		return
	}
	if raw == nil {
		s.log.Warn("document missing after write", zap.String("uid", MaskUID(uid)))
	}
}

// nextWriteLocked reserves the next slot in the write chain. prev is closed
// once the previously issued write is done (nil when there is none).
func (s *MirroredStore) nextWriteLocked() (prev <-chan struct{}, done chan struct{}) {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++

	prev = s.lastWrite
	done = make(chan struct{})
	s.lastWrite = done
	return prev, done
}

// waitTurn blocks until the previous write is done. false means ctx ended first.
func (s *MirroredStore) waitTurn(ctx context.Context, prev <-chan struct{}) bool {
	if prev == nil {
		return true
	}
	select {
	case <-prev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *MirroredStore) endWrite(done chan struct{}) {
	close(done)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastWrite == done {
		s.lastWrite = nil
	}
	s.inflight--
	if s.inflight == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

func (s *MirroredStore) waitIdle(ctx context.Context) {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}
