package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	coldom "storefront/internal/domain/collection"
	sessiondom "storefront/internal/domain/session"
)

func newTestWishlist(store *fakeDocStore, clock *fakeClock) *MirroredStore {
	return NewWishlistStore(StoreConfig{Store: store, Clock: clock})
}

func newTestCart(store *fakeDocStore, clock *fakeClock) *MirroredStore {
	return NewCartStore(StoreConfig{Store: store, Clock: clock})
}

func TestMirroredStore_AnonymousAddTwiceKeepsOneAndNeverWrites(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestWishlist(store, clock)

	s.Initialize(context.Background(), "")

	require.NoError(t, s.Add(coldom.Item{ID: "x"}))
	require.NoError(t, s.Add(coldom.Item{ID: "x"}))
	clock.Advance(time.Second)

	assert.Equal(t, []string{"x"}, ids(s.Items()))
	assert.Equal(t, 1, s.TotalCount())
	assert.True(t, s.Contains("x"))
	assert.False(t, s.Loading())
	assert.Empty(t, store.setCalls())
	assert.Zero(t, store.getCount())
	assert.Zero(t, clock.Active())
}

func TestMirroredStore_AddRejectsEmptyID(t *testing.T) {
	s := newTestWishlist(newFakeDocStore(), newFakeClock())
	err := s.Add(coldom.Item{ID: "  "})
	assert.ErrorIs(t, err, coldom.ErrInvalidItem)
	assert.Empty(t, s.Items())
}

func TestMirroredStore_InitializeLoadsRemoteItems(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultWishlistCollection, "alice",
		mustItem(t, "p1", 0, map[string]any{"name": "Lamp"}),
		mustItem(t, "p2", 0, nil),
	)
	s := newTestWishlist(store, newFakeClock())

	s.Initialize(context.Background(), "alice")

	assert.False(t, s.Loading())
	assert.Equal(t, "alice", s.Identity())
	assert.Equal(t, []string{"p1", "p2"}, ids(s.Items()))
	it, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "Lamp", it.Fields["name"])
	assert.Empty(t, store.setCalls(), "loading must not write back")
}

func TestMirroredStore_InitializeFailsOpenToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeDocStore)
	}{
		{
			name:  "document absent",
			setup: func(*fakeDocStore) {},
		},
		{
			name: "fetch error",
			setup: func(f *fakeDocStore) {
				f.getErr = errors.New("unavailable")
			},
		},
		{
			name: "malformed items field",
			setup: func(f *fakeDocStore) {
				f.docs[docKey(coldom.DefaultCartCollection, "bob")] = map[string]any{
					"userId": "bob",
					"items":  "not-a-list",
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeDocStore()
			tt.setup(store)
			clock := newFakeClock()
			s := newTestCart(store, clock)

			s.Initialize(context.Background(), "bob")

			assert.False(t, s.Loading())
			assert.Empty(t, s.Items())

			// the guard is cleared: the next mutation is persisted
			require.NoError(t, s.Add(coldom.Item{ID: "a", Quantity: 1}))
			assert.Equal(t, 1, clock.Active())
			s.Close()
		})
	}
}

func TestMirroredStore_NoWriteBeforeInitialLoadCompletes(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultCartCollection, "carol", mustItem(t, "remote", 2, nil))
	clock := newFakeClock()
	s := newTestCart(store, clock)

	release := store.gate("carol")
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(context.Background(), "carol")
	}()
	<-store.started

	assert.True(t, s.Loading())
	require.NoError(t, s.Add(coldom.Item{ID: "local", Quantity: 1}))
	s.Remove("nothing")
	clock.Advance(5 * time.Second)

	assert.Empty(t, store.setCalls(), "no write while loading")
	assert.Zero(t, clock.Active(), "no write scheduled while loading")

	release()
	<-done

	assert.False(t, s.Loading())
	assert.Equal(t, []string{"remote"}, ids(s.Items()))
	clock.Advance(5 * time.Second)
	assert.Empty(t, store.setCalls())
}

func TestMirroredStore_DebounceCollapsesBurstIntoOneWrite(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestCart(store, clock)
	s.Initialize(context.Background(), "dave")

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(coldom.Item{ID: "p" + strconv.Itoa(i), Quantity: 1}))
		clock.Advance(100 * time.Millisecond)
	}
	s.Remove("p0")
	assert.Empty(t, store.setCalls())

	clock.Advance(DefaultDebounceInterval - time.Millisecond)
	assert.Empty(t, store.setCalls())

	clock.Advance(time.Millisecond)
	calls := store.setCalls()
	require.Len(t, calls, 1)

	c := calls[0]
	assert.Equal(t, coldom.DefaultCartCollection, c.collection)
	assert.Equal(t, "dave", c.key)
	assert.True(t, c.merge)
	assert.Equal(t, "dave", c.payload[coldom.FieldUserID])
	assert.Equal(t, clock.Now().UnixMilli(), c.payload[coldom.FieldTimestamp])
	assert.Equal(t, clock.Now().Format(time.RFC3339Nano), c.payload[coldom.FieldUpdatedAt])

	items := decodedItems(t, c)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(items))
	for _, it := range items {
		assert.True(t, clock.Now().Equal(it.LastModified))
	}

	clock.Advance(time.Hour)
	assert.Len(t, store.setCalls(), 1)
}

func TestMirroredStore_NoOpMutationsDoNotSchedule(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestWishlist(store, clock)
	s.Initialize(context.Background(), "erin")

	s.Remove("missing")
	s.SetQuantity("missing", 3)
	assert.Zero(t, clock.Active())

	require.NoError(t, s.Add(coldom.Item{ID: "x"}))
	clock.Advance(DefaultDebounceInterval)
	require.Len(t, store.setCalls(), 1)

	require.NoError(t, s.Add(coldom.Item{ID: "x"}))
	assert.Zero(t, clock.Active(), "re-adding to a presence-only collection changes nothing")
}

func TestMirroredStore_ClearWritesImmediately(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultCartCollection, "frank", mustItem(t, "a", 1, nil), mustItem(t, "b", 1, nil))
	clock := newFakeClock()
	s := newTestCart(store, clock)
	s.Initialize(context.Background(), "frank")

	require.NoError(t, s.Add(coldom.Item{ID: "c", Quantity: 1}))
	require.Equal(t, 1, clock.Active())

	s.Clear()
	assert.Empty(t, s.Items())
	assert.Zero(t, clock.Active(), "clear cancels the pending debounced write")

	s.Flush(context.Background())

	calls := store.setCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].merge)
	assert.Equal(t, "frank", calls[0].payload[coldom.FieldUserID])
	assert.Empty(t, decodedItems(t, calls[0]))

	clock.Advance(time.Hour)
	assert.Len(t, store.setCalls(), 1)
}

func TestMirroredStore_ClearLandsAfterInFlightSave(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestCart(store, clock)
	s.Initialize(context.Background(), "gina")
	require.NoError(t, s.Add(coldom.Item{ID: "a", Quantity: 1}))

	release := store.holdSet("gina")
	fired := make(chan struct{})
	go func() {
		defer close(fired)
		clock.Advance(DefaultDebounceInterval)
	}()
	<-store.setStarted

	s.Clear()
	release()
	<-fired
	s.Flush(context.Background())

	calls := store.setCalls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].merge, "debounced save lands first")
	assert.False(t, calls[1].merge, "clear-write lands last")
	assert.Empty(t, store.remoteItems(t, coldom.DefaultCartCollection, "gina"))
	assert.Empty(t, s.Items())
}

func TestMirroredStore_ClearDuringLoadSticks(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultCartCollection, "hank", mustItem(t, "old", 1, nil))
	clock := newFakeClock()
	s := newTestCart(store, clock)

	release := store.gate("hank")
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(context.Background(), "hank")
	}()
	<-store.started

	s.Clear()
	assert.False(t, s.Loading())
	release()
	<-done

	assert.Empty(t, s.Items(), "the pre-clear load is discarded")
	s.Flush(context.Background())
	assert.Empty(t, store.remoteItems(t, coldom.DefaultCartCollection, "hank"))

	require.NoError(t, s.Add(coldom.Item{ID: "new", Quantity: 1}))
	clock.Advance(DefaultDebounceInterval)
	assert.Equal(t, []string{"new"}, ids(store.remoteItems(t, coldom.DefaultCartCollection, "hank")))
}

func TestMirroredStore_ClearAnonymousIsLocalOnly(t *testing.T) {
	store := newFakeDocStore()
	s := newTestCart(store, newFakeClock())
	require.NoError(t, s.Add(coldom.Item{ID: "a"}))

	s.Clear()
	s.Flush(context.Background())

	assert.Empty(t, s.Items())
	assert.Empty(t, store.setCalls())
}

func TestMirroredStore_IdentitySwitchReloads(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultWishlistCollection, "bob", mustItem(t, "b1", 0, nil))
	clock := newFakeClock()
	sess := sessiondom.New(clock.Now())
	s := newTestWishlist(store, clock)
	s.Bind(context.Background(), sess)
	defer s.Close()

	sess.SetIdentity("alice")
	require.NoError(t, s.Add(coldom.Item{ID: "a1"}))
	clock.Advance(DefaultDebounceInterval)
	require.Len(t, store.setCalls(), 1)

	sess.SetIdentity("bob")
	assert.Equal(t, []string{"b1"}, ids(s.Items()))

	sess.SetIdentity("alice")
	assert.Equal(t, []string{"a1"}, ids(s.Items()))

	sess.ClearIdentity()
	assert.Empty(t, s.Items())
	assert.Len(t, store.setCalls(), 1, "switching identity never writes")
}

func TestMirroredStore_SwitchCancelsPendingWriteOfPreviousIdentity(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestWishlist(store, clock)
	s.Initialize(context.Background(), "alice")

	require.NoError(t, s.Add(coldom.Item{ID: "a1"}))
	s.Initialize(context.Background(), "bob")
	clock.Advance(time.Second)

	assert.Empty(t, store.setCalls())
}

func TestMirroredStore_StaleLoadIsDiscarded(t *testing.T) {
	store := newFakeDocStore()
	store.seed(coldom.DefaultWishlistCollection, "alice", mustItem(t, "a1", 0, nil))
	store.seed(coldom.DefaultWishlistCollection, "bob", mustItem(t, "b1", 0, nil))
	s := newTestWishlist(store, newFakeClock())

	release := store.gate("alice")
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(context.Background(), "alice")
	}()
	<-store.started

	s.Initialize(context.Background(), "bob")
	release()
	<-done

	assert.Equal(t, "bob", s.Identity())
	assert.Equal(t, []string{"b1"}, ids(s.Items()))
	assert.False(t, s.Loading())
}

func TestMirroredStore_SaveFailureIsLoggedNotSurfaced(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := newFakeDocStore()
	store.setErr = errors.New("permission denied")
	clock := newFakeClock()
	s := NewCartStore(StoreConfig{Store: store, Clock: clock, Logger: zap.New(core)})
	s.Initialize(context.Background(), "gina")

	require.NoError(t, s.Add(coldom.Item{ID: "a", Quantity: 2}))
	clock.Advance(DefaultDebounceInterval)

	assert.Len(t, store.setCalls(), 1)
	assert.Equal(t, []string{"a"}, ids(s.Items()))
	assert.Equal(t, 1, logs.FilterMessage("save failed").Len())
}

func TestMirroredStore_VerifyWritesWarnsWhenDocumentMissing(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newFakeDocStore()
	store.dropSet = true
	clock := newFakeClock()
	s := NewWishlistStore(StoreConfig{Store: store, Clock: clock, Logger: zap.New(core), VerifyWrites: true})
	s.Initialize(context.Background(), "hank")

	require.NoError(t, s.Add(coldom.Item{ID: "a"}))
	clock.Advance(DefaultDebounceInterval)

	assert.Equal(t, 1, logs.FilterMessage("document missing after write").Len())
	assert.Equal(t, 2, store.getCount(), "initial load + verification read")
}

func TestMirroredStore_CartIncrementsQuantity(t *testing.T) {
	s := newTestCart(newFakeDocStore(), newFakeClock())

	require.NoError(t, s.Add(mustItem(t, "x", 2, map[string]any{"price": 10.0})))
	require.NoError(t, s.Add(mustItem(t, "x", 3, map[string]any{"name": "Mug"})))
	require.NoError(t, s.Add(mustItem(t, "y", 0, map[string]any{"price": 2.5})))

	it, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, 5, it.Quantity)
	assert.Equal(t, "Mug", it.Fields["name"])
	assert.Equal(t, 6, s.TotalCount())
	assert.InDelta(t, 52.5, s.Subtotal(), 0.001)

	s.SetQuantity("x", 1)
	assert.Equal(t, 2, s.TotalCount())
	s.SetQuantity("x", 0)
	assert.False(t, s.Contains("x"))
}

func TestMirroredStore_FlushRunsPendingWriteNow(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestWishlist(store, clock)
	s.Initialize(context.Background(), "ivy")

	require.NoError(t, s.Add(coldom.Item{ID: "a"}))
	s.Flush(context.Background())

	require.Len(t, store.setCalls(), 1)
	assert.Zero(t, clock.Active())
	clock.Advance(time.Second)
	assert.Len(t, store.setCalls(), 1)

	s.Flush(context.Background())
	assert.Len(t, store.setCalls(), 1, "nothing pending, nothing written")
}

func TestMirroredStore_CloseCancelsPendingWrite(t *testing.T) {
	store := newFakeDocStore()
	clock := newFakeClock()
	sess := sessiondom.New(clock.Now())
	sess.SetIdentity("jack")
	s := newTestWishlist(store, clock)
	s.Bind(context.Background(), sess)

	require.NoError(t, s.Add(coldom.Item{ID: "a"}))
	s.Close()
	clock.Advance(time.Second)
	sess.SetIdentity("kate")

	assert.Empty(t, store.setCalls())
	assert.Equal(t, "jack", s.Identity(), "closed store ignores identity changes")
}

func TestMirroredStore_RandomAddRemoveMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := newFakeDocStore()
	clock := newFakeClock()
	s := newTestWishlist(store, clock)
	s.Initialize(context.Background(), "model")

	want := []string{}
	present := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := "p" + strconv.Itoa(rng.Intn(20))
		if rng.Intn(3) == 0 {
			s.Remove(id)
			if present[id] {
				delete(present, id)
				for j, w := range want {
					if w == id {
						want = append(want[:j], want[j+1:]...)
						break
					}
				}
			}
		} else {
			require.NoError(t, s.Add(coldom.Item{ID: id}))
			if !present[id] {
				present[id] = true
				want = append(want, id)
			}
		}
		if rng.Intn(10) == 0 {
			clock.Advance(DefaultDebounceInterval)
		}
	}
	clock.Advance(DefaultDebounceInterval)

	assert.Equal(t, want, ids(s.Items()))
	calls := store.setCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, want, ids(decodedItems(t, calls[len(calls)-1])), "remote converges to the final local state")
}
