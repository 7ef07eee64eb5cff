package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/cart/mocks"
)

const (
	testUser = "user-123"
	testKey  = "guest-abc"
)

func newTestReconciler() (*cart.Reconciler, *mocks.MockStore, *mocks.MockSnapshotStore, *mocks.MockNotifier, *mocks.MockPublisher) {
	store := mocks.NewMockStore()
	snapshots := mocks.NewMockSnapshotStore()
	notifier := &mocks.MockNotifier{}
	publisher := &mocks.MockPublisher{}
	r := cart.NewReconciler(store, snapshots, notifier, publisher)
	return r, store, snapshots, notifier, publisher
}

func seedSnapshot(t *testing.T, snapshots *mocks.MockSnapshotStore, items ...cart.SnapshotItem) {
	t.Helper()
	require.NoError(t, snapshots.Save(context.Background(), testKey, items))
}

// requireOneItem asserts the owner has exactly one row per (product, size)
// and returns the row for the given pair.
func requireOneItem(t *testing.T, store *mocks.MockStore, productID, size string) cart.LineItem {
	t.Helper()
	var matches []cart.LineItem
	for _, it := range store.Items(testUser) {
		if it.ProductID == productID && it.Size == size {
			matches = append(matches, it)
		}
	}
	require.Len(t, matches, 1, "expected exactly one row for (%s, %s)", productID, size)
	return matches[0]
}

// ============================================
// Merge into an empty authenticated cart
// ============================================

func TestReconcile_EmptyRemoteCart(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1})

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.SnapshotCleared)
	assert.False(t, snapshots.Has(testKey))

	item := requireOneItem(t, store, "sneaker-42", "US9")
	assert.Equal(t, 1, item.Quantity)
}

func TestReconcile_DistinctItems(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots,
		cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1},
		cart.SnapshotItem{ProductID: "sneaker-42", Size: "US10", Quantity: 2},
		cart.SnapshotItem{ProductID: "boot-7", Size: "US9", Quantity: 3},
	)

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Len(t, store.Items(testUser), 3)
	assert.Equal(t, 1, requireOneItem(t, store, "sneaker-42", "US9").Quantity)
	assert.Equal(t, 2, requireOneItem(t, store, "sneaker-42", "US10").Quantity)
	assert.Equal(t, 3, requireOneItem(t, store, "boot-7", "US9").Quantity)
}

// ============================================
// Quantity summation for items already in the cart
// ============================================

func TestReconcile_SumsQuantities(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	store.Seed(testUser, "sneaker-42", "US9", 1)
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 2})

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 0, result.Inserted)
	assert.True(t, result.SnapshotCleared)

	item := requireOneItem(t, store, "sneaker-42", "US9")
	assert.Equal(t, 3, item.Quantity)
}

// ============================================
// No duplicate (owner, product, size) rows after a merge
// ============================================

func TestReconcile_NoDuplicatePairs(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	store.Seed(testUser, "sneaker-42", "US9", 2)
	store.Seed(testUser, "boot-7", "US8", 1)
	seedSnapshot(t, snapshots,
		cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 3},
		cart.SnapshotItem{ProductID: "boot-7", Size: "US8", Quantity: 1},
		cart.SnapshotItem{ProductID: "cap-1", Size: "M", Quantity: 1},
	)

	_, err := r.Reconcile(context.Background(), testUser, testKey)
	require.NoError(t, err)

	seen := make(map[[2]string]int)
	for _, it := range store.Items(testUser) {
		seen[[2]string{it.ProductID, it.Size}]++
	}
	for pair, count := range seen {
		assert.Equal(t, 1, count, "duplicate rows for %v", pair)
	}
	assert.Equal(t, 5, requireOneItem(t, store, "sneaker-42", "US9").Quantity)
	assert.Equal(t, 2, requireOneItem(t, store, "boot-7", "US8").Quantity)
	assert.Equal(t, 1, requireOneItem(t, store, "cap-1", "M").Quantity)
}

// ============================================
// Empty snapshot is a no-op
// ============================================

func TestReconcile_EmptySnapshot_NoWrites(t *testing.T) {
	r, store, snapshots, _, publisher := newTestReconciler()
	store.Seed(testUser, "sneaker-42", "US9", 1)
	store.Seed(testUser, "boot-7", "US8", 2)

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Empty(t, store.InsertCalls)
	assert.Empty(t, store.UpdateCalls)
	assert.Empty(t, snapshots.ClearCalls)
	assert.Empty(t, publisher.Published)
	assert.Len(t, result.Cart, 2)
}

// ============================================
// Snapshot cleared only on full success
// ============================================

func TestReconcile_RefetchFailure_KeepsSnapshot(t *testing.T) {
	r, store, snapshots, notifier, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1})
	store.FetchErrOnCall = 2 // initial fetch succeeds, re-fetch fails

	_, err := r.Reconcile(context.Background(), testUser, testKey)

	require.Error(t, err)
	assert.True(t, snapshots.Has(testKey), "snapshot must survive an unconfirmed merge")
	assert.Empty(t, snapshots.ClearCalls)
	assert.NotEmpty(t, notifier.Notifications)
}

func TestReconcile_InitialFetchFailure_AbortsWholeMerge(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1})
	store.FetchErrOnCall = 1

	_, err := r.Reconcile(context.Background(), testUser, testKey)

	require.Error(t, err)
	assert.Empty(t, store.InsertCalls)
	assert.Empty(t, store.UpdateCalls)
	assert.True(t, snapshots.Has(testKey))
}

func TestReconcile_ItemFailure_SkipsItemAndContinues(t *testing.T) {
	r, store, snapshots, notifier, _ := newTestReconciler()
	seedSnapshot(t, snapshots,
		cart.SnapshotItem{ProductID: "flaky-1", Size: "M", Quantity: 1},
		cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 2},
	)
	store.FindErrFor["flaky-1"] = errors.New("connection reset")

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Inserted)

	// The failed item must not be inserted unconditionally.
	for _, call := range store.InsertCalls {
		assert.NotEqual(t, "flaky-1", call.ProductID)
	}
	// Snapshot stays for retry since not every item is accounted for.
	assert.False(t, result.SnapshotCleared)
	assert.True(t, snapshots.Has(testKey))
	assert.NotEmpty(t, notifier.Notifications)
}

// ============================================
// Contract violations
// ============================================

func TestReconcile_NotAuthenticated(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1})

	_, err := r.Reconcile(context.Background(), "", testKey)

	assert.ErrorIs(t, err, cart.ErrNotAuthenticated)
	assert.Empty(t, store.FetchCalls)
	assert.Empty(t, store.InsertCalls)
	assert.True(t, snapshots.Has(testKey))
}

func TestReconcile_InvalidSnapshotItem_CountsAsFailed(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots,
		cart.SnapshotItem{ProductID: "", Size: "US9", Quantity: 1},
		cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1},
	)

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, store.Items(testUser), 1)
}

// ============================================
// Concurrent writers
// ============================================

func TestReconcile_ConcurrentInsert_ConvertsToUpdate(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 2})

	// Another device inserts the same pair between the existence check and
	// the insert, so the insert hits the uniqueness constraint.
	store.BeforeInsert = func(ownerID, productID, size string) {
		store.BeforeInsert = nil
		store.Seed(ownerID, productID, size, 1)
	}

	result, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged, "losing insert must convert to an update")
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.Failed)

	item := requireOneItem(t, store, "sneaker-42", "US9")
	assert.Equal(t, 3, item.Quantity, "concurrent quantity plus snapshot quantity")
}

func TestReconcile_ConcurrentInvocations_Coalesce(t *testing.T) {
	r, store, snapshots, _, _ := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 2})

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.BeforeInsert = func(string, string, string) {
		once.Do(func() {
			close(started)
			<-release
		})
	}

	var wg sync.WaitGroup
	results := make([]*cart.MergeResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i == 1 {
				<-started // second trigger fires while the first is mid-merge
			}
			results[i], errs[i] = r.Reconcile(context.Background(), testUser, testKey)
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond) // let the second caller join the flight
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Whether the second caller shared the flight or ran against the
	// already-cleared snapshot, the snapshot is applied exactly once.
	item := requireOneItem(t, store, "sneaker-42", "US9")
	assert.Equal(t, 2, item.Quantity)
	assert.Len(t, store.InsertCalls, 1)
	assert.False(t, snapshots.Has(testKey))
}

// ============================================
// Side effects
// ============================================

func TestReconcile_PublishesMergeEvent(t *testing.T) {
	r, _, snapshots, _, publisher := newTestReconciler()
	seedSnapshot(t, snapshots, cart.SnapshotItem{ProductID: "sneaker-42", Size: "US9", Quantity: 1})

	_, err := r.Reconcile(context.Background(), testUser, testKey)

	require.NoError(t, err)
	require.Len(t, publisher.Published, 1)
	assert.Equal(t, testUser, publisher.Published[0].Key)
}
