package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/cart/mocks"
)

func newTestService() (*cart.Service, *mocks.MockStore, *mocks.MockSnapshotStore) {
	store := mocks.NewMockStore()
	snapshots := mocks.NewMockSnapshotStore()
	return cart.NewService(store, snapshots), store, snapshots
}

func guest() cart.Owner { return cart.Owner{GuestKey: testKey} }
func user() cart.Owner  { return cart.Owner{UserID: testUser} }

func TestService_AddItem_Guest_DuplicateAddIncrements(t *testing.T) {
	svc, _, snapshots := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 1))
	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 2))
	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US10", 1))

	items, err := snapshots.Load(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "US9", items[0].Size)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestService_AddItem_Guest_PreservesSnapshotOrder(t *testing.T) {
	svc, _, snapshots := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, guest(), "boot-7", "US8", 1))
	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 1))

	items, err := snapshots.Load(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "boot-7", items[0].ProductID)
	assert.Equal(t, "sneaker-42", items[1].ProductID)
}

func TestService_AddItem_User_UsesAtomicUpsert(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user(), "sneaker-42", "US9", 1))
	require.NoError(t, svc.AddItem(ctx, user(), "sneaker-42", "US9", 2))

	items := store.Items(testUser)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	// The upsert path never issues a bare insert.
	assert.Empty(t, store.InsertCalls)
}

func TestService_AddItem_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddItem(ctx, guest(), "", "US9", 1), cart.ErrInvalidProduct)
	assert.ErrorIs(t, svc.AddItem(ctx, guest(), "sneaker-42", "", 1), cart.ErrInvalidSize)
	assert.ErrorIs(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 0), cart.ErrInvalidQuantity)
}

func TestService_UpdateQuantity_Guest_ZeroRemoves(t *testing.T) {
	svc, _, snapshots := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 2))
	require.NoError(t, svc.UpdateQuantity(ctx, guest(), "sneaker-42", "US9", 0))

	items, err := snapshots.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_UpdateQuantity_UnknownItem(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	err := svc.UpdateQuantity(ctx, guest(), "missing", "US9", 1)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestService_RemoveItem_User(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.Seed(testUser, "sneaker-42", "US9", 2)

	require.NoError(t, svc.RemoveItem(ctx, user(), "sneaker-42", "US9"))
	assert.Empty(t, store.Items(testUser))
}

func TestService_Get_GuestItemsCarryAnonymousOwner(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, guest(), "sneaker-42", "US9", 1))

	items, err := svc.Get(ctx, guest())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cart.AnonymousOwner, items[0].OwnerID)
}

func TestService_Count(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.Seed(testUser, "sneaker-42", "US9", 2)
	store.Seed(testUser, "boot-7", "US8", 3)

	count, err := svc.Count(ctx, user())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestService_Clear_User(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.Seed(testUser, "sneaker-42", "US9", 2)

	require.NoError(t, svc.Clear(ctx, user()))
	assert.Empty(t, store.Items(testUser))
}
