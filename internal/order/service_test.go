package order_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/cart/mocks"
	"github.com/example/storefront/internal/order"
)

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	InsertErr error
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*order.Order)}
}

func (m *memOrderStore) Insert(ctx context.Context, o *order.Order) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *o
	m.orders[o.ID] = &copied
	return nil
}

func (m *memOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memOrderStore) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderStore) ListAll(ctx context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrderStore) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

func newTestOrderService() (*order.Service, *memOrderStore, *mocks.MockStore, *mocks.MockPublisher) {
	orders := newMemOrderStore()
	carts := mocks.NewMockStore()
	publisher := &mocks.MockPublisher{}
	return order.NewService(orders, carts, publisher), orders, carts, publisher
}

func TestService_Place_Success(t *testing.T) {
	svc, orders, carts, publisher := newTestOrderService()
	ctx := context.Background()

	carts.Seed("user-1", "sneaker-42", "US9", 2)

	o, err := svc.Place(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	stored, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)

	// Checkout clears the cart.
	assert.Empty(t, carts.Items("user-1"))

	require.Len(t, publisher.Published, 1)
	assert.Equal(t, "user-1", publisher.Published[0].Key)
}

func TestService_Place_EmptyCart(t *testing.T) {
	svc, _, _, publisher := newTestOrderService()

	_, err := svc.Place(context.Background(), "user-1")
	assert.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Empty(t, publisher.Published)
}

func TestService_Place_TotalFromUnitPrices(t *testing.T) {
	svc, _, carts, _ := newTestOrderService()
	ctx := context.Background()

	a := carts.Seed("user-1", "sneaker-42", "US9", 2)
	b := carts.Seed("user-1", "boot-7", "US8", 1)
	// Prices come embedded on the fetched line items.
	carts.SetUnitPrice(a.ID, 5000)
	carts.SetUnitPrice(b.ID, 12000)

	o, err := svc.Place(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2*5000+12000, o.Total)
}

func TestService_Cancel_PendingOnly(t *testing.T) {
	svc, orders, carts, _ := newTestOrderService()
	ctx := context.Background()

	carts.Seed("user-1", "sneaker-42", "US9", 1)
	o, err := svc.Place(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, o.ID, "changed my mind"))
	cancelled, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	// A cancelled order cannot be cancelled again.
	assert.ErrorIs(t, svc.Cancel(ctx, o.ID, ""), order.ErrNotCancellable)
}

func TestService_Cancel_UnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestOrderService()
	err := svc.Cancel(context.Background(), "missing", "")
	assert.ErrorIs(t, err, order.ErrNotFound)
}
