package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/cart"
)

// MockStore is an in-memory cart.Store for testing. It enforces the
// (owner, product, size) uniqueness constraint the way the real storage
// layer does, and exposes hooks to inject failures and interleavings.
type MockStore struct {
	mu    sync.Mutex
	items map[string]*cart.LineItem // id -> item

	// Call tracking
	FetchCalls  []string
	FindCalls   []FindCall
	InsertCalls []InsertCall
	UpdateCalls []UpdateCall

	// Failure injection
	FetchErr       error
	FetchErrOnCall int // 1-based FetchByOwner call number to fail, 0 = never
	FindErr        error
	FindErrFor     map[string]error // productID -> error
	InsertErr      error
	UpdateErr      error

	// BeforeInsert runs before the uniqueness check, so a test can slip a
	// concurrent write in between an existence check and the insert.
	BeforeInsert func(ownerID, productID, size string)

	fetchCount int
}

type FindCall struct {
	OwnerID   string
	ProductID string
	Size      string
}

type InsertCall struct {
	OwnerID   string
	ProductID string
	Size      string
	Quantity  int
}

type UpdateCall struct {
	LineItemID string
	Quantity   int
}

func NewMockStore() *MockStore {
	return &MockStore{
		items:      make(map[string]*cart.LineItem),
		FindErrFor: make(map[string]error),
	}
}

// Seed inserts an item directly, bypassing hooks and call tracking.
func (m *MockStore) Seed(ownerID, productID, size string, quantity int) *cart.LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(ownerID, productID, size, quantity)
}

func (m *MockStore) put(ownerID, productID, size string, quantity int) *cart.LineItem {
	item := &cart.LineItem{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		ProductID: productID,
		Size:      size,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}
	m.items[item.ID] = item
	return item
}

func (m *MockStore) find(ownerID, productID, size string) *cart.LineItem {
	for _, it := range m.items {
		if it.OwnerID == ownerID && it.ProductID == productID && it.Size == size {
			return it
		}
	}
	return nil
}

// SetUnitPrice sets the embedded product price on a seeded item.
func (m *MockStore) SetUnitPrice(id string, price int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.UnitPrice = price
	}
}

// Items returns a copy of all items for an owner.
func (m *MockStore) Items(ownerID string) []cart.LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []cart.LineItem
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out
}

func (m *MockStore) FetchByOwner(ctx context.Context, ownerID string) ([]cart.LineItem, error) {
	m.mu.Lock()
	m.fetchCount++
	count := m.fetchCount
	m.FetchCalls = append(m.FetchCalls, ownerID)
	m.mu.Unlock()

	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if m.FetchErrOnCall != 0 && count == m.FetchErrOnCall {
		return nil, errFetch
	}
	return m.Items(ownerID), nil
}

func (m *MockStore) Find(ctx context.Context, ownerID, productID, size string) (*cart.LineItem, error) {
	m.mu.Lock()
	m.FindCalls = append(m.FindCalls, FindCall{OwnerID: ownerID, ProductID: productID, Size: size})
	err := m.FindErr
	if e, ok := m.FindErrFor[productID]; ok {
		err = e
	}
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	item := m.find(ownerID, productID, size)
	m.mu.Unlock()

	if item == nil {
		return nil, cart.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *MockStore) Insert(ctx context.Context, ownerID, productID, size string, quantity int) (*cart.LineItem, error) {
	if m.BeforeInsert != nil {
		m.BeforeInsert(ownerID, productID, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, InsertCall{OwnerID: ownerID, ProductID: productID, Size: size, Quantity: quantity})
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	if m.find(ownerID, productID, size) != nil {
		return nil, cart.ErrDuplicateItem
	}
	item := m.put(ownerID, productID, size, quantity)
	copied := *item
	return &copied, nil
}

func (m *MockStore) AddItem(ctx context.Context, ownerID, productID, size string, quantity int) (*cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.find(ownerID, productID, size); existing != nil {
		existing.Quantity += quantity
		copied := *existing
		return &copied, nil
	}
	item := m.put(ownerID, productID, size, quantity)
	copied := *item
	return &copied, nil
}

func (m *MockStore) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) (*cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{LineItemID: lineItemID, Quantity: quantity})
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	item, ok := m.items[lineItemID]
	if !ok {
		return nil, cart.ErrItemNotFound
	}
	if quantity <= 0 {
		delete(m.items, lineItemID)
		return nil, nil
	}
	item.Quantity = quantity
	copied := *item
	return &copied, nil
}

func (m *MockStore) Delete(ctx context.Context, lineItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[lineItemID]; !ok {
		return cart.ErrItemNotFound
	}
	delete(m.items, lineItemID)
	return nil
}

func (m *MockStore) Clear(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, it := range m.items {
		if it.OwnerID == ownerID {
			delete(m.items, id)
		}
	}
	return nil
}
