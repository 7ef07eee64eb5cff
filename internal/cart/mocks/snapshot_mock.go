package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/example/storefront/internal/cart"
)

var (
	errFetch = errors.New("injected fetch failure")
)

// MockSnapshotStore is an in-memory cart.SnapshotStore for testing.
type MockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string][]cart.SnapshotItem

	LoadErr    error
	SaveErr    error
	ClearErr   error
	ClearCalls []string
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{snapshots: make(map[string][]cart.SnapshotItem)}
}

func (m *MockSnapshotStore) Load(ctx context.Context, key string) ([]cart.SnapshotItem, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.snapshots[key]
	out := make([]cart.SnapshotItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *MockSnapshotStore) Save(ctx context.Context, key string, items []cart.SnapshotItem) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make([]cart.SnapshotItem, len(items))
	copy(saved, items)
	m.snapshots[key] = saved
	return nil
}

func (m *MockSnapshotStore) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	m.ClearCalls = append(m.ClearCalls, key)
	m.mu.Unlock()

	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, key)
	return nil
}

// Has reports whether the key still holds a snapshot.
func (m *MockSnapshotStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snapshots[key]
	return ok
}

// MockNotifier records notifications.
type MockNotifier struct {
	mu            sync.Mutex
	Notifications []Notification
}

type Notification struct {
	Kind    string
	Message string
}

func (m *MockNotifier) Notify(kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, Notification{Kind: kind, Message: message})
}

// MockPublisher records published events.
type MockPublisher struct {
	mu        sync.Mutex
	Published []PublishedEvent
	Err       error
}

type PublishedEvent struct {
	Key   string
	Event any
}

func (m *MockPublisher) Publish(ctx context.Context, key string, ev any) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedEvent{Key: key, Event: ev})
	return nil
}
