package cart

import (
	"context"
	"fmt"
)

// Owner identifies whose cart an operation targets: an authenticated user,
// or a guest session holding an anonymous snapshot.
type Owner struct {
	UserID   string
	GuestKey string
}

func (o Owner) authenticated() bool { return o.UserID != "" }

// Service exposes the storefront cart operations over both stores. Guest
// writes go to the snapshot store under the guest session key; authenticated
// writes go to the durable line-item store via the atomic upsert path.
type Service struct {
	store     Store
	snapshots SnapshotStore
}

func NewService(store Store, snapshots SnapshotStore) *Service {
	return &Service{store: store, snapshots: snapshots}
}

// Get returns the cart for the owner. Guest snapshots are surfaced as line
// items under the anonymous sentinel so the API response shape is uniform.
func (s *Service) Get(ctx context.Context, owner Owner) ([]LineItem, error) {
	if owner.authenticated() {
		return s.store.FetchByOwner(ctx, owner.UserID)
	}

	snapshot, err := s.snapshots.Load(ctx, owner.GuestKey)
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(snapshot))
	for _, it := range snapshot {
		items = append(items, LineItem{
			OwnerID:   AnonymousOwner,
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}
	return items, nil
}

// AddItem adds quantity of (product, size). A duplicate add increments the
// existing pair rather than creating a second entry.
func (s *Service) AddItem(ctx context.Context, owner Owner, productID, size string, quantity int) error {
	item := SnapshotItem{ProductID: productID, Size: size, Quantity: quantity}
	if err := item.validate(); err != nil {
		return err
	}

	if owner.authenticated() {
		_, err := s.store.AddItem(ctx, owner.UserID, productID, size, quantity)
		return err
	}

	snapshot, err := s.snapshots.Load(ctx, owner.GuestKey)
	if err != nil {
		return err
	}
	merged := false
	for i, it := range snapshot {
		if it.ProductID == productID && it.Size == size {
			snapshot[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		snapshot = append(snapshot, item)
	}
	return s.snapshots.Save(ctx, owner.GuestKey, snapshot)
}

// UpdateQuantity sets the quantity for a (product, size) pair. Zero removes
// the pair.
func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, productID, size string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	if owner.authenticated() {
		existing, err := s.store.Find(ctx, owner.UserID, productID, size)
		if err != nil {
			return err
		}
		_, err = s.store.UpdateQuantity(ctx, existing.ID, quantity)
		return err
	}

	snapshot, err := s.snapshots.Load(ctx, owner.GuestKey)
	if err != nil {
		return err
	}
	for i, it := range snapshot {
		if it.ProductID == productID && it.Size == size {
			if quantity == 0 {
				snapshot = append(snapshot[:i], snapshot[i+1:]...)
			} else {
				snapshot[i].Quantity = quantity
			}
			return s.snapshots.Save(ctx, owner.GuestKey, snapshot)
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes a (product, size) pair from the cart.
func (s *Service) RemoveItem(ctx context.Context, owner Owner, productID, size string) error {
	if owner.authenticated() {
		existing, err := s.store.Find(ctx, owner.UserID, productID, size)
		if err != nil {
			return err
		}
		return s.store.Delete(ctx, existing.ID)
	}
	return s.UpdateQuantity(ctx, owner, productID, size, 0)
}

// Clear empties the cart, e.g. after order placement.
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	if owner.authenticated() {
		return s.store.Clear(ctx, owner.UserID)
	}
	if err := s.snapshots.Clear(ctx, owner.GuestKey); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

// Count returns the total quantity across the cart, for the item-count badge.
func (s *Service) Count(ctx context.Context, owner Owner) (int, error) {
	items, err := s.Get(ctx, owner)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total, nil
}
