package cart

import (
	"errors"
	"time"
)

// AnonymousOwner is the sentinel owner under which a cart is held before an
// identity exists. It never appears in the cart_items table; anonymous carts
// live in the snapshot store.
const AnonymousOwner = "anonymous"

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidProduct   = errors.New("product_id is required")
	ErrInvalidSize      = errors.New("size is required")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrDuplicateItem    = errors.New("cart item already exists for owner, product and size")
	ErrNotAuthenticated = errors.New("merge requires an authenticated identity")
)

// LineItem is one (product, size) selection and its quantity for an owner.
// For a given owner the (product, size) pair is unique; quantity is the only
// mutable field.
type LineItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	// Embedded product detail, filled on fetch.
	ProductName string `json:"product_name,omitempty"`
	UnitPrice   int    `json:"unit_price,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// SnapshotItem is one record of the anonymous cart snapshot.
type SnapshotItem struct {
	ProductID string `json:"product_ref"`
	Size      string `json:"size_ref"`
	Quantity  int    `json:"quantity"`
}

func (i SnapshotItem) validate() error {
	if i.ProductID == "" {
		return ErrInvalidProduct
	}
	if i.Size == "" {
		return ErrInvalidSize
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
