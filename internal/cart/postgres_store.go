package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements Store on top of the cart_items table. The
// UNIQUE (owner_id, product_id, size) constraint backs ErrDuplicateItem.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const lineItemColumns = `
	ci.id, ci.owner_id, ci.product_id, ci.size, ci.quantity, ci.created_at,
	p.name, p.price, p.image_url`

func scanLineItem(row interface{ Scan(...any) error }) (*LineItem, error) {
	var item LineItem
	err := row.Scan(
		&item.ID, &item.OwnerID, &item.ProductID, &item.Size, &item.Quantity, &item.CreatedAt,
		&item.ProductName, &item.UnitPrice, &item.ImageURL,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *PostgresStore) FetchByOwner(ctx context.Context, ownerID string) ([]LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.owner_id = $1
		ORDER BY ci.created_at ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetch cart for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Find(ctx context.Context, ownerID, productID, size string) (*LineItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.owner_id = $1 AND ci.product_id = $2 AND ci.size = $3
	`, ownerID, productID, size)

	item, err := scanLineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) Insert(ctx context.Context, ownerID, productID, size string, quantity int) (*LineItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, owner_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`, id, ownerID, productID, size, quantity)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateItem
	}
	if err != nil {
		return nil, fmt.Errorf("insert cart item: %w", err)
	}
	return s.findByID(ctx, id)
}

func (s *PostgresStore) AddItem(ctx context.Context, ownerID, productID, size string, quantity int) (*LineItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, owner_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, product_id, size)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id
	`, uuid.New().String(), ownerID, productID, size, quantity).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return s.findByID(ctx, id)
}

func (s *PostgresStore) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) (*LineItem, error) {
	if quantity <= 0 {
		// Quantity reaching zero destroys the row.
		if err := s.Delete(ctx, lineItemID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $2 WHERE id = $1
	`, lineItemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("update cart item quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrItemNotFound
	}
	return s.findByID(ctx, lineItemID)
}

func (s *PostgresStore) Delete(ctx context.Context, lineItemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineItemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("clear cart for %s: %w", ownerID, err)
	}
	return nil
}

func (s *PostgresStore) findByID(ctx context.Context, id string) (*LineItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1
	`, id)

	item, err := scanLineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cart item by id: %w", err)
	}
	return item, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
