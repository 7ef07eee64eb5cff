// Package favorites persists each user's favorited products. Toggling is a
// single round trip: an insert that hits the primary key becomes a delete.
package favorites

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Favorite struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`

	ProductName string `json:"product_name,omitempty"`
	Price       int    `json:"price,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Toggle adds the product to the user's favorites, or removes it if already
// present. Returns true when the product is favorited after the call.
func (s *Store) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("favorite %s for %s: %w", productID, userID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("unfavorite %s for %s: %w", productID, userID, err)
	}
	return false, nil
}

// List returns the user's favorites with embedded product detail, newest
// first.
func (s *Store) List(ctx context.Context, userID string) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.user_id, f.product_id, f.created_at, p.name, p.price, p.image_url
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites for %s: %w", userID, err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.UserID, &f.ProductID, &f.CreatedAt, &f.ProductName, &f.Price, &f.ImageURL); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}
