package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore serves the read-only storefront queries and the admin CRUD
// over products and categories.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const productColumns = `id, name, description, price, image_url, category_id, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	var categoryID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &categoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.String
	return &p, nil
}

// Search lists products matching the filters. Full-text search ranks by
// relevance; otherwise the sort parameter decides ordering.
func (s *PostgresStore) Search(ctx context.Context, params SearchParams) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions = append(conditions, "is_active = true")
	if params.Query != "" {
		conditions = append(conditions, "search_vector @@ plainto_tsquery('english', "+arg(params.Query)+")")
	}
	if params.CategoryID != "" {
		conditions = append(conditions, "category_id = "+arg(params.CategoryID))
	}
	if params.MinPrice > 0 {
		conditions = append(conditions, "price >= "+arg(params.MinPrice))
	}
	if params.MaxPrice > 0 {
		conditions = append(conditions, "price <= "+arg(params.MaxPrice))
	}

	query += " WHERE " + conditions[0]
	for _, cond := range conditions[1:] {
		query += " AND " + cond
	}

	switch {
	case params.Query != "":
		query += " ORDER BY ts_rank(search_vector, plainto_tsquery('english', $1)) DESC"
	case params.Sort == "price_asc":
		query += " ORDER BY price ASC"
	case params.Sort == "price_desc":
		query += " ORDER BY price DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	if params.Limit > 0 {
		query += " LIMIT " + arg(params.Limit)
	}
	if params.Offset > 0 {
		query += " OFFSET " + arg(params.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	sizes, err := s.productSizes(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Sizes = sizes
	return p, nil
}

func (s *PostgresStore) productSizes(ctx context.Context, productID string) ([]Size, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT size, stock FROM product_sizes WHERE product_id = $1 ORDER BY size
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("get product sizes: %w", err)
	}
	defer rows.Close()

	var sizes []Size
	for rows.Next() {
		var sz Size
		if err := rows.Scan(&sz.Size, &sz.Stock); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		sizes = append(sizes, sz)
	}
	return sizes, rows.Err()
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	p.ID = uuid.New().String()
	p.IsActive = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, image_url, category_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, nullString(p.CategoryID), p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	for _, sz := range p.Sizes {
		if err := s.SetProductSize(ctx, p.ID, sz.Size, sz.Stock); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET
			name = $2, description = $3, price = $4, image_url = $5,
			category_id = $6, is_active = $7, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, nullString(p.CategoryID), p.IsActive)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) SetProductSize(ctx context.Context, productID, size string, stock int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_sizes (product_id, size, stock)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, size) DO UPDATE SET stock = EXCLUDED.stock
	`, productID, size, stock)
	if err != nil {
		return fmt.Errorf("set product size: %w", err)
	}
	return nil
}

// Category operations

const categoryColumns = `id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var c Category
	var parentID sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &parentID, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE is_active = true ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1 AND is_active = true`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	c.ID = uuid.New().String()
	c.IsActive = true
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Name, c.Slug, c.Description, nullString(c.ParentID), c.SortOrder, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = $2, slug = $3, description = $4, parent_id = $5,
			sort_order = $6, is_active = $7, updated_at = now()
		WHERE id = $1
	`, c.ID, c.Name, c.Slug, c.Description, nullString(c.ParentID), c.SortOrder, c.IsActive)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
