package catalog

import (
	"context"
	"fmt"
	"time"
)

// Reader is the storage surface the query layer reads through.
type Reader interface {
	Search(ctx context.Context, params SearchParams) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
}

// Service is the read-only catalog query layer. It adds nothing beyond
// parameter shaping and a generic request cache in front of the store.
type Service struct {
	store Reader
	cache *requestCache
}

func NewService(store Reader, cacheTTL time.Duration) *Service {
	return &Service{store: store, cache: newRequestCache(cacheTTL)}
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]Product, error) {
	key := fmt.Sprintf("search|%s|%s|%d|%d|%s|%d|%d",
		params.Query, params.CategoryID, params.MinPrice, params.MaxPrice, params.Sort, params.Limit, params.Offset)
	v, err := s.cache.get(key, func() (any, error) {
		return s.store.Search(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	v, err := s.cache.get("product|"+id, func() (any, error) {
		return s.store.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	v, err := s.cache.get("categories", func() (any, error) {
		return s.store.ListCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Category), nil
}

func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	v, err := s.cache.get("category|"+slug, func() (any, error) {
		return s.store.GetCategoryBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Category), nil
}

// Invalidate drops cached reads after an admin write.
func (s *Service) Invalidate() {
	s.cache.invalidateAll()
}
