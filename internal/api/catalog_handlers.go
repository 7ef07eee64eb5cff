package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/storefront/internal/catalog"
)

// CatalogHandlers serves the public product browse surface, backed by the
// request-cached catalog service.
type CatalogHandlers struct {
	catalog *catalog.Service
}

func NewCatalogHandlers(svc *catalog.Service) *CatalogHandlers {
	return &CatalogHandlers{catalog: svc}
}

func (h *CatalogHandlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := catalog.SearchParams{
		Query:      q.Get("q"),
		CategoryID: q.Get("category"),
		Sort:       q.Get("sort"),
	}
	params.MinPrice, _ = strconv.Atoi(q.Get("min_price"))
	params.MaxPrice, _ = strconv.Atoi(q.Get("max_price"))
	params.Limit, _ = strconv.Atoi(q.Get("limit"))
	params.Offset, _ = strconv.Atoi(q.Get("offset"))

	products, err := h.catalog.Search(r.Context(), params)
	if err != nil {
		respondJSONError(w, "Failed to search products", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/products/")

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to load categories", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := extractPathParam(r.URL.Path, "/api/categories/")

	category, err := h.catalog.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			respondJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load category", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, category)
}
