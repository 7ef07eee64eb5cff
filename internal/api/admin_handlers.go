package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/chat"
	"github.com/example/storefront/internal/order"
)

// AdminHandlers covers the management surface: catalog writes, order status
// transitions and the support inbox. All routes behind RequireAdmin.
type AdminHandlers struct {
	store   *catalog.PostgresStore
	catalog *catalog.Service
	orders  *order.Service
	chat    *chat.Service
}

func NewAdminHandlers(store *catalog.PostgresStore, svc *catalog.Service, orders *order.Service, chatSvc *chat.Service) *AdminHandlers {
	return &AdminHandlers{
		store:   store,
		catalog: svc,
		orders:  orders,
		chat:    chatSvc,
	}
}

// Product management

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if p.Name == "" || p.Price <= 0 {
		respondJSONError(w, "Name and a positive price are required", http.StatusBadRequest)
		return
	}

	created, err := h.store.CreateProduct(r.Context(), &p)
	if err != nil {
		respondJSONError(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/products/")

	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = id

	if err := h.store.UpdateProduct(r.Context(), &p); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to update product", http.StatusInternalServerError)
		return
	}

	for _, sz := range p.Sizes {
		if err := h.store.SetProductSize(r.Context(), id, sz.Size, sz.Stock); err != nil {
			respondJSONError(w, "Failed to update product sizes", http.StatusInternalServerError)
			return
		}
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/products/")

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// Category management

func (h *AdminHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.Name == "" || c.Slug == "" {
		respondJSONError(w, "Name and slug are required", http.StatusBadRequest)
		return
	}

	created, err := h.store.CreateCategory(r.Context(), &c)
	if err != nil {
		respondJSONError(w, "Failed to create category", http.StatusInternalServerError)
		return
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/categories/")

	var c catalog.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	c.ID = id

	if err := h.store.UpdateCategory(r.Context(), &c); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			respondJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to update category", http.StatusInternalServerError)
		return
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Category updated"})
}

func (h *AdminHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/categories/")

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			respondJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}

	h.catalog.Invalidate()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}

// Order management

func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to load orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/admin/orders/"), "/status")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidStatus):
			respondJSONError(w, "Invalid status", http.StatusBadRequest)
		case errors.Is(err, order.ErrNotFound):
			respondJSONError(w, "Order not found", http.StatusNotFound)
		default:
			respondJSONError(w, "Failed to update order", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Order updated"})
}

// Support inbox

func (h *AdminHandlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := h.chat.Conversations(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to load conversations", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"conversations": ids})
}
