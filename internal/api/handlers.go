package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/chat"
	"github.com/example/storefront/internal/favorites"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/user"
)

type Handlers struct {
	carts     *cart.Service
	orders    *order.Service
	favorites *favorites.Store
	chat      *chat.Service
}

func NewHandlers(carts *cart.Service, orders *order.Service, favs *favorites.Store, chatSvc *chat.Service) *Handlers {
	return &Handlers{
		carts:     carts,
		orders:    orders,
		favorites: favs,
		chat:      chatSvc,
	}
}

// ownerFrom resolves the cart owner for a request: the authenticated user
// when present, otherwise the guest token.
func ownerFrom(r *http.Request) cart.Owner {
	return cart.Owner{
		UserID:   middleware.GetUserID(r.Context()),
		GuestKey: middleware.GuestToken(r),
	}
}

// Cart Handlers

type CartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	Items []cart.LineItem `json:"items"`
	Count int             `json:"count"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.Get(r.Context(), ownerFrom(r))
	if err != nil {
		respondJSONError(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	respondJSON(w, http.StatusOK, CartResponse{Items: items, Count: count})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.carts.AddItem(r.Context(), ownerFrom(r), req.ProductID, req.Size, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	h.GetCart(w, r)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/api/cart/items/")
	size := r.URL.Query().Get("size")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.carts.UpdateQuantity(r.Context(), ownerFrom(r), productID, size, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	h.GetCart(w, r)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/api/cart/items/")
	size := r.URL.Query().Get("size")

	err := h.carts.RemoveItem(r.Context(), ownerFrom(r), productID, size)
	if err != nil {
		respondCartError(w, err)
		return
	}

	h.GetCart(w, r)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), ownerFrom(r)); err != nil {
		respondJSONError(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, CartResponse{Items: []cart.LineItem{}, Count: 0})
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidSize),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, cart.ErrItemNotFound):
		respondJSONError(w, "Item not in cart", http.StatusNotFound)
	default:
		respondJSONError(w, "Cart operation failed", http.StatusInternalServerError)
	}
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	placed, err := h.orders.Place(r.Context(), userID)
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			respondJSONError(w, "Cart is empty", http.StatusBadRequest)
			return
		}
		respondJSONError(w, "Failed to place order", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, placed)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		respondJSONError(w, "Failed to load orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/orders/")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}

	// Customers only see their own orders
	claims, _ := middleware.GetUserFromContext(r.Context())
	if claims == nil || (o.UserID != claims.UserID && claims.Role != user.RoleAdmin) {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/orders/"), "/cancel")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}

	claims, _ := middleware.GetUserFromContext(r.Context())
	if claims == nil || (o.UserID != claims.UserID && claims.Role != user.RoleAdmin) {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.orders.Cancel(r.Context(), id, req.Reason); err != nil {
		if errors.Is(err, order.ErrNotCancellable) {
			respondJSONError(w, "Order can no longer be cancelled", http.StatusConflict)
			return
		}
		respondJSONError(w, "Failed to cancel order", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled"})
}

// Favorites Handlers

func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := extractPathParam(r.URL.Path, "/api/favorites/")

	favorited, err := h.favorites.Toggle(r.Context(), userID, productID)
	if err != nil {
		respondJSONError(w, "Failed to update favorites", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"favorited": favorited})
}

func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	favs, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		respondJSONError(w, "Failed to load favorites", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, favs)
}

// Chat Handlers

func (h *Handlers) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ConversationID string `json:"conversation_id"`
		Body           string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Customers always post into their own thread; agents must name one
	conversationID := req.ConversationID
	if claims.Role != user.RoleAdmin {
		conversationID = claims.UserID
	}
	if conversationID == "" {
		respondJSONError(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	msg, err := h.chat.Post(r.Context(), conversationID, claims.UserID, claims.Role, req.Body)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyBody) || errors.Is(err, chat.ErrBodyTooLong) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSONError(w, "Failed to post message", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID := r.URL.Query().Get("conversation_id")
	if claims.Role != user.RoleAdmin {
		conversationID = claims.UserID
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	msgs, err := h.chat.History(r.Context(), conversationID, limit)
	if err != nil {
		respondJSONError(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
