package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
)

// RouterConfig collects the handler groups the router wires together.
type RouterConfig struct {
	Handlers   *Handlers
	Auth       *AuthHandlers
	Catalog    *CatalogHandlers
	Admin      *AdminHandlers
	JWTService *auth.JWTService
	WebDir     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(h))
	}

	// Static files (web UI)
	if cfg.WebDir != "" {
		fs := http.FileServer(http.Dir(cfg.WebDir))
		mux.Handle("/", fs)
	}

	// Auth
	mux.HandleFunc("/api/auth/register", methodHandler(http.MethodPost, cfg.Auth.Register))
	mux.HandleFunc("/api/auth/login", methodHandler(http.MethodPost, cfg.Auth.Login))
	mux.HandleFunc("/api/auth/logout", methodHandler(http.MethodPost, cfg.Auth.Logout))
	mux.HandleFunc("/api/auth/refresh", methodHandler(http.MethodPost, cfg.Auth.Refresh))
	mux.Handle("/api/auth/me", requireAuth(methodHandler(http.MethodGet, cfg.Auth.Me)))
	mux.Handle("/api/auth/password", requireAuth(methodHandler(http.MethodPut, cfg.Auth.ChangePassword)))

	// Catalog (public)
	mux.HandleFunc("/api/products", methodHandler(http.MethodGet, cfg.Catalog.SearchProducts))
	mux.HandleFunc("/api/products/", methodHandler(http.MethodGet, cfg.Catalog.GetProduct))
	mux.HandleFunc("/api/categories", methodHandler(http.MethodGet, cfg.Catalog.ListCategories))
	mux.HandleFunc("/api/categories/", methodHandler(http.MethodGet, cfg.Catalog.GetCategory))

	// Cart (guest or authenticated)
	mux.HandleFunc("/api/cart", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetCart(w, r)
		case http.MethodDelete:
			cfg.Handlers.ClearCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/api/cart/items", methodHandler(http.MethodPost, cfg.Handlers.AddToCart))
	mux.HandleFunc("/api/cart/items/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			cfg.Handlers.UpdateCartItem(w, r)
		case http.MethodDelete:
			cfg.Handlers.RemoveFromCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Orders (authenticated)
	mux.Handle("/api/orders", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetOrders(w, r)
		case http.MethodPost:
			cfg.Handlers.PlaceOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/cancel") && r.Method == http.MethodPost:
			cfg.Handlers.CancelOrder(w, r)
		case r.Method == http.MethodGet:
			cfg.Handlers.GetOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	// Favorites (authenticated)
	mux.Handle("/api/favorites", requireAuth(methodHandler(http.MethodGet, cfg.Handlers.GetFavorites)))
	mux.Handle("/api/favorites/", requireAuth(methodHandler(http.MethodPost, cfg.Handlers.ToggleFavorite)))

	// Support chat (authenticated)
	mux.Handle("/api/chat/messages", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetChatHistory(w, r)
		case http.MethodPost:
			cfg.Handlers.PostChatMessage(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	// Admin
	mux.Handle("/api/admin/products", requireAdmin(methodHandler(http.MethodPost, cfg.Admin.CreateProduct)))
	mux.Handle("/api/admin/products/", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			cfg.Admin.UpdateProduct(w, r)
		case http.MethodDelete:
			cfg.Admin.DeleteProduct(w, r)
		default:
			methodNotAllowed(w)
		}
	}))
	mux.Handle("/api/admin/categories", requireAdmin(methodHandler(http.MethodPost, cfg.Admin.CreateCategory)))
	mux.Handle("/api/admin/categories/", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			cfg.Admin.UpdateCategory(w, r)
		case http.MethodDelete:
			cfg.Admin.DeleteCategory(w, r)
		default:
			methodNotAllowed(w)
		}
	}))
	mux.Handle("/api/admin/orders", requireAdmin(methodHandler(http.MethodGet, cfg.Admin.ListOrders)))
	mux.Handle("/api/admin/orders/", requireAdmin(methodHandler(http.MethodPut, cfg.Admin.UpdateOrderStatus)))
	mux.Handle("/api/admin/conversations", requireAdmin(methodHandler(http.MethodGet, cfg.Admin.ListConversations)))

	// Every request carries a guest token; auth claims attach when present
	handler := middleware.EnsureGuestToken(
		middleware.OptionalAuthMiddleware(cfg.JWTService)(mux))

	return withLogging(handler)
}

func methodHandler(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
