package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "storefront-test-signing-key-0123456789"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(testSigningKey, 15*time.Minute, 7*24*time.Hour)
}

// shopperToken and adminToken mint access tokens for the two roles the
// storefront knows.
func shopperToken(t *testing.T, jwtService *auth.JWTService) string {
	t.Helper()
	token, _, err := jwtService.GenerateAccessToken("shopper-81", "shopper@example.com", user.RoleCustomer)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, jwtService *auth.JWTService) string {
	t.Helper()
	token, _, err := jwtService.GenerateAccessToken("staff-1", "staff@example.com", user.RoleAdmin)
	require.NoError(t, err)
	return token
}

// claimsRecorder is a terminal handler that captures what the middleware
// put into the request context.
func claimsRecorder(captured **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetUserFromContext(r.Context()); ok {
			*captured = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================================
// AuthMiddleware
// ============================================================

func TestAuthMiddleware_TokenSources(t *testing.T) {
	jwtService := newTestJWTService()
	token := shopperToken(t, jwtService)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
	}{
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		}},
		{"bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *auth.Claims
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			AuthMiddleware(jwtService)(claimsRecorder(&captured)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, captured)
			assert.Equal(t, "shopper-81", captured.UserID)
			assert.Equal(t, user.RoleCustomer, captured.Role)
		})
	}
}

func TestAuthMiddleware_CookieWinsOverHeader(t *testing.T) {
	jwtService := newTestJWTService()

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: shopperToken(t, jwtService)})
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwtService))
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService)(claimsRecorder(&captured)).ServeHTTP(rec, req)

	require.NotNil(t, captured)
	assert.Equal(t, "shopper-81", captured.UserID)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	expiredService := auth.NewJWTService(testSigningKey, 1*time.Millisecond, time.Hour)
	expired := shopperToken(t, expiredService)
	time.Sleep(10 * time.Millisecond)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantBody string
	}{
		{"no token", func(r *http.Request) {}, "unauthorized"},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-token")
		}, "invalid token"},
		{"expired token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: expired})
		}, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			AuthMiddleware(jwtService)(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.False(t, called)
		})
	}
}

// ============================================================
// OptionalAuthMiddleware
// ============================================================

func TestOptionalAuthMiddleware_PassesThroughWithoutToken(t *testing.T) {
	jwtService := newTestJWTService()

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()

	OptionalAuthMiddleware(jwtService)(claimsRecorder(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)
	assert.Empty(t, GetUserID(req.Context()))
}

func TestOptionalAuthMiddleware_AttachesClaimsWhenPresent(t *testing.T) {
	jwtService := newTestJWTService()

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: shopperToken(t, jwtService)})
	rec := httptest.NewRecorder()

	OptionalAuthMiddleware(jwtService)(claimsRecorder(&captured)).ServeHTTP(rec, req)

	require.NotNil(t, captured)
	assert.Equal(t, "shopper-81", captured.UserID)
}

func TestOptionalAuthMiddleware_IgnoresBadToken(t *testing.T) {
	jwtService := newTestJWTService()

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "stale-or-garbage"})
	rec := httptest.NewRecorder()

	OptionalAuthMiddleware(jwtService)(claimsRecorder(&captured)).ServeHTTP(rec, req)

	// Request proceeds anonymously; the guest cart path still works
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)
}

// ============================================================
// RequireAdmin
// ============================================================

func TestRequireAdmin(t *testing.T) {
	jwtService := newTestJWTService()

	adminClaims, err := jwtService.ValidateAccessToken(adminToken(t, jwtService))
	require.NoError(t, err)
	shopperClaims, err := jwtService.ValidateAccessToken(shopperToken(t, jwtService))
	require.NoError(t, err)

	tests := []struct {
		name     string
		claims   *auth.Claims
		wantCode int
	}{
		{"admin passes", adminClaims, http.StatusOK},
		{"customer forbidden", shopperClaims, http.StatusForbidden},
		{"no claims unauthorized", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserContextKey, tt.claims))
			}
			rec := httptest.NewRecorder()

			RequireAdmin(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, called)
		})
	}
}

// ============================================================
// Context helpers
// ============================================================

func TestGetUserID(t *testing.T) {
	claims := &auth.Claims{UserID: "shopper-81", Role: user.RoleCustomer}
	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	assert.Equal(t, "shopper-81", GetUserID(ctx))
	assert.Empty(t, GetUserID(context.Background()))

	got, ok := GetUserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)
}
