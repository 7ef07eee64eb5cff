package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureGuestToken_AssignsTokenToFirstVisit(t *testing.T) {
	var seenByHandler string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenByHandler = GuestToken(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()
	EnsureGuestToken(next).ServeHTTP(rec, req)

	// The handler sees the token on the same request that triggered it
	require.NotEmpty(t, seenByHandler)
	_, err := uuid.Parse(seenByHandler)
	assert.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, GuestCookieName, cookies[0].Name)
	assert.Equal(t, seenByHandler, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestEnsureGuestToken_KeepsExistingToken(t *testing.T) {
	var seenByHandler string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenByHandler = GuestToken(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "guest-existing"})
	rec := httptest.NewRecorder()
	EnsureGuestToken(next).ServeHTTP(rec, req)

	// The snapshot key must stay stable across visits
	assert.Equal(t, "guest-existing", seenByHandler)
	assert.Empty(t, rec.Result().Cookies())
}

func TestClearGuestToken_ExpiresCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearGuestToken(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, GuestCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestGuestToken_NoCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	assert.Empty(t, GuestToken(req))
}
