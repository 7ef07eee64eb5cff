package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GuestCookieName holds the anonymous session token. It doubles as the
// snapshot key for the guest's cart.
const GuestCookieName = "guest_token"

// GuestToken returns the request's guest token, or "" when none is set.
func GuestToken(r *http.Request) string {
	if cookie, err := r.Cookie(GuestCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// EnsureGuestToken assigns a guest token to first-time visitors so their
// anonymous cart has a stable snapshot key before any identity exists.
func EnsureGuestToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GuestToken(r) == "" {
			token := uuid.New().String()
			cookie := &http.Cookie{
				Name:     GuestCookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(180 * 24 * time.Hour),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, cookie)
			r.AddCookie(cookie)
		}
		next.ServeHTTP(w, r)
	})
}

// ClearGuestToken removes the guest cookie so the next anonymous visit
// starts under a fresh snapshot key. Called at logout, never at sign-in:
// after a failed merge the old key must survive for retry.
func ClearGuestToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
