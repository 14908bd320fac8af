package security

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath scopes the refresh cookie to the auth routes only.
	RefreshCookiePath = "/auth/v1"
)

func refreshCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     RefreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetRefreshToken stores the refresh token for ttl; a non-positive ttl would
// delete the cookie, so it is clamped to one second.
func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	maxAge := int(ttl / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, refreshCookie(token, maxAge, secure))
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, refreshCookie("", -1, secure))
}

// ReadRefreshToken returns "" when the cookie is absent.
func ReadRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}
