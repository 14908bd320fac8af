package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// CSRFProtection validates Origin/Referer for endpoints authenticated by the
// refresh cookie. Safe methods pass through.
func CSRFProtection(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowedHosts := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			allowedHosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				writeErr(w, r, domain.WithMeta(domain.ErrForbidden(), map[string]string{"reason": "missing_origin"}))
				return
			}

			u, err := url.Parse(origin)
			if err != nil {
				writeErr(w, r, domain.WithMeta(domain.ErrForbidden(), map[string]string{"reason": "invalid_origin"}))
				return
			}
			if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
				writeErr(w, r, domain.WithMeta(domain.ErrForbidden(), map[string]string{"reason": "csrf_rejected"}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
