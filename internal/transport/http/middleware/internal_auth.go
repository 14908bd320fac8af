package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

const HeaderInternalSecret = "X-Internal-Secret"

// InternalAuth admits service-to-service calls that present the shared secret.
// An empty secret fails closed.
func InternalAuth(secret string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeErr(w, r, domain.ErrInternal(nil))
				return
			}

			got := r.Header.Get(HeaderInternalSecret)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
