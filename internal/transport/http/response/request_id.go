package response

import (
	"net/http"

	pkgctx "github.com/worketyamo/workplace/services/auth-service/internal/pkg/context"
)

// RequestIDFromContext returns the id set by the request id middleware.
func RequestIDFromContext(r *http.Request) string {
	return pkgctx.GetRequestID(r.Context())
}
