package response

import (
	"errors"
	"net/http"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/logger"
	"github.com/worketyamo/workplace/services/auth-service/internal/metrics"
)

const (
	bearerRealm       = `Bearer realm="workplace"`
	retryAfterSeconds = "1"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindForbidden:      http.StatusForbidden,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindInternal:       http.StatusInternalServerError,
}

// StatusOf is the HTTP status for err. Anything that is not a domain error is a 500.
func StatusOf(err error) int {
	if s, ok := kindStatus[domain.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error": {...}}. Causes never reach the client;
// server side failures are logged with them instead.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	payload := ErrorPayload{
		Code:      "internal_error",
		Message:   "internal error",
		RequestID: RequestIDFromContext(r),
	}

	var de *domain.Error
	if errors.As(err, &de) {
		payload.Code = de.Code
		payload.Message = de.Message
		payload.Meta = de.Meta
	}

	metrics.ErrorResponsesTotal.WithLabelValues(payload.Code).Inc()

	h := w.Header()
	switch status {
	case http.StatusUnauthorized:
		h.Set("WWW-Authenticate", challenge(payload.Code))
	case http.StatusServiceUnavailable:
		h.Set("Retry-After", retryAfterSeconds)
	}
	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().Err(err).Str("code", payload.Code).Int("status", status).Msg("request failed")
	}

	noStore(w)
	WriteJSON(w, status, ErrorBody{Error: payload})
}

// challenge follows RFC 6750: a bad bearer token is invalid_token, a missing
// one gets the bare realm.
func challenge(code string) string {
	switch code {
	case domain.CodeTokenExpired, domain.CodeTokenInvalid, domain.CodeTokenBlacklisted:
		return bearerRealm + `, error="invalid_token"`
	default:
		return bearerRealm
	}
}
