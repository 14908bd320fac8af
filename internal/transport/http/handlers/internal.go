package http_handlers

import (
	"net/http"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/logger"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/dto"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/response"
)

// ResetPassword sets a new password for a mailbox whose ownership the calling
// service has already proven. It must only be mounted behind InternalAuth.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if !decode(w, r, &req) {
		return
	}

	// no caller session here; nothing to revoke
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.NewPassword, domain.SessionTokens{}); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Msg("password_reset_internal")
	response.NoContent(w)
}
