package http_handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/auth"
	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/security"
	"github.com/worketyamo/workplace/services/auth-service/internal/logger"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/dto"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/middleware"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// decode reads and validates a request body, writing the error itself.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := response.DecodeJSON(r, dst); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	if err := dto.Validate(dst); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	return true
}

// session collects the tokens presented by the caller so the service can revoke them.
func session(r *http.Request) domain.SessionTokens {
	return domain.SessionTokens{
		Access:  middleware.AccessTokenFromContext(r.Context()),
		Refresh: security.ReadRefreshToken(r),
	}
}

func tokensView(t auth.Tokens) dto.TokensView {
	return dto.TokensView{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("account_id", res.AccountID).
		Msg("account_registered")

	response.Created(w, dto.RegisterResponse{AccountID: res.AccountID, Status: "verification_pending"})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Verify(r.Context(), req.Email, req.Code); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusResponse{Status: "verified"})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendOTP(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Accepted(w, dto.StatusResponse{Status: "otp_sent"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	toks, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, toks.RefreshToken, h.refreshTTL, h.secureCookies)
	response.Tokens(w, tokensView(toks))
}

// Refresh rotates the pair using the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	rt := security.ReadRefreshToken(r)
	if rt == "" {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	toks, err := h.svc.Refresh(r.Context(), rt)
	if err != nil {
		// a dead cookie is useless to the browser
		if domain.KindOf(err) == domain.KindAuth {
			security.ClearRefreshToken(w, h.secureCookies)
		}
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, toks.RefreshToken, h.refreshTTL, h.secureCookies)
	response.Tokens(w, tokensView(toks))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), session(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	security.ClearRefreshToken(w, h.secureCookies)
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	acc, err := h.svc.Me(r.Context(), claims.Subject)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MeData{Account: dto.NewAccountView(acc)})
}

func (h *AuthHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.UpdateEmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdateEmail(r.Context(), claims.Subject, req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusResponse{Status: "email_updated"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.PasswordChangeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), claims.Subject, req.OldPassword, req.NewPassword, session(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("account_id", claims.Subject).
		Msg("password_changed")

	security.ClearRefreshToken(w, h.secureCookies)
	response.NoContent(w)
}

// DeleteAccount handles DELETE /accounts/{id}. Self or admin only.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		response.WriteError(w, r, domain.ErrMissingField("id"))
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), claims.Identity(), targetID, session(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if targetID == claims.Subject {
		security.ClearRefreshToken(w, h.secureCookies)
	}
	response.NoContent(w)
}
