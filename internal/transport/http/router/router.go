package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Registration and verification
	Register(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	ResendOTP(w http.ResponseWriter, r *http.Request)

	// Session
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)

	// Account
	Me(w http.ResponseWriter, r *http.Request)
	UpdateEmail(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	DeleteAccount(w http.ResponseWriter, r *http.Request)

	// Internal callers only
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler

	// Metrics serves GET /metrics. Optional.
	Metrics http.Handler

	RequestIDMW    func(http.Handler) http.Handler
	AccessLogMW    func(http.Handler) http.Handler
	MetricsMW      func(http.Handler) http.Handler
	AuthMW         func(http.Handler) http.Handler
	CSRFMW         func(http.Handler) http.Handler
	InternalAuthMW func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.RequestIDMW == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.InternalAuthMW == nil {
		return nil, fmt.Errorf("nil InternalAuth middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	if deps.AccessLogMW != nil {
		r.Use(deps.AccessLogMW)
	}
	r.Use(chimw.Recoverer)
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/auth/v1", func(r chi.Router) {
		// --- Registration ---
		r.Post("/register", deps.Auth.Register)
		r.Post("/verify", deps.Auth.Verify)
		r.Post("/otp/resend", deps.Auth.ResendOTP)

		// --- Session ---
		r.Post("/login", deps.Auth.Login)
		if deps.CSRFMW != nil {
			// refresh is the only cookie-authenticated route
			r.With(deps.CSRFMW).Post("/refresh", deps.Auth.Refresh)
		} else {
			r.Post("/refresh", deps.Auth.Refresh)
		}

		// --- Authenticated ---
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Post("/logout", deps.Auth.Logout)
			r.Get("/me", deps.Auth.Me)
			r.Patch("/me/email", deps.Auth.UpdateEmail)
			r.Post("/password/change", deps.Auth.ChangePassword)
			r.Delete("/accounts/{id}", deps.Auth.DeleteAccount)
		})

		// --- Internal ---
		r.With(deps.InternalAuthMW).Post("/internal/password/reset", deps.Auth.ResetPassword)
	})

	return r, nil
}
