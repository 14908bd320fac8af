package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ---------- fakes ----------

type fakeHealth struct{}

func (fakeHealth) Healthz(w http.ResponseWriter, r *http.Request) { write(w, 200, "ok") }
func (fakeHealth) Readyz(w http.ResponseWriter, r *http.Request)  { write(w, 200, "ready") }

func write(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

type fakeAuth struct{}

func (fakeAuth) Register(w http.ResponseWriter, r *http.Request)  { write(w, 200, "register") }
func (fakeAuth) Verify(w http.ResponseWriter, r *http.Request)    { write(w, 200, "verify") }
func (fakeAuth) ResendOTP(w http.ResponseWriter, r *http.Request) { write(w, 200, "resend") }
func (fakeAuth) Login(w http.ResponseWriter, r *http.Request)     { write(w, 200, "login") }
func (fakeAuth) Refresh(w http.ResponseWriter, r *http.Request)   { write(w, 200, "refresh") }
func (fakeAuth) Logout(w http.ResponseWriter, r *http.Request)    { write(w, 200, "logout") }
func (fakeAuth) Me(w http.ResponseWriter, r *http.Request)        { write(w, 200, "me") }
func (fakeAuth) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	write(w, 200, "update_email")
}
func (fakeAuth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	write(w, 200, "pw_change")
}
func (fakeAuth) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	write(w, 200, "delete:"+chi.URLParam(r, "id"))
}
func (fakeAuth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	write(w, 200, "pw_reset")
}

// Middleware helper
func noopMW(next http.Handler) http.Handler { return next }

func headerMW(key, val string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, val)
			next.ServeHTTP(w, r)
		})
	}
}

func denyMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusForbidden, "denied")
	})
}

func baseDeps() Deps {
	return Deps{
		Health:         fakeHealth{},
		Auth:           fakeAuth{},
		RequestIDMW:    noopMW,
		AuthMW:         noopMW,
		InternalAuthMW: noopMW,
	}
}

func mustRouter(t *testing.T, d Deps) http.Handler {
	t.Helper()
	h, err := New(d)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return h
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

// ---------- tests ----------

func TestNew_MissingDeps_ReturnError(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Deps)
	}{
		{"nil health", func(d *Deps) { d.Health = nil }},
		{"nil auth", func(d *Deps) { d.Auth = nil }},
		{"nil request id", func(d *Deps) { d.RequestIDMW = nil }},
		{"nil auth mw", func(d *Deps) { d.AuthMW = nil }},
		{"nil internal mw", func(d *Deps) { d.InternalAuthMW = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDeps()
			tt.mut(&d)
			if _, err := New(d); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestNew_PublicRoutes_Dispatch(t *testing.T) {
	h := mustRouter(t, baseDeps())

	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/healthz", "ok"},
		{http.MethodGet, "/readyz", "ready"},
		{http.MethodPost, "/auth/v1/register", "register"},
		{http.MethodPost, "/auth/v1/verify", "verify"},
		{http.MethodPost, "/auth/v1/otp/resend", "resend"},
		{http.MethodPost, "/auth/v1/login", "login"},
		{http.MethodPost, "/auth/v1/refresh", "refresh"},
		{http.MethodDelete, "/auth/v1/accounts/abc-123", "delete:abc-123"},
	}
	for _, tt := range tests {
		rr := serve(h, tt.method, tt.path)
		if rr.Code != http.StatusOK || rr.Body.String() != tt.want {
			t.Fatalf("%s %s: got %d %q, want %q", tt.method, tt.path, rr.Code, rr.Body.String(), tt.want)
		}
	}
}

func TestNew_ProtectedRoutes_UseAuthMW(t *testing.T) {
	d := baseDeps()
	d.AuthMW = headerMW("X-AuthMW", "1")
	h := mustRouter(t, d)

	protected := []struct{ method, path string }{
		{http.MethodPost, "/auth/v1/logout"},
		{http.MethodGet, "/auth/v1/me"},
		{http.MethodPatch, "/auth/v1/me/email"},
		{http.MethodPost, "/auth/v1/password/change"},
		{http.MethodDelete, "/auth/v1/accounts/x"},
	}
	for _, p := range protected {
		rr := serve(h, p.method, p.path)
		if rr.Header().Get("X-AuthMW") != "1" {
			t.Fatalf("%s %s: expected AuthMW to run", p.method, p.path)
		}
	}

	rr := serve(h, http.MethodPost, "/auth/v1/login")
	if rr.Header().Get("X-AuthMW") != "" {
		t.Fatalf("login must not be behind AuthMW")
	}
}

func TestNew_InternalReset_UsesInternalAuthMW(t *testing.T) {
	d := baseDeps()
	d.InternalAuthMW = denyMW
	h := mustRouter(t, d)

	rr := serve(h, http.MethodPost, "/auth/v1/internal/password/reset")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestNew_CSRFOnlyOnRefresh(t *testing.T) {
	d := baseDeps()
	d.CSRFMW = denyMW
	h := mustRouter(t, d)

	if rr := serve(h, http.MethodPost, "/auth/v1/refresh"); rr.Code != http.StatusForbidden {
		t.Fatalf("expected refresh to be guarded, got %d", rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/auth/v1/login"); rr.Code != http.StatusOK {
		t.Fatalf("expected login unguarded, got %d", rr.Code)
	}
}

func TestNew_MetricsEndpoint_Optional(t *testing.T) {
	h := mustRouter(t, baseDeps())
	if rr := serve(h, http.MethodGet, "/metrics"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", rr.Code)
	}

	d := baseDeps()
	d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { write(w, 200, "# metrics") })
	h = mustRouter(t, d)
	if rr := serve(h, http.MethodGet, "/metrics"); rr.Body.String() != "# metrics" {
		t.Fatalf("expected metrics body, got %q", rr.Body.String())
	}
}

func TestNew_GlobalMiddlewareOrder(t *testing.T) {
	d := baseDeps()
	d.RequestIDMW = headerMW("X-Request-Id", "fixed")
	d.MetricsMW = headerMW("X-Metrics", "1")
	h := mustRouter(t, d)

	rr := serve(h, http.MethodGet, "/healthz")
	if rr.Header().Get("X-Request-Id") != "fixed" || rr.Header().Get("X-Metrics") != "1" {
		t.Fatalf("expected global middlewares to run, headers=%v", rr.Header())
	}
}

func TestNew_RecoversFromPanics(t *testing.T) {
	d := baseDeps()
	d.Auth = panicAuth{}
	h := mustRouter(t, d)

	rr := serve(h, http.MethodPost, "/auth/v1/login")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rr.Code)
	}
}

type panicAuth struct{ fakeAuth }

func (panicAuth) Login(w http.ResponseWriter, r *http.Request) { panic("boom") }
