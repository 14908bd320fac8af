package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/auth"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/blacklist"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/otp"
	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/memory"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/security"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/middleware"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/response"
)

const (
	testPassword       = "correct-horse-battery"
	testInternalSecret = "internal-test-secret"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes JSON from r into out.
// If that fails, it tries the {"data": <out>} envelope.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if err := json.Unmarshal(wrapped.Data, out); err != nil {
			t.Fatalf("decode wrapped.data failed; body=%s err=%v", string(raw), err)
		}
		return
	}

	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode json failed; body=%s", string(raw))
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	return body.Error.Code
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []domain.MailRequest
}

func (m *captureMailer) Enqueue(req domain.MailRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
}

func (m *captureMailer) lastOTP(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a queued mail")
	}
	return m.sent[len(m.sent)-1].Data.OTP
}

type testServer struct {
	mux      http.Handler
	svc      *auth.Service
	accounts *memory.AccountRepo
	mail     *captureMailer
}

// newTestServer wires the real service over memory stores behind a chi mux
// laid out like the production router.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret:     "handler-test-secret",
		Issuer:     "workplace-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, time.Now)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	accounts := memory.NewAccountRepo()
	mail := &captureMailer{}
	svc := auth.NewService(
		accounts,
		security.NewHashPool(security.NewBcryptHasher(bcrypt.MinCost), 2),
		tokens,
		otp.NewManager(accounts, otp.Config{TTL: 10 * time.Minute, Length: 6}),
		blacklist.NewStore(memory.NewBlacklistRepo(), tokens, time.Second),
		mail,
		auth.Config{StoreTimeout: time.Second},
	)

	h := NewAuthHandler(svc, 24*time.Hour, false)
	authMW := middleware.Auth(svc, response.WriteError)

	r := chi.NewRouter()
	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verify", h.Verify)
		r.Post("/otp/resend", h.ResendOTP)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.With(authMW).Post("/logout", h.Logout)
		r.With(authMW).Get("/me", h.Me)
		r.With(authMW).Patch("/me/email", h.UpdateEmail)
		r.With(authMW).Post("/password/change", h.ChangePassword)
		r.With(authMW).Delete("/accounts/{id}", h.DeleteAccount)
		r.With(middleware.InternalAuth(testInternalSecret, response.WriteError)).
			Post("/internal/password/reset", h.ResetPassword)
	})

	return &testServer{mux: r, svc: svc, accounts: accounts, mail: mail}
}

type reqOpt func(*http.Request)

func withBearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) {
		if c != nil {
			r.AddCookie(c)
		}
	}
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

type loginSession struct {
	accountID string
	access    string
	refresh   *http.Cookie
}

// signup registers, verifies and logs in through the HTTP surface.
func (s *testServer) signup(t *testing.T, email string) loginSession {
	t.Helper()

	rr := s.do(t, http.MethodPost, "/auth/v1/register", map[string]string{"email": email, "password": testPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}
	var reg struct {
		AccountID string `json:"account_id"`
	}
	mustReadJSON(t, rr.Body, &reg)

	rr = s.do(t, http.MethodPost, "/auth/v1/verify", map[string]string{"email": email, "code": s.mail.lastOTP(t)})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodPost, "/auth/v1/login", map[string]string{"email": email, "password": testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var toks struct {
		AccessToken string `json:"access_token"`
	}
	cookie := readCookie(rr.Result(), security.RefreshCookieName)
	mustReadJSON(t, rr.Body, &toks)

	return loginSession{accountID: reg.AccountID, access: toks.AccessToken, refresh: cookie}
}

// promote makes an existing account an admin directly in the store.
func (s *testServer) promote(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get %s: %v", email, err)
	}
	if err := s.accounts.Delete(ctx, acc.ID); err != nil {
		t.Fatalf("delete %s: %v", email, err)
	}
	acc.Role = domain.RoleAdmin
	if _, err := s.accounts.Create(ctx, acc); err != nil {
		t.Fatalf("recreate %s: %v", email, err)
	}
}
