package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/blacklist"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/otp"
	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/memory"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/security"
)

/*
Clock
*/

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

/*
Fakes for ports
*/

// fakeAccountRepo is the in-memory repo with injectable failures.
type fakeAccountRepo struct {
	*memory.AccountRepo

	mu            sync.Mutex
	getByEmailErr error
	createErr     error
	updatePwdErr  error
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	f.mu.Lock()
	err := f.getByEmailErr
	f.mu.Unlock()
	if err != nil {
		return domain.Account{}, err
	}
	return f.AccountRepo.GetByEmail(ctx, email)
}

func (f *fakeAccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return domain.Account{}, err
	}
	return f.AccountRepo.Create(ctx, a)
}

func (f *fakeAccountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	err := f.updatePwdErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.AccountRepo.UpdatePasswordHash(ctx, id, hash)
}

// fakeHasher is reversible so tests stay fast; a hash without the prefix is "corrupt".
type fakeHasher struct {
	hashErr  error
	verifies atomic.Int64
}

func (h *fakeHasher) Hash(_ context.Context, pw string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + pw, nil
}

func (h *fakeHasher) Verify(_ context.Context, pw, hash string) (bool, error) {
	h.verifies.Add(1)
	if !strings.HasPrefix(hash, "hash:") {
		return false, domain.ErrHashFailed(errors.New("corrupt hash"))
	}
	return hash == "hash:"+pw, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []domain.MailRequest
}

func (m *fakeMailer) Enqueue(req domain.MailRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
}

func (m *fakeMailer) last(t *testing.T) domain.MailRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a queued mail")
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *fakeAuditor) Record(_ context.Context, action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *fakeAuditor) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.action == action {
			return true
		}
	}
	return false
}

// flakyBlacklistRepo fails every call while down is set.
type flakyBlacklistRepo struct {
	*memory.BlacklistRepo

	mu   sync.Mutex
	down bool
}

func (r *flakyBlacklistRepo) setDown(v bool) {
	r.mu.Lock()
	r.down = v
	r.mu.Unlock()
}

func (r *flakyBlacklistRepo) isDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *flakyBlacklistRepo) Insert(ctx context.Context, digest string, exp, now time.Time) error {
	if r.isDown() {
		return domain.ErrStoreUnavailable(errors.New("connection refused"))
	}
	return r.BlacklistRepo.Insert(ctx, digest, exp, now)
}

func (r *flakyBlacklistRepo) Exists(ctx context.Context, digest string, now time.Time) (bool, error) {
	if r.isDown() {
		return false, domain.ErrStoreUnavailable(errors.New("connection refused"))
	}
	return r.BlacklistRepo.Exists(ctx, digest, now)
}

/*
Environment
*/

const goodPassword = "correct-horse-battery"

type testEnv struct {
	svc    *Service
	repo   *fakeAccountRepo
	hasher *fakeHasher
	mail   *fakeMailer
	audit  *fakeAuditor
	bl     *flakyBlacklistRepo
	tokens *security.TokenService
	clk    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret:     "test-secret",
		Issuer:     "workplace-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, clk.Now)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	repo := &fakeAccountRepo{AccountRepo: memory.NewAccountRepo()}
	bl := &flakyBlacklistRepo{BlacklistRepo: memory.NewBlacklistRepo()}
	hasher := &fakeHasher{}
	mail := &fakeMailer{}
	audit := &fakeAuditor{}

	svc := NewService(
		repo,
		hasher,
		tokens,
		otp.NewManager(repo, otp.Config{TTL: 10 * time.Minute, Length: 6}),
		blacklist.NewStore(bl, tokens, time.Second),
		mail,
		Config{StoreTimeout: time.Second, UnverifiedGrace: 24 * time.Hour},
	).WithAudit(audit).WithClock(clk.Now)

	return &testEnv{svc: svc, repo: repo, hasher: hasher, mail: mail, audit: audit, bl: bl, tokens: tokens, clk: clk}
}

// register creates an account and returns its id and the mailed code.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterInput{Email: email, Password: goodPassword})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.AccountID, e.mail.last(t).Data.OTP
}

// verifiedAccount registers, verifies and logs in.
func (e *testEnv) verifiedAccount(t *testing.T, email string) (string, Tokens) {
	t.Helper()
	id, code := e.register(t, email)
	if err := e.svc.Verify(context.Background(), email, code); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	toks, err := e.svc.Login(context.Background(), email, goodPassword)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return id, toks
}
