package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

const newPassword = "another-long-password"

func TestChangePassword_BlacklistsCurrentTokens(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")
	current := domain.SessionTokens{Access: toks.AccessToken, Refresh: toks.RefreshToken}

	requireNoErr(t, e.svc.ChangePassword(context.Background(), id, goodPassword, newPassword, current))

	_, err := e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)

	_, err = e.svc.Login(context.Background(), "a@x.com", goodPassword)
	requireErrCode(t, err, domain.CodeInvalidCredentials)
	_, err = e.svc.Login(context.Background(), "a@x.com", newPassword)
	requireNoErr(t, err)
}

func TestChangePassword_WrongOld_KeepsSession(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")

	err := e.svc.ChangePassword(context.Background(), id, "not-the-password", newPassword,
		domain.SessionTokens{Access: toks.AccessToken})
	requireErrCode(t, err, domain.CodeInvalidCredentials)

	_, err = e.svc.Authorize(context.Background(), toks.AccessToken)
	requireNoErr(t, err)
}

func TestChangePassword_BadInput(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, _ := e.verifiedAccount(t, "a@x.com")

	requireErrCode(t, e.svc.ChangePassword(context.Background(), id, "", newPassword, domain.SessionTokens{}), domain.CodeMissingField)
	requireErrCode(t, e.svc.ChangePassword(context.Background(), id, goodPassword, "short", domain.SessionTokens{}), domain.CodeWeakPassword)
	requireErrCode(t, e.svc.ChangePassword(context.Background(), "", goodPassword, newPassword, domain.SessionTokens{}), domain.CodeTokenMissing)
}

func TestChangePassword_StoreFailure_Propagates(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, _ := e.verifiedAccount(t, "a@x.com")
	e.repo.updatePwdErr = domain.ErrStoreUnavailable(errors.New("down"))

	err := e.svc.ChangePassword(context.Background(), id, goodPassword, newPassword, domain.SessionTokens{})
	requireErrCode(t, err, domain.CodeStoreUnavailable)
}

func TestChangePassword_BlacklistDown_RetryRevokes(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")
	current := domain.SessionTokens{Access: toks.AccessToken, Refresh: toks.RefreshToken}

	e.bl.setDown(true)
	err := e.svc.ChangePassword(context.Background(), id, goodPassword, newPassword, current)
	if !domain.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if e.audit.has("password_changed") {
		t.Fatalf("password must not change while revocation is unconfirmed")
	}

	e.bl.setDown(false)
	requireNoErr(t, e.svc.ChangePassword(context.Background(), id, goodPassword, newPassword, current))

	_, err = e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)
	_, err = e.svc.Login(context.Background(), "a@x.com", newPassword)
	requireNoErr(t, err)
}

func TestResetPassword_BlacklistDown_RetryRevokes(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	_, toks := e.verifiedAccount(t, "a@x.com")
	current := domain.SessionTokens{Access: toks.AccessToken}

	e.bl.setDown(true)
	err := e.svc.ResetPassword(context.Background(), "a@x.com", newPassword, current)
	if !domain.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	e.bl.setDown(false)
	_, err = e.svc.Login(context.Background(), "a@x.com", goodPassword)
	requireNoErr(t, err)

	requireNoErr(t, e.svc.ResetPassword(context.Background(), "a@x.com", newPassword, current))
	_, err = e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)
}

func TestResetPassword_SetsPasswordAndRevokes(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	_, toks := e.verifiedAccount(t, "a@x.com")

	requireNoErr(t, e.svc.ResetPassword(context.Background(), "a@x.com", newPassword,
		domain.SessionTokens{Access: toks.AccessToken, Refresh: toks.RefreshToken}))

	_, err := e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)
	_, err = e.svc.Login(context.Background(), "a@x.com", newPassword)
	requireNoErr(t, err)

	requireErrCode(t, e.svc.ResetPassword(context.Background(), "ghost@x.com", newPassword, domain.SessionTokens{}), domain.CodeAccountNotFound)
}

func TestUpdateEmail_KeepsVerification(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")
	mails := e.mail.count()

	requireNoErr(t, e.svc.UpdateEmail(context.Background(), id, "New@X.com"))

	acc, err := e.svc.Me(context.Background(), id)
	requireNoErr(t, err)
	if acc.Email != "new@x.com" || !acc.Verified || acc.OTP != nil {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if e.mail.count() != mails {
		t.Fatalf("no mail expected for an email change")
	}
	if !e.audit.has("email_changed") {
		t.Fatalf("expected email_changed audit")
	}

	_, err = e.svc.Authorize(context.Background(), toks.AccessToken)
	requireNoErr(t, err)
	_, err = e.svc.Login(context.Background(), "new@x.com", goodPassword)
	requireNoErr(t, err)
	_, err = e.svc.Login(context.Background(), "a@x.com", goodPassword)
	requireErrCode(t, err, domain.CodeInvalidCredentials)
}

func TestUpdateEmail_SurvivesUnverifiedPurge(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, _ := e.verifiedAccount(t, "old@x.com")

	e.clk.Advance(30 * 24 * time.Hour)
	requireNoErr(t, e.svc.UpdateEmail(context.Background(), id, "new@x.com"))

	n, err := e.svc.PurgeUnverified(context.Background(), e.clk.Now())
	requireNoErr(t, err)
	if n != 0 {
		t.Fatalf("expected nothing purged, got %d", n)
	}
	_, err = e.svc.Me(context.Background(), id)
	requireNoErr(t, err)
}

func TestUpdateEmail_PendingAccountKeepsItsCode(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, code := e.register(t, "a@x.com")

	requireNoErr(t, e.svc.UpdateEmail(context.Background(), id, "b@x.com"))

	acc, err := e.svc.Me(context.Background(), id)
	requireNoErr(t, err)
	if acc.Verified || acc.OTP == nil || acc.OTP.Code != code {
		t.Fatalf("pending state must be untouched: %+v", acc)
	}
	requireNoErr(t, e.svc.Verify(context.Background(), "b@x.com", code))
}

func TestUpdateEmail_Conflict(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, _ := e.verifiedAccount(t, "a@x.com")
	e.register(t, "b@x.com")

	requireErrCode(t, e.svc.UpdateEmail(context.Background(), id, "b@x.com"), domain.CodeEmailAlreadyExists)
	requireErrCode(t, e.svc.UpdateEmail(context.Background(), id, "bad"), domain.CodeInvalidField)
	requireNoErr(t, e.svc.UpdateEmail(context.Background(), id, "a@x.com"))
}

func TestDeleteAccount_SelfRevokesSession(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")
	actor := domain.Identity{AccountID: id, Role: domain.RoleEmployee}

	requireNoErr(t, e.svc.DeleteAccount(context.Background(), actor, id,
		domain.SessionTokens{Access: toks.AccessToken, Refresh: toks.RefreshToken}))

	_, err := e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)
	_, err = e.svc.Me(context.Background(), id)
	requireErrCode(t, err, domain.CodeAccountNotFound)
}

func TestDeleteAccount_BlacklistDown_AccountKept(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	id, toks := e.verifiedAccount(t, "a@x.com")
	actor := domain.Identity{AccountID: id, Role: domain.RoleEmployee}
	current := domain.SessionTokens{Access: toks.AccessToken, Refresh: toks.RefreshToken}

	e.bl.setDown(true)
	err := e.svc.DeleteAccount(context.Background(), actor, id, current)
	if !domain.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	e.bl.setDown(false)
	_, err = e.svc.Me(context.Background(), id)
	requireNoErr(t, err)

	requireNoErr(t, e.svc.DeleteAccount(context.Background(), actor, id, current))
	_, err = e.svc.Authorize(context.Background(), toks.AccessToken)
	requireErrCode(t, err, domain.CodeTokenBlacklisted)
}

func TestDeleteAccount_Permissions(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	aliceID, _ := e.verifiedAccount(t, "alice@x.com")
	bobID, _ := e.verifiedAccount(t, "bob@x.com")

	err := e.svc.DeleteAccount(context.Background(), domain.Identity{AccountID: aliceID, Role: domain.RoleEmployee}, bobID, domain.SessionTokens{})
	requireErrCode(t, err, domain.CodeForbidden)

	admin := domain.Identity{AccountID: "admin-1", Role: domain.RoleAdmin}
	requireNoErr(t, e.svc.DeleteAccount(context.Background(), admin, bobID, domain.SessionTokens{}))
	requireErrCode(t, e.svc.DeleteAccount(context.Background(), admin, bobID, domain.SessionTokens{}), domain.CodeAccountNotFound)
}

func TestPurgeUnverified_OnlyPastGrace(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	staleID, _ := e.register(t, "stale@x.com")
	verifiedID, _ := e.verifiedAccount(t, "ok@x.com")

	e.clk.Advance(23 * time.Hour)
	freshID, _ := e.register(t, "fresh@x.com")

	e.clk.Advance(2 * time.Hour)
	n, err := e.svc.PurgeUnverified(context.Background(), e.clk.Now())
	requireNoErr(t, err)
	if n != 1 {
		t.Fatalf("expected 1 purged account, got %d", n)
	}

	_, err = e.svc.Me(context.Background(), staleID)
	requireErrCode(t, err, domain.CodeAccountNotFound)
	for _, id := range []string{verifiedID, freshID} {
		_, err := e.svc.Me(context.Background(), id)
		requireNoErr(t, err)
	}

	n, err = e.svc.PurgeUnverified(context.Background(), e.clk.Now())
	requireNoErr(t, err)
	if n != 0 {
		t.Fatalf("second purge must be a no-op, got %d", n)
	}
}
