package passwordreset

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/pindropapp/pindrop-backend/pkg/auth"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/security"
)

type stubAccounts struct {
	byEmail map[string]*models.Account
	hashes  map[uuid.UUID]string
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{
		byEmail: map[string]*models.Account{},
		hashes:  map[uuid.UUID]string{},
	}
}

func (s *stubAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	if account, ok := s.byEmail[email]; ok {
		return account, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAccounts) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	for _, account := range s.byEmail {
		if account.ID == id {
			s.hashes[id] = hash
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubMail struct {
	sent []string
	body string
	err  error
}

func (s *stubMail) Send(_ context.Context, to, _, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	s.body = body
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "reset-secret",
		Issuer:            "pindrop-test",
		ExpirationMinutes: 15,
	}
}

func newResetService(t *testing.T, accounts *stubAccounts, mail *stubMail) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Accounts:    accounts,
		Mail:        mail,
		Logger:      logger.New(logger.Options{ServiceName: "reset-test", Output: io.Discard}),
		JWTConfig:   testJWTConfig(),
		ResetConfig: config.PasswordResetConfig{TokenTTL: time.Hour, BaseURL: "http://localhost:3000/reset"},
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service)
}

func addAccount(accounts *stubAccounts, email string) *models.Account {
	account := &models.Account{ID: uuid.New(), Username: "jane", Email: email}
	accounts.byEmail[email] = account
	return account
}

func TestIssueUnknownEmailIsSilentSuccess(t *testing.T) {
	mail := &stubMail{}
	svc := newResetService(t, newStubAccounts(), mail)

	if err := svc.Issue(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatal("no mail should be sent for unknown emails")
	}
}

func TestIssueKnownEmailSendsResetLink(t *testing.T) {
	accounts := newStubAccounts()
	addAccount(accounts, "jane@example.com")
	mail := &stubMail{}
	svc := newResetService(t, accounts, mail)

	if err := svc.Issue(context.Background(), "Jane@Example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "jane@example.com" {
		t.Fatalf("expected mail to the account, got %v", mail.sent)
	}
	if !strings.Contains(mail.body, "token=") {
		t.Fatal("expected reset link with token in the body")
	}
}

func TestIssueMailFailureStaysSilent(t *testing.T) {
	accounts := newStubAccounts()
	addAccount(accounts, "jane@example.com")
	mail := &stubMail{err: fmt.Errorf("smtp down")}
	svc := newResetService(t, accounts, mail)

	if err := svc.Issue(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("delivery failure must not surface to the caller: %v", err)
	}
}

func TestRedeemRoundtripUpdatesPassword(t *testing.T) {
	accounts := newStubAccounts()
	account := addAccount(accounts, "jane@example.com")
	svc := newResetService(t, accounts, &stubMail{})

	token, err := mintResetToken("reset-secret", "pindrop-test", "jane@example.com", time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if err := svc.Redeem(context.Background(), token, "brand new password"); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	hash := accounts.hashes[account.ID]
	if hash == "" {
		t.Fatal("expected password hash updated")
	}
	ok, err := security.VerifyPassword("brand new password", hash)
	if err != nil || !ok {
		t.Fatalf("new password should verify, ok=%v err=%v", ok, err)
	}
}

func TestRedeemExpiredTokenGenericFailure(t *testing.T) {
	accounts := newStubAccounts()
	addAccount(accounts, "jane@example.com")
	svc := newResetService(t, accounts, &stubMail{})

	token, err := mintResetToken("reset-secret", "pindrop-test", "jane@example.com", time.Now().UTC().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	assertInvalidToken(t, svc.Redeem(context.Background(), token, "new password"))
}

func TestRedeemTamperedTokenGenericFailure(t *testing.T) {
	accounts := newStubAccounts()
	addAccount(accounts, "jane@example.com")
	svc := newResetService(t, accounts, &stubMail{})

	token, err := mintResetToken("other-secret", "pindrop-test", "jane@example.com", time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	assertInvalidToken(t, svc.Redeem(context.Background(), token, "new password"))
}

func TestRedeemRejectsAccessTokens(t *testing.T) {
	accounts := newStubAccounts()
	addAccount(accounts, "jane@example.com")
	svc := newResetService(t, accounts, &stubMail{})

	// A valid access token signed with the same secret lacks the reset purpose.
	accessToken, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "jane",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	assertInvalidToken(t, svc.Redeem(context.Background(), accessToken, "new password"))
}

func TestRedeemUnknownAccountGenericFailure(t *testing.T) {
	svc := newResetService(t, newStubAccounts(), &stubMail{})

	token, err := mintResetToken("reset-secret", "pindrop-test", "gone@example.com", time.Now().UTC(), time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	assertInvalidToken(t, svc.Redeem(context.Background(), token, "new password"))
}

func assertInvalidToken(t *testing.T, err error) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if typed.Message() != invalidTokenMessage {
		t.Fatalf("every failure must use the generic message, got %q", typed.Message())
	}
}
