package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/security"
)

const invalidTokenMessage = "invalid or expired token"

// Service defines the password reset flow.
type Service interface {
	Issue(ctx context.Context, email string) error
	Redeem(ctx context.Context, token, newPassword string) error
}

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type mailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type service struct {
	accounts accountStore
	mail     mailSender
	logg     *logger.Logger
	jwtCfg   config.JWTConfig
	resetCfg config.PasswordResetConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build a reset service.
type ServiceParams struct {
	Accounts       accountStore
	Mail           mailSender
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	ResetConfig    config.PasswordResetConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs a password reset service.
func NewService(params ServiceParams) (Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if params.Mail == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.ResetConfig.TokenTTL <= 0 {
		return nil, fmt.Errorf("reset token ttl must be positive")
	}
	return &service{
		accounts: params.Accounts,
		mail:     params.Mail,
		logg:     params.Logger,
		jwtCfg:   params.JWTConfig,
		resetCfg: params.ResetConfig,
		pwCfg:    params.PasswordConfig,
		now:      time.Now,
	}, nil
}

// Issue mails a reset link when the email matches an account. The response is
// identical either way, so callers cannot probe which emails are registered.
func (s *service) Issue(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	token, err := mintResetToken(s.jwtCfg.Secret, s.jwtCfg.Issuer, account.Email, s.now().UTC(), s.resetCfg.TokenTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint reset token")
	}

	link := fmt.Sprintf("%s?token=%s", s.resetCfg.BaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password. It expires in %s.\n\n%s\n",
		account.Username, s.resetCfg.TokenTTL, link)

	// A delivery failure is logged rather than surfaced: a different response
	// here would reveal that the email belongs to an account.
	if err := s.mail.Send(ctx, account.Email, "Reset your password", body); err != nil {
		s.logg.Error(ctx, "failed to send password reset email", err)
	}
	return nil
}

// Redeem swaps the account password for the one in the request if the token
// checks out. Every failure collapses into the same generic error.
func (s *service) Redeem(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}

	email, err := parseResetToken(s.jwtCfg.Secret, s.jwtCfg.Issuer, token)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	hash, err := security.HashPassword(newPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidTokenMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}
