package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgauth "github.com/pindropapp/pindrop-backend/pkg/auth"
	"github.com/pindropapp/pindrop-backend/pkg/auth/session"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db"
	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/security"
)

const invalidLoginMessage = "invalid username or password"

// Service defines the behavior needed by the accounts controllers.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	LoginExternal(ctx context.Context, identity ExternalIdentity) (*AuthResponse, error)
	Profile(ctx context.Context, id uuid.UUID) (*AccountDTO, error)
	Delete(ctx context.Context, actor Actor, targetID uuid.UUID) error
}

type accountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type cardPurger interface {
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

type fileRemover interface {
	Remove(name string) error
}

type sessionManager interface {
	Establish(ctx context.Context, sessionID string) error
	Revoke(ctx context.Context, sessionID string) error
}

type service struct {
	repo    accountRepository
	cards   cardPurger
	files   fileRemover
	session sessionManager
	logg    *logger.Logger
	jwtCfg  config.JWTConfig
	pwCfg   config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an accounts service.
type ServiceParams struct {
	Repo           accountRepository
	Cards          cardPurger
	Files          fileRemover
	SessionManager sessionManager
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs an accounts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.Cards == nil {
		return nil, fmt.Errorf("card purger is required")
	}
	if params.Files == nil {
		return nil, fmt.Errorf("file remover is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:    params.Repo,
		cards:   params.Cards,
		files:   params.Files,
		session: params.SessionManager,
		logg:    params.Logger,
		jwtCfg:  params.JWTConfig,
		pwCfg:   params.PasswordConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username, email and password are required")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		switch {
		case db.IsUniqueViolation(err, "username"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		case db.IsUniqueViolation(err, "email"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
		}
	}

	return s.issueAuth(ctx, account)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	// Accounts created through an external provider have no local password.
	if account.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
	}

	valid, err := security.VerifyPassword(input.Password, *account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
	}

	if err := s.recordLogin(ctx, account); err != nil {
		return nil, err
	}
	return s.issueAuth(ctx, account)
}

func (s *service) LoginExternal(ctx context.Context, identity ExternalIdentity) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "external identity has no email")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
		}
		account, err = s.createExternal(ctx, email, identity.Name)
		if err != nil {
			return nil, err
		}
	}

	if err := s.recordLogin(ctx, account); err != nil {
		return nil, err
	}
	return s.issueAuth(ctx, account)
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	dto := FromModel(account)
	return &dto, nil
}

// Delete removes the account, every card it owns, and the files behind those
// cards. File cleanup is best-effort: a file that cannot be removed is logged
// and never blocks the deletion.
func (s *service) Delete(ctx context.Context, actor Actor, targetID uuid.UUID) error {
	if actor.ID != targetID && !actor.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete this account")
	}

	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	paths, err := s.cards.DeleteByOwner(ctx, targetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete owned cards")
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete account")
	}

	var cleanupErr error
	for _, path := range paths {
		cleanupErr = multierr.Append(cleanupErr, s.files.Remove(path))
	}
	if cleanupErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", cleanupErr.Error()), "failed to remove some card attachments")
	}

	if actor.ID == targetID && actor.SessionID != "" {
		if err := s.session.Revoke(ctx, actor.SessionID); err != nil {
			s.logg.Warn(ctx, "failed to revoke session for deleted account")
		}
	}
	return nil
}

func (s *service) recordLogin(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	account.LastLoginAt = &now
	return nil
}

func (s *service) issueAuth(ctx context.Context, account *models.Account) (*AuthResponse, error) {
	sessionID := session.NewSessionID()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID:   account.ID,
		Username: account.Username,
		IsAdmin:  account.IsAdmin,
		JTI:      sessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.session.Establish(ctx, sessionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "establish session")
	}

	return &AuthResponse{
		AccessToken: token,
		Account:     FromModel(account),
	}, nil
}

func (s *service) createExternal(ctx context.Context, email, name string) (*models.Account, error) {
	base := usernameFromEmail(email, name)

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		account := &models.Account{
			Username: candidate,
			Email:    email,
		}
		err := s.repo.Create(ctx, account)
		if err == nil {
			return account, nil
		}
		if db.IsUniqueViolation(err, "username") {
			candidate = fmt.Sprintf("%s_%d", base, attempt+1)
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
	}

	// Too many collisions on the derived name: fall back to a random suffix.
	account := &models.Account{
		Username: fmt.Sprintf("%s_%s", base, uuid.NewString()[:8]),
		Email:    email,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
	}
	return account, nil
}

func usernameFromEmail(email, name string) string {
	source := name
	if source == "" {
		source = email
	}
	if at := strings.Index(source, "@"); at > 0 {
		source = source[:at]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(source) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._-")
	if out == "" {
		return "user_" + uuid.NewString()[:8]
	}
	return out
}
