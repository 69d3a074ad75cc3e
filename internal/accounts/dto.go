package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/pkg/db/models"
)

// RegisterInput carries a local signup request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput carries local credentials.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ExternalIdentity is a verified identity returned by the OAuth provider.
type ExternalIdentity struct {
	Email string
	Name  string
}

// Actor identifies the authenticated caller performing an accounts operation.
type Actor struct {
	ID        uuid.UUID
	IsAdmin   bool
	SessionID string
}

// AccountDTO is the API shape of an account.
type AccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthResponse is returned by every login-shaped operation.
type AuthResponse struct {
	AccessToken string     `json:"access_token"`
	Account     AccountDTO `json:"account"`
}

// FromModel converts a persisted account into its API shape.
func FromModel(account *models.Account) AccountDTO {
	return AccountDTO{
		ID:          account.ID,
		Username:    account.Username,
		Email:       account.Email,
		IsAdmin:     account.IsAdmin,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	}
}
