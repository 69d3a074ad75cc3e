package controllers

import (
	"context"
	"net/http"

	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/api/responses"
	"github.com/pindropapp/pindrop-backend/api/validators"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	"github.com/pindropapp/pindrop-backend/internal/oauth"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
)

type sessionRevoker interface {
	Revoke(ctx context.Context, sessionID string) error
}

// AuthLogin exchanges local credentials for a session token. The token is
// returned in the body for API clients and set as a cookie for the browser.
func AuthLogin(svc accounts.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var body accounts.LoginInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cfg, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

type oauthLoginRequest struct {
	Code string `json:"code" validate:"required"`
}

// AuthOAuth completes a third-party login: the authorization code from the
// provider redirect is exchanged for a verified identity, which is matched to
// an existing account by email or provisioned on the spot.
func AuthOAuth(svc accounts.Service, exchanger oauth.Exchanger, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || exchanger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "external login unavailable"))
			return
		}

		var body oauthLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := exchanger.Authenticate(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LoginExternal(r.Context(), accounts.ExternalIdentity{
			Email: identity.Email,
			Name:  identity.Name,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cfg, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the caller's session and clears the cookie. The access
// token stops working immediately even though its JWT expiry has not passed.
func AuthLogout(sessions sessionRevoker, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessions != nil && sessionID != "" {
			if err := sessions.Revoke(r.Context(), sessionID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
				return
			}
		}

		clearSessionCookie(w, cfg)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

func setSessionCookie(w http.ResponseWriter, cfg *config.Config, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.JWT.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   cfg.App.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.App.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
}
