package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/api/responses"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
)

// MeProfile returns the authenticated caller's account.
func MeProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		id := middleware.UserIDFromContext(r.Context())
		if id == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		profile, err := svc.Profile(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// MeDelete removes the caller's account along with every card and attachment
// it owns, then invalidates the session and clears the cookie.
func MeDelete(svc accounts.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		actor := actorFromContext(r)
		if actor.ID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.Delete(r.Context(), actor, actor.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearSessionCookie(w, cfg)
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func actorFromContext(r *http.Request) accounts.Actor {
	return accounts.Actor{
		ID:        middleware.UserIDFromContext(r.Context()),
		IsAdmin:   middleware.IsAdminFromContext(r.Context()),
		SessionID: middleware.SessionIDFromContext(r.Context()),
	}
}
