package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pindropapp/pindrop-backend/api/responses"
	"github.com/pindropapp/pindrop-backend/api/validators"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
)

// AdminAccountDelete removes another user's account, cascading to their cards
// and stored attachments.
func AdminAccountDelete(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		targetID, err := validators.ParsePathUUID(chi.URLParam(r, "accountId"), "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actorFromContext(r), targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
