package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pindropapp/pindrop-backend/api/responses"
	"github.com/pindropapp/pindrop-backend/api/validators"
	"github.com/pindropapp/pindrop-backend/internal/cards"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/pagination"
)

// AdminCardsList pages through cards in any moderation state. The status
// defaults to pending, which is the moderation queue.
func AdminCardsList(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		raw := r.URL.Query().Get("status")
		if raw == "" {
			raw = enums.CardStatusPending.String()
		}
		status, err := enums.ParseCardStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByStatus(r.Context(), status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminCardsSetStatus applies a moderation decision. Re-applying the card's
// current status is a no-op rather than an error.
func AdminCardsSetStatus(svc cards.Service, target enums.CardStatus, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "cardId"), "cardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.SetStatus(r.Context(), id, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, card)
	}
}

type adminCardUpdateRequest struct {
	ToName   *string `json:"to_name"`
	Location *string `json:"location"`
	Message  *string `json:"message"`
	FromName *string `json:"from_name"`
	SongURL  *string `json:"song_url"`
}

// AdminCardsUpdate edits the text fields of a card. Absent fields are left
// untouched.
func AdminCardsUpdate(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "cardId"), "cardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminCardUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.Update(r.Context(), id, cards.UpdateCardInput{
			ToName:   body.ToName,
			Location: body.Location,
			Message:  body.Message,
			FromName: body.FromName,
			SongURL:  body.SongURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, card)
	}
}
