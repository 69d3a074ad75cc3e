package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/api/responses"
	"github.com/pindropapp/pindrop-backend/api/validators"
	"github.com/pindropapp/pindrop-backend/internal/cards"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/pagination"
)

// CardsList serves the public card feed. A `q` parameter switches the listing
// into ranked search over recipient and sender names.
func CardsList(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublic(r.Context(), r.URL.Query().Get("q"), pagination.Params{
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

// CardsGet serves a single card. Anonymous callers only ever see approved
// cards; owners and admins can also fetch unapproved ones.
func CardsGet(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
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

		card, err := svc.Get(r.Context(), id, viewerFromContext(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, card)
	}
}

// CardsMap serves the pins for the map view.
func CardsMap(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		pins, err := svc.MapPins(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pins": pins})
	}
}

// CardsCreate accepts a multipart card submission with optional photo and
// video attachments.
func CardsCreate(svc cards.Service, contentCfg config.ContentConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		maxBytes := int64(contentCfg.MaxUploadMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload"))
			return
		}

		input := cards.CreateCardInput{
			ToName:   r.FormValue("to_name"),
			Location: r.FormValue("location"),
			Message:  r.FormValue("message"),
			FromName: r.FormValue("from_name"),
			SongURL:  r.FormValue("song_url"),
			LatRaw:   r.FormValue("lat"),
			LngRaw:   r.FormValue("lng"),
		}
		if ownerID := middleware.UserIDFromContext(r.Context()); ownerID != uuid.Nil {
			input.OwnerID = &ownerID
		}

		var opened []multipart.File
		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()

		for _, header := range multipartFiles(r, "photos") {
			file, err := header.Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read photo upload"))
				return
			}
			opened = append(opened, file)
			input.Photos = append(input.Photos, cards.Upload{Filename: header.Filename, Content: file})
		}

		if headers := multipartFiles(r, "video"); len(headers) > 0 {
			file, err := headers[0].Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read video upload"))
				return
			}
			opened = append(opened, file)
			input.Video = &cards.Upload{Filename: headers[0].Filename, Content: file}
		}

		card, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, card)
	}
}

// CardsDelete removes the caller's card. Admin callers archive instead of
// deleting, keeping the record for moderation history.
func CardsDelete(svc cards.Service, logg *logger.Logger) http.HandlerFunc {
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

		viewer := viewerFromContext(r)
		if viewer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.Delete(r.Context(), id, *viewer); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func viewerFromContext(r *http.Request) *cards.Viewer {
	id := middleware.UserIDFromContext(r.Context())
	if id == uuid.Nil {
		return nil
	}
	return &cards.Viewer{ID: id, IsAdmin: middleware.IsAdminFromContext(r.Context())}
}

func multipartFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 && !strings.HasSuffix(field, "[]") {
		headers = r.MultipartForm.File[field+"[]"]
	}
	return headers
}
