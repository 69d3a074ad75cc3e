package cards

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/pagination"
	"github.com/pindropapp/pindrop-backend/pkg/uploads"
)

const (
	defaultFromName = "Anonymous"
	cardNotFound    = "card not found"
)

// Service defines the behavior needed by the cards controllers.
type Service interface {
	Create(ctx context.Context, input CreateCardInput) (*CardDTO, error)
	ListPublic(ctx context.Context, query string, params pagination.Params) (*ListResponse, error)
	Get(ctx context.Context, id uuid.UUID, viewer *Viewer) (*CardDTO, error)
	MapPins(ctx context.Context) ([]MapPinDTO, error)
	ListByStatus(ctx context.Context, status enums.CardStatus, params pagination.Params) (*ListResponse, error)
	SetStatus(ctx context.Context, id uuid.UUID, target enums.CardStatus) (*CardDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCardInput) (*CardDTO, error)
	Delete(ctx context.Context, id uuid.UUID, viewer Viewer) error
}

type cardRepository interface {
	Create(ctx context.Context, card *models.Card, maxPhotos int) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	ListByStatus(ctx context.Context, status enums.CardStatus, limit int, cursor *pagination.Cursor) ([]models.Card, error)
	SearchApproved(ctx context.Context, query string) ([]models.Card, error)
	ListForMap(ctx context.Context) ([]models.Card, error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.CardStatus) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

type attachmentStore interface {
	Save(name string, r io.Reader) (string, error)
	Remove(name string) error
}

type service struct {
	repo       cardRepository
	store      attachmentStore
	logg       *logger.Logger
	contentCfg config.ContentConfig
}

// ServiceParams bundles the dependencies required to build a cards service.
type ServiceParams struct {
	Repo          cardRepository
	Store         attachmentStore
	Logger        *logger.Logger
	ContentConfig config.ContentConfig
}

// NewService constructs a cards service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("card repository is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("attachment store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.ContentConfig.MaxPhotos <= 0 {
		return nil, fmt.Errorf("max photos must be positive")
	}
	return &service{
		repo:       params.Repo,
		store:      params.Store,
		logg:       params.Logger,
		contentCfg: params.ContentConfig,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateCardInput) (*CardDTO, error) {
	toName := strings.TrimSpace(input.ToName)
	location := strings.TrimSpace(input.Location)
	message := strings.TrimSpace(input.Message)
	if toName == "" || location == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to_name, location and message are required")
	}

	fromName := strings.TrimSpace(input.FromName)
	if fromName == "" {
		fromName = defaultFromName
	}

	// Files with disallowed extensions are skipped rather than rejected.
	photos := make([]Upload, 0, len(input.Photos))
	for _, upload := range input.Photos {
		if uploads.IsAllowedPhoto(upload.Filename) {
			photos = append(photos, upload)
		}
	}
	if len(photos) > s.contentCfg.MaxPhotos {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("a card can have at most %d photos", s.contentCfg.MaxPhotos))
	}

	var video *Upload
	if input.Video != nil && uploads.IsAllowedVideo(input.Video.Filename) {
		video = input.Video
	}

	saved := make([]string, 0, len(photos)+1)
	cleanup := func() {
		for _, name := range saved {
			if err := s.store.Remove(name); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "path", name), "failed to remove orphaned upload")
			}
		}
	}

	card := &models.Card{
		ToName:   toName,
		Location: location,
		Message:  message,
		FromName: fromName,
		Status:   enums.CardStatusPending,
		OwnerID:  input.OwnerID,
	}
	if songURL := strings.TrimSpace(input.SongURL); songURL != "" {
		card.SongURL = &songURL
	}
	card.Lat, card.Lng = parseCoordinates(input.LatRaw, input.LngRaw)

	for _, upload := range photos {
		name, err := s.store.Save(upload.Filename, upload.Content)
		if err != nil {
			cleanup()
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store photo")
		}
		saved = append(saved, name)
		card.Photos = append(card.Photos, models.Photo{Path: name})
	}
	if video != nil {
		name, err := s.store.Save(video.Filename, video.Content)
		if err != nil {
			cleanup()
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store video")
		}
		saved = append(saved, name)
		card.VideoPath = &name
	}

	if err := s.repo.Create(ctx, card, s.contentCfg.MaxPhotos); err != nil {
		cleanup()
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create card")
	}

	dto := FromModel(card)
	return &dto, nil
}

func (s *service) ListPublic(ctx context.Context, query string, params pagination.Params) (*ListResponse, error) {
	query = strings.TrimSpace(query)
	if query != "" {
		found, err := s.repo.SearchApproved(ctx, query)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search cards")
		}
		ranked := rankByQuery(found, query)
		limit := pagination.NormalizeLimit(params.Limit)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		return &ListResponse{Cards: toDTOs(ranked)}, nil
	}
	return s.ListByStatus(ctx, enums.CardStatusApproved, params)
}

func (s *service) ListByStatus(ctx context.Context, status enums.CardStatus, params pagination.Params) (*ListResponse, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", status))
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByStatus(ctx, status, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cards")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResponse{Cards: toDTOs(rows), NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, viewer *Viewer) (*CardDTO, error) {
	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	// Unapproved cards exist only for their owner and moderators.
	if card.Status != enums.CardStatusApproved && !canSee(card, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, cardNotFound)
	}

	dto := FromModel(card)
	return &dto, nil
}

func (s *service) MapPins(ctx context.Context) ([]MapPinDTO, error) {
	rows, err := s.repo.ListForMap(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list map pins")
	}

	pins := make([]MapPinDTO, 0, len(rows))
	for i := range rows {
		pins = append(pins, PinFromModel(&rows[i]))
	}
	return pins, nil
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, target enums.CardStatus) (*CardDTO, error) {
	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if card.Status == target {
		dto := FromModel(card)
		return &dto, nil
	}
	if !enums.CanTransition(card.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot move card from %s to %s", card.Status, target))
	}

	if err := s.repo.SetStatus(ctx, id, target); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, cardNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update card status")
	}

	card.Status = target
	dto := FromModel(card)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCardInput) (*CardDTO, error) {
	updates := map[string]any{}
	setTrimmed := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" && column != "song_url" {
			return pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be empty")
		}
		updates[column] = trimmed
		return nil
	}

	if err := setTrimmed("to_name", input.ToName); err != nil {
		return nil, err
	}
	if err := setTrimmed("location", input.Location); err != nil {
		return nil, err
	}
	if err := setTrimmed("message", input.Message); err != nil {
		return nil, err
	}
	if err := setTrimmed("from_name", input.FromName); err != nil {
		return nil, err
	}
	if err := setTrimmed("song_url", input.SongURL); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, cardNotFound)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update card")
		}
	}

	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(card)
	return &dto, nil
}

// Delete removes an owner's card outright; moderators archive instead, which
// keeps the record while hiding it from every public surface.
func (s *service) Delete(ctx context.Context, id uuid.UUID, viewer Viewer) error {
	card, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	isOwner := card.OwnerID != nil && *card.OwnerID == viewer.ID
	switch {
	case isOwner:
		paths, err := s.repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete card")
		}
		for _, path := range paths {
			if err := s.store.Remove(path); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "path", path), "failed to remove card attachment")
			}
		}
		return nil

	case viewer.IsAdmin:
		_, err := s.SetStatus(ctx, id, enums.CardStatusArchived)
		return err

	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this card")
	}
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, cardNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup card")
	}
	return card, nil
}

func canSee(card *models.Card, viewer *Viewer) bool {
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin {
		return true
	}
	return card.OwnerID != nil && *card.OwnerID == viewer.ID
}

// parseCoordinates accepts a coordinate pair only when both halves parse.
// A half-formed or malformed pair yields an unlocated card, never (0, 0).
func parseCoordinates(latRaw, lngRaw string) (*float64, *float64) {
	latRaw = strings.TrimSpace(latRaw)
	lngRaw = strings.TrimSpace(lngRaw)
	if latRaw == "" || lngRaw == "" {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lng, lngErr := strconv.ParseFloat(lngRaw, 64)
	if latErr != nil || lngErr != nil {
		return nil, nil
	}
	return &lat, &lng
}

func toDTOs(cards []models.Card) []CardDTO {
	out := make([]CardDTO, 0, len(cards))
	for i := range cards {
		out = append(out, FromModel(&cards[i]))
	}
	return out
}
