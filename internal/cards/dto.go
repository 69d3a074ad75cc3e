package cards

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
)

// Upload carries one multipart file from the controller to the service.
type Upload struct {
	Filename string
	Content  io.Reader
}

// CreateCardInput is the raw submission payload. Lat/Lng arrive as strings
// straight from the form; the service decides whether they form a usable pair.
type CreateCardInput struct {
	ToName   string
	Location string
	Message  string
	FromName string
	SongURL  string
	LatRaw   string
	LngRaw   string
	Photos   []Upload
	Video    *Upload
	OwnerID  *uuid.UUID
}

// UpdateCardInput carries the editable fields for an admin edit. Nil pointers
// leave the current value untouched.
type UpdateCardInput struct {
	ToName   *string
	Location *string
	Message  *string
	FromName *string
	SongURL  *string
}

// Viewer identifies the authenticated caller, when there is one.
type Viewer struct {
	ID      uuid.UUID
	IsAdmin bool
}

// CardDTO is the API shape of a card.
type CardDTO struct {
	ID        uuid.UUID        `json:"id"`
	ToName    string           `json:"to_name"`
	FromName  string           `json:"from_name"`
	Location  string           `json:"location"`
	Message   string           `json:"message"`
	SongURL   *string          `json:"song_url,omitempty"`
	Lat       *float64         `json:"lat,omitempty"`
	Lng       *float64         `json:"lng,omitempty"`
	VideoURL  *string          `json:"video_url,omitempty"`
	PhotoURLs []string         `json:"photo_urls"`
	Status    enums.CardStatus `json:"status"`
	OwnerID   *uuid.UUID       `json:"owner_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// MapPinDTO is the trimmed card shape used by the map view.
type MapPinDTO struct {
	ID       uuid.UUID `json:"id"`
	ToName   string    `json:"to_name"`
	Location string    `json:"location"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
}

// ListResponse pages through cards with an opaque cursor.
type ListResponse struct {
	Cards      []CardDTO `json:"cards"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

const contentURLPrefix = "/content/"

// FromModel converts a persisted card into its API shape.
func FromModel(card *models.Card) CardDTO {
	photoURLs := make([]string, 0, len(card.Photos))
	for _, p := range card.Photos {
		photoURLs = append(photoURLs, contentURLPrefix+p.Path)
	}

	var videoURL *string
	if card.VideoPath != nil {
		u := contentURLPrefix + *card.VideoPath
		videoURL = &u
	}

	return CardDTO{
		ID:        card.ID,
		ToName:    card.ToName,
		FromName:  card.FromName,
		Location:  card.Location,
		Message:   card.Message,
		SongURL:   card.SongURL,
		Lat:       card.Lat,
		Lng:       card.Lng,
		VideoURL:  videoURL,
		PhotoURLs: photoURLs,
		Status:    card.Status,
		OwnerID:   card.OwnerID,
		CreatedAt: card.CreatedAt,
	}
}

// PinFromModel converts an approved, located card into a map pin.
func PinFromModel(card *models.Card) MapPinDTO {
	pin := MapPinDTO{
		ID:       card.ID,
		ToName:   card.ToName,
		Location: card.Location,
	}
	if card.Lat != nil {
		pin.Lat = *card.Lat
	}
	if card.Lng != nil {
		pin.Lng = *card.Lng
	}
	return pin
}
