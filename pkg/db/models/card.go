package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/pkg/enums"
)

// Card is a single pinned message tied to a location. Lat/Lng are stored as a
// pair: a card missing either coordinate never appears on the map. OwnerID is
// nil for anonymous submissions.
type Card struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ToName    string           `gorm:"column:to_name;not null"`
	Location  string           `gorm:"column:location;not null"`
	Message   string           `gorm:"column:message;not null"`
	FromName  string           `gorm:"column:from_name;not null;default:'Anonymous'"`
	SongURL   *string          `gorm:"column:song_url"`
	Lat       *float64         `gorm:"column:lat"`
	Lng       *float64         `gorm:"column:lng"`
	VideoPath *string          `gorm:"column:video_path"`
	Status    enums.CardStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OwnerID   *uuid.UUID       `gorm:"column:owner_id;type:uuid"`
	Photos    []Photo          `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCoordinates reports whether the card carries a complete lat/lng pair.
func (c Card) HasCoordinates() bool {
	return c.Lat != nil && c.Lng != nil
}
