package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is an uploaded image attached to exactly one card. Path is relative to
// the content directory. Photo rows live and die with their card.
type Photo struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CardID    uuid.UUID `gorm:"column:card_id;type:uuid;not null;index"`
	Path      string    `gorm:"column:path;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
