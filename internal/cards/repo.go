package cards

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pindropapp/pindrop-backend/pkg/db/models"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/pagination"
)

// searchFetchCap bounds how many candidate rows a ranked search pulls into memory.
const searchFetchCap = 500

// Repository exposes card persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cards repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a card and its photos atomically. A submission carrying more
// than maxPhotos photos is rejected before anything is written.
func (r *Repository) Create(ctx context.Context, card *models.Card, maxPhotos int) error {
	if len(card.Photos) > maxPhotos {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a card can have at most %d photos", maxPhotos))
	}

	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	for i := range card.Photos {
		if card.Photos[i].ID == uuid.Nil {
			card.Photos[i].ID = uuid.New()
		}
		card.Photos[i].CardID = card.ID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photos := card.Photos
		card.Photos = nil
		if err := tx.Create(card).Error; err != nil {
			card.Photos = photos
			return err
		}
		if len(photos) > 0 {
			if err := tx.Create(&photos).Error; err != nil {
				card.Photos = photos
				return err
			}
		}
		card.Photos = photos
		return nil
	})
}

// FindByID loads a card with its photos.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Preload("Photos").First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// ListByStatus pages cards of the given status, newest first.
func (r *Repository) ListByStatus(ctx context.Context, status enums.CardStatus, limit int, cursor *pagination.Cursor) ([]models.Card, error) {
	query := r.db.WithContext(ctx).
		Preload("Photos").
		Where("status = ?", status).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var cards []models.Card
	if err := query.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// SearchApproved returns approved cards whose to_name or from_name contains the
// query, case-insensitively. Ranking happens in memory, so the fetch is capped.
func (r *Repository) SearchApproved(ctx context.Context, query string) ([]models.Card, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var cards []models.Card
	err := r.db.WithContext(ctx).
		Preload("Photos").
		Where("status = ?", enums.CardStatusApproved).
		Where("LOWER(to_name) LIKE ? OR LOWER(from_name) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Order("id DESC").
		Limit(searchFetchCap).
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// ListForMap returns approved cards that carry a complete coordinate pair.
func (r *Repository) ListForMap(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.CardStatusApproved).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// SetStatus moves the card to the given status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.CardStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateFields applies a partial column update to the card.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the card and its photos, returning the relative content paths
// that backed them so the caller can clean up files.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	card, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	paths := contentPaths(card)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Card{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// DeleteByOwner removes every card belonging to the owner, returning the
// content paths of all removed attachments.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	var cards []models.Card
	if err := r.db.WithContext(ctx).Preload("Photos").Where("owner_id = ?", ownerID).Find(&cards).Error; err != nil {
		return nil, err
	}

	var paths []string
	ids := make([]uuid.UUID, 0, len(cards))
	for i := range cards {
		paths = append(paths, contentPaths(&cards[i])...)
		ids = append(ids, cards[i].ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id IN ?", ids).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_id = ?", ownerID).Delete(&models.Card{}).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func contentPaths(card *models.Card) []string {
	paths := make([]string, 0, len(card.Photos)+1)
	for _, p := range card.Photos {
		paths = append(paths, p.Path)
	}
	if card.VideoPath != nil && *card.VideoPath != "" {
		paths = append(paths, *card.VideoPath)
	}
	return paths
}
