// Package catalog supplies immutable card records by id or name. The
// collection store treats it as an external collaborator; this
// implementation serves records from the local cards table.
package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardvault/backend/internal/models"
)

const searchLimit = 50

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetByID returns the card record for an id, or nil when unknown.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	err := s.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetByName returns cards whose name starts with the given prefix.
func (s *Service) GetByName(ctx context.Context, name string) ([]models.Card, error) {
	if name == "" {
		return nil, nil
	}

	var cards []models.Card
	err := s.db.WithContext(ctx).
		Where("name LIKE ?", name+"%").
		Order("name").
		Limit(searchLimit).
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// Upsert stores or refreshes a card record. Data ingestion scripts feed the
// catalog through this.
func (s *Service) Upsert(ctx context.Context, card *models.Card) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "supertype", "set_name", "set_code", "card_number", "rarity", "image_url_small", "image_url_large", "updated_at"}),
	}).Create(card).Error
}
