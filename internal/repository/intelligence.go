package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// intelligenceModel maps to the character_intelligence table. The whole
// record travels as one JSONB document; reads and writes are whole-document.
type intelligenceModel struct {
	CharacterID string          `gorm:"primaryKey"`
	Document    json.RawMessage `gorm:"type:jsonb"`
	// Version mirrors the document's version so SQL can inspect it directly.
	Version   int
	UpdatedAt time.Time
}

func (intelligenceModel) TableName() string {
	return "character_intelligence"
}

// IntelligenceRepo stores one intelligence document per character.
type IntelligenceRepo struct {
	db *gorm.DB
}

// NewIntelligenceRepo returns an IntelligenceRepo.
func NewIntelligenceRepo(db *gorm.DB) *IntelligenceRepo {
	return &IntelligenceRepo{db: db}
}

// Load fetches a character's document. A character with no stored record
// yields (nil, nil).
func (r *IntelligenceRepo) Load(ctx context.Context, characterID string) (*types.CharacterIntelligence, error) {
	var record intelligenceModel
	err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load intelligence: %w", err)
	}

	var intel types.CharacterIntelligence
	if err := json.Unmarshal(record.Document, &intel); err != nil {
		return nil, fmt.Errorf("failed to decode intelligence document: %w", err)
	}
	return &intel, nil
}

// Save upserts a character's document.
func (r *IntelligenceRepo) Save(ctx context.Context, characterID string, intel *types.CharacterIntelligence) error {
	document, err := json.Marshal(intel)
	if err != nil {
		return fmt.Errorf("failed to encode intelligence document: %w", err)
	}

	record := intelligenceModel{
		CharacterID: characterID,
		Document:    document,
		Version:     intel.Version,
		UpdatedAt:   intel.LastUpdatedAt,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "character_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "version", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save intelligence: %w", err)
	}
	return nil
}
