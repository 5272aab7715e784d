package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// figureModel maps to the figures table.
type figureModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Title       string
	Era         string
	Description string `gorm:"type:text"`
	VoicePrompt string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (figureModel) TableName() string {
	return "figures"
}

// FigureRepo accesses the figure roster.
type FigureRepo struct {
	db *gorm.DB
}

// NewFigureRepo returns a FigureRepo.
func NewFigureRepo(db *gorm.DB) *FigureRepo {
	return &FigureRepo{db: db}
}

// List returns every figure, in insertion order. An empty table falls back
// to the built-in roster.
func (r *FigureRepo) List(ctx context.Context) ([]types.Figure, error) {
	var records []figureModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list figures: %w", err)
	}
	if len(records) == 0 {
		return types.DefaultFigures(), nil
	}

	figures := make([]types.Figure, 0, len(records))
	for _, record := range records {
		figures = append(figures, figureFromModel(record))
	}
	return figures, nil
}

// Get fetches one figure by ID, checking the built-in roster when the table
// has no row.
func (r *FigureRepo) Get(ctx context.Context, id string) (types.Figure, error) {
	var record figureModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err == nil {
		return figureFromModel(record), nil
	}
	for _, figure := range types.DefaultFigures() {
		if figure.ID == id {
			return figure, nil
		}
	}
	return types.Figure{}, fmt.Errorf("failed to get figure %q: %w", id, err)
}

// Seed upserts the built-in roster, keeping manual edits to other columns.
func (r *FigureRepo) Seed(ctx context.Context) error {
	for _, figure := range types.DefaultFigures() {
		record := figureModel{
			ID:          figure.ID,
			Name:        figure.Name,
			Title:       figure.Title,
			Era:         figure.Era,
			Description: figure.Description,
			VoicePrompt: figure.VoicePrompt,
		}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).
			Create(&record).Error
		if err != nil {
			return fmt.Errorf("failed to seed figure %q: %w", figure.ID, err)
		}
	}
	return nil
}

func figureFromModel(record figureModel) types.Figure {
	return types.Figure{
		ID:          record.ID,
		Name:        record.Name,
		Title:       record.Title,
		Era:         record.Era,
		Description: record.Description,
		VoicePrompt: record.VoicePrompt,
	}
}
