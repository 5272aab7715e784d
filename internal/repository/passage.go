package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// passageModel maps to the passages table.
type passageModel struct {
	ID      int `gorm:"primaryKey"`
	Book    string
	Chapter int
	Verse   int
	Text    string `gorm:"type:text"`
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (passageModel) TableName() string {
	return "passages"
}

// PassageRepo accesses scripture passages.
type PassageRepo struct {
	db *gorm.DB
}

// NewPassageRepo returns a PassageRepo.
func NewPassageRepo(db *gorm.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// Add inserts one passage with its embedding.
func (r *PassageRepo) Add(ctx context.Context, passage types.Passage, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := passageModel{
		Book:      passage.Book,
		Chapter:   passage.Chapter,
		Verse:     passage.Verse,
		Text:      passage.Text,
		Embedding: vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}
	return nil
}

// SearchSimilar returns the passages nearest to the embedding by cosine
// distance.
func (r *PassageRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]types.Passage, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	var records []passageModel
	err := r.db.WithContext(ctx).
		Raw(`
			SELECT id, book, chapter, verse, text
			FROM passages
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2`, pgvector.NewVector(embedding), limit).
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search similar passages: %w", err)
	}

	passages := make([]types.Passage, 0, len(records))
	for _, record := range records {
		passages = append(passages, types.Passage{
			Book:    record.Book,
			Chapter: record.Chapter,
			Verse:   record.Verse,
			Text:    record.Text,
		})
	}
	return passages, nil
}

// Count reports how many passages are stored.
func (r *PassageRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&passageModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}
