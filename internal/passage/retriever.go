package passage

import (
	"context"
	"fmt"

	"github.com/upperroomlabs/upperroom/internal/repository"
)

// Retriever finds passages near a query by embedding similarity.
type Retriever struct {
	embedder Embedder
	repo     *repository.PassageRepo
}

// NewRetriever creates a passage Retriever.
func NewRetriever(embedder Embedder, repo *repository.PassageRepo) *Retriever {
	return &Retriever{embedder: embedder, repo: repo}
}

// Find returns up to limit passages rendered with their references.
func (r *Retriever) Find(ctx context.Context, query string, limit int) ([]string, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	passages, err := r.repo.SearchSimilar(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	rendered := make([]string, 0, len(passages))
	for _, passage := range passages {
		rendered = append(rendered, passage.String())
	}
	return rendered, nil
}
