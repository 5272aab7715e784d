package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// Repo is the persistence collaborator: one durable document per figure.
type Repo interface {
	// Load returns nil without error when no record exists.
	Load(ctx context.Context, characterID string) (*types.CharacterIntelligence, error)
	Save(ctx context.Context, characterID string, intel *types.CharacterIntelligence) error
}

// Store caches intelligence records in process behind a single mutex. The
// durable write happens inside the same lock scope as the in-memory update
// so concurrent mutations cannot lose each other.
type Store struct {
	mu    sync.Mutex
	cache map[string]*types.CharacterIntelligence
	repo  Repo
	now   func() time.Time
}

// NewStore returns a Store over the given persistence collaborator. A nil
// repo keeps everything in memory only.
func NewStore(repo Repo) *Store {
	return &Store{
		cache: make(map[string]*types.CharacterIntelligence),
		repo:  repo,
		now:   time.Now,
	}
}

// Snapshot returns an independent copy of a figure's record, creating an
// empty one if the figure has never interacted.
func (s *Store) Snapshot(ctx context.Context, characterID string) (*types.CharacterIntelligence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intel, err := s.lockedGet(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return copyIntelligence(intel)
}

// Mutate applies fn to a figure's record under the store lock and persists
// the result. Persistence faults are logged and swallowed: the in-memory
// record is already updated and the session stays usable.
func (s *Store) Mutate(ctx context.Context, characterID string, fn func(*types.CharacterIntelligence)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intel, err := s.lockedGet(ctx, characterID)
	if err != nil {
		return err
	}

	fn(intel)

	if s.repo != nil {
		if err := s.repo.Save(ctx, characterID, intel); err != nil {
			slog.Error("failed to persist intelligence", "character_id", characterID, "error", err.Error())
		}
	}
	return nil
}

// lockedGet loads through the cache; caller must hold the lock.
func (s *Store) lockedGet(ctx context.Context, characterID string) (*types.CharacterIntelligence, error) {
	if intel, ok := s.cache[characterID]; ok {
		return intel, nil
	}

	if s.repo != nil {
		intel, err := s.repo.Load(ctx, characterID)
		if err != nil {
			return nil, fmt.Errorf("failed to load intelligence: %w", err)
		}
		if intel != nil {
			s.cache[characterID] = intel
			return intel, nil
		}
	}

	intel := types.NewCharacterIntelligence(characterID, s.now())
	s.cache[characterID] = intel
	return intel, nil
}

// copyIntelligence deep-copies through the JSON codec; the model is fully
// JSON-tagged, which the round-trip property already guarantees.
func copyIntelligence(intel *types.CharacterIntelligence) (*types.CharacterIntelligence, error) {
	raw, err := json.Marshal(intel)
	if err != nil {
		return nil, fmt.Errorf("failed to encode intelligence: %w", err)
	}
	var out types.CharacterIntelligence
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode intelligence: %w", err)
	}
	return &out, nil
}
