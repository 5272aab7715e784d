package intelligence

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/upperroomlabs/upperroom/internal/types"
)

const (
	rebuildMemoryLimit = 10
	profileStanceLimit = 5
)

// Rebuilder recomputes a figure's profile from its accumulated memories.
// The evolved description comes from the Describer and is best-effort; all
// other fields are deterministic.
type Rebuilder struct {
	store       *Store
	describer   Describer
	figureName  func(characterID string) string
	minMemories int
	now         func() time.Time
}

// NewRebuilder returns a Rebuilder. describer may be nil; figureName may be
// nil to fall back to the raw id.
func NewRebuilder(store *Store, describer Describer, figureName func(string) string, minMemories int) *Rebuilder {
	if minMemories <= 0 {
		minMemories = 3
	}
	return &Rebuilder{
		store:       store,
		describer:   describer,
		figureName:  figureName,
		minMemories: minMemories,
		now:         time.Now,
	}
}

// Rebuild synthesizes the profile. A figure with too few memories is left
// untouched.
func (r *Rebuilder) Rebuild(ctx context.Context, characterID string) error {
	snapshot, err := r.store.Snapshot(ctx, characterID)
	if err != nil {
		return err
	}
	if len(snapshot.Memories) < r.minMemories {
		return nil
	}

	description := ""
	if r.describer != nil {
		top := TopMemoriesByImportance(snapshot.Memories, rebuildMemoryLimit)
		description, err = r.describer.Describe(ctx, r.nameFor(characterID), top)
		if err != nil {
			// Best-effort: keep the previous description.
			slog.Warn("profile description rebuild failed", "character_id", characterID, "error", err.Error())
			description = ""
		}
	}

	style := ComputeStyle(snapshot.Memories)
	phrases := MineSignaturePhrases(snapshot.Memories)
	confidence := ConfidenceFor(len(snapshot.Memories))
	traits := rankedTraitLabels(snapshot.Traits)
	stances := rankedStanceLines(snapshot.Stances)

	now := r.now()
	return r.store.Mutate(ctx, characterID, func(intel *types.CharacterIntelligence) {
		intel.Profile.Style = style
		intel.Profile.SignaturePhrases = phrases
		intel.Profile.Confidence = confidence
		intel.Profile.PersonalityTraits = traits
		intel.Profile.Stances = stances
		if description != "" {
			intel.Profile.EvolvedDescription = description
		}
		intel.LastProfileRebuildAt = &now
		intel.LastUpdatedAt = now
	})
}

func (r *Rebuilder) nameFor(characterID string) string {
	if r.figureName != nil {
		if name := r.figureName(characterID); name != "" {
			return name
		}
	}
	return characterID
}

func rankedTraitLabels(traits map[string]types.LearnedTrait) []string {
	labels := make([]string, 0, len(traits))
	for label := range traits {
		labels = append(labels, label)
	}
	sort.SliceStable(labels, func(i, j int) bool {
		ti, tj := traits[labels[i]], traits[labels[j]]
		if ti.Confidence != tj.Confidence {
			return ti.Confidence > tj.Confidence
		}
		return labels[i] < labels[j]
	})
	return labels
}

func rankedStanceLines(stances map[string]types.TopicStance) []string {
	keys := make([]string, 0, len(stances))
	for key := range stances {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		si, sj := stances[keys[i]], stances[keys[j]]
		if si.DiscussionCount != sj.DiscussionCount {
			return si.DiscussionCount > sj.DiscussionCount
		}
		return keys[i] < keys[j]
	})
	if len(keys) > profileStanceLimit {
		keys = keys[:profileStanceLimit]
	}
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		stance := stances[key]
		lines = append(lines, stance.Topic+": "+stance.Position)
	}
	return lines
}
