package intelligence

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

const (
	traitInitialConfidence   = 0.3
	traitConfidenceStep      = 0.1
	stanceInitialCertainty   = 0.3
	stanceCertaintyStep      = 0.1
	relationshipAffinityStep = 0.05
	maxStanceArguments       = 8
	maxPreferenceContexts    = 3
)

// Participant identifies a co-participant in a group interaction.
type Participant struct {
	ID   string
	Name string
}

// Interaction is one completed exchange to be recorded.
type Interaction struct {
	CharacterID  string
	Kind         types.InteractionType
	Context      string
	UserInput    string
	Response     string
	Participants []Participant
}

// Scheduler accepts background rebuild requests. Schedule reports whether
// the request was accepted.
type Scheduler interface {
	Schedule(characterID string) bool
}

// Recorder ingests completed exchanges into the store. It never fails its
// caller: extraction faults degrade to empty signals and persistence faults
// are handled inside the store.
type Recorder struct {
	store        *Store
	extractor    Extractor
	scheduler    Scheduler
	rebuildEvery int
	cooldown     time.Duration
	now          func() time.Time
}

// NewRecorder returns a Recorder. The scheduler may be nil to disable
// background profile rebuilds.
func NewRecorder(store *Store, extractor Extractor, scheduler Scheduler, rebuildEvery int, cooldown time.Duration) *Recorder {
	if extractor == nil {
		extractor = NewLexicalExtractor()
	}
	if rebuildEvery <= 0 {
		rebuildEvery = 5
	}
	return &Recorder{
		store:        store,
		extractor:    extractor,
		scheduler:    scheduler,
		rebuildEvery: rebuildEvery,
		cooldown:     cooldown,
		now:          time.Now,
	}
}

// RecordInteraction appends a memory and updates every aggregate. It always
// succeeds from the caller's point of view.
func (r *Recorder) RecordInteraction(ctx context.Context, in Interaction) {
	now := r.now()
	extraction := r.safeExtract(in)

	memory := types.Memory{
		ID:         uuid.NewString(),
		Type:       in.Kind,
		Context:    in.Context,
		UserInput:  in.UserInput,
		Response:   in.Response,
		Claims:     extraction.Claims,
		References: extraction.References,
		Tone:       extraction.Tone,
		Importance: extraction.Importance,
		Timestamp:  now,
	}
	for _, p := range in.Participants {
		memory.Participants = append(memory.Participants, p.ID)
	}

	var version int
	var lastRebuild *time.Time
	err := r.store.Mutate(ctx, in.CharacterID, func(intel *types.CharacterIntelligence) {
		intel.Memories = append(intel.Memories, memory)
		updateStats(intel, in, extraction.TopicKey, now)
		updatePreferences(intel, extraction)
		updateTraits(intel, extraction.Claims, now)
		updateStance(intel, extraction, in.Response)
		updateRelationships(intel, in.Participants, extraction.TopicKey)
		intel.Version++
		intel.LastUpdatedAt = now

		version = intel.Version
		lastRebuild = intel.LastProfileRebuildAt
	})
	if err != nil {
		slog.Error("failed to record interaction", "character_id", in.CharacterID, "error", err.Error())
		return
	}

	r.maybeScheduleRebuild(in.CharacterID, version, lastRebuild, now)
}

// safeExtract shields the recorder from extractor faults.
func (r *Recorder) safeExtract(in Interaction) (extraction Extraction) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("extraction failed, recording without signals", "character_id", in.CharacterID, "panic", rec)
			extraction = Extraction{Tone: 0.5}
		}
	}()
	return r.extractor.Extract(in.Context, in.Response, in.Kind)
}

func (r *Recorder) maybeScheduleRebuild(characterID string, version int, lastRebuild *time.Time, now time.Time) {
	if r.scheduler == nil {
		return
	}
	if version < r.rebuildEvery || version%r.rebuildEvery != 0 {
		return
	}
	if lastRebuild != nil && now.Sub(*lastRebuild) < r.cooldown {
		return
	}
	if !r.scheduler.Schedule(characterID) {
		slog.Warn("rebuild queue full, skipping", "character_id", characterID)
	}
}

func updateStats(intel *types.CharacterIntelligence, in Interaction, topicKey string, now time.Time) {
	intel.Stats.ByType[in.Kind]++
	intel.Stats.TotalWords += len(strings.Fields(in.Response))
	if topicKey != "" {
		intel.Stats.TopicFrequency[topicKey]++
	}
	if intel.Stats.FirstInteraction.IsZero() {
		intel.Stats.FirstInteraction = now
	}
	intel.Stats.LastInteraction = now
}

func updatePreferences(intel *types.CharacterIntelligence, extraction Extraction) {
	for _, ref := range extraction.References {
		idx := -1
		for i := range intel.Profile.ScripturePreferences {
			if intel.Profile.ScripturePreferences[i].Reference == ref {
				idx = i
				break
			}
		}
		if idx == -1 {
			intel.Profile.ScripturePreferences = append(intel.Profile.ScripturePreferences, types.ScripturePreference{Reference: ref})
			idx = len(intel.Profile.ScripturePreferences) - 1
		}
		pref := &intel.Profile.ScripturePreferences[idx]
		pref.UsageCount++
		if extraction.TopicKey != "" && !containsString(pref.Contexts, extraction.TopicKey) && len(pref.Contexts) < maxPreferenceContexts {
			pref.Contexts = append(pref.Contexts, extraction.TopicKey)
		}
	}
	sort.SliceStable(intel.Profile.ScripturePreferences, func(i, j int) bool {
		return intel.Profile.ScripturePreferences[i].UsageCount > intel.Profile.ScripturePreferences[j].UsageCount
	})
}

func updateTraits(intel *types.CharacterIntelligence, claims []string, now time.Time) {
	for _, claim := range claims {
		label, ok := ClassifyClaim(claim)
		if !ok {
			continue
		}
		trait, exists := intel.Traits[label]
		if !exists {
			trait = types.LearnedTrait{
				Trait:         label,
				Evidence:      claim,
				Confidence:    traitInitialConfidence,
				FirstObserved: now,
			}
		} else {
			trait.Confidence = clamp01(trait.Confidence + traitConfidenceStep)
		}
		trait.Occurrences++
		trait.LastObserved = now
		intel.Traits[label] = trait
	}
}

func updateStance(intel *types.CharacterIntelligence, extraction Extraction, response string) {
	if extraction.TopicKey == "" {
		return
	}
	stance, exists := intel.Stances[extraction.TopicKey]
	if !exists {
		stance = types.TopicStance{
			Topic:     extraction.TopicKey,
			Certainty: stanceInitialCertainty,
		}
	} else {
		stance.Certainty = clamp01(stance.Certainty + stanceCertaintyStep)
	}
	if stance.Position == "" {
		stance.Position = firstPosition(extraction.Claims, response)
	}
	for _, claim := range extraction.Claims {
		if len(stance.Arguments) >= maxStanceArguments {
			break
		}
		if !containsString(stance.Arguments, claim) {
			stance.Arguments = append(stance.Arguments, claim)
		}
	}
	for _, ref := range extraction.References {
		if !containsString(stance.References, ref) {
			stance.References = append(stance.References, ref)
		}
	}
	stance.DiscussionCount++
	intel.Stances[extraction.TopicKey] = stance
}

func updateRelationships(intel *types.CharacterIntelligence, participants []Participant, topicKey string) {
	for _, p := range participants {
		rel, exists := intel.Relationships[p.ID]
		if !exists {
			rel = types.Relationship{
				CharacterID: p.ID,
				Name:        p.Name,
				Type:        types.RelationNeutral,
			}
		}
		rel.Interactions++
		rel.Affinity = clamp01(rel.Affinity + relationshipAffinityStep)
		if topicKey != "" && !containsString(rel.SharedTopics, topicKey) {
			rel.SharedTopics = append(rel.SharedTopics, topicKey)
		}
		intel.Relationships[p.ID] = rel
	}
}

func firstPosition(claims []string, response string) string {
	if len(claims) > 0 {
		return claims[0]
	}
	sentences := utils.Sentences(response)
	if len(sentences) > 0 {
		return truncate(sentences[0], 160)
	}
	return truncate(strings.TrimSpace(response), 160)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
