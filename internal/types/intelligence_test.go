package types

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNewCharacterIntelligenceInitializesCollections(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	intel := NewCharacterIntelligence("peter", now)

	if intel.CharacterID != "peter" {
		t.Fatalf("character id = %q", intel.CharacterID)
	}
	if intel.Memories == nil || intel.Traits == nil || intel.Stances == nil || intel.Relationships == nil {
		t.Fatal("collections must be initialized, not nil")
	}
	if intel.Stats.ByType == nil || intel.Stats.TopicFrequency == nil {
		t.Fatal("stats maps must be initialized")
	}
	if !intel.CreatedAt.Equal(now) || !intel.LastUpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v / %v, want %v", intel.CreatedAt, intel.LastUpdatedAt, now)
	}
	if intel.Version != 0 || intel.LastProfileRebuildAt != nil {
		t.Fatal("fresh record must have version 0 and no rebuild timestamp")
	}
}

func TestCharacterIntelligenceJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rebuild := now.Add(2 * time.Hour)
	original := &CharacterIntelligence{
		CharacterID: "peter",
		Profile: Profile{
			PersonalityTraits:  []string{"bold", "penitent"},
			Style:              CommunicationStyle{Formality: 0.4, Directness: 0.9},
			SignaturePhrases:   []string{"the lord restores"},
			EvolvedDescription: "Speaks from failure toward hope.",
			Confidence:         0.6,
		},
		Memories: []Memory{{
			ID:         "m1",
			Type:       InteractionGroupDiscussion,
			Context:    "What is mercy?",
			Response:   "Mercy met me on the shore.",
			Claims:     []string{"Mercy met me on the shore."},
			References: []string{"John 21:15"},
			Tone:       0.8,
			Importance: 0.7,
			Timestamp:  now,
		}},
		Traits: map[string]LearnedTrait{
			"faith-centered": {Trait: "faith-centered", Confidence: 0.4, Occurrences: 2, FirstObserved: now, LastObserved: now},
		},
		Stances: map[string]TopicStance{
			"mercy": {Topic: "mercy", Position: "Mercy precedes repentance.", Certainty: 0.4, DiscussionCount: 2},
		},
		Relationships: map[string]Relationship{
			"moses": {CharacterID: "moses", Name: "Moses", Type: RelationNeutral, Affinity: 0.1, Interactions: 2},
		},
		Stats: Stats{
			ByType:           map[InteractionType]int{InteractionGroupDiscussion: 1},
			TotalWords:       6,
			TopicFrequency:   map[string]int{"mercy": 1},
			FirstInteraction: now,
			LastInteraction:  now,
		},
		Version:              1,
		CreatedAt:            now,
		LastUpdatedAt:        now,
		LastProfileRebuildAt: &rebuild,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded CharacterIntelligence
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, &decoded) {
		t.Fatalf("round trip changed the record:\noriginal: %+v\ndecoded:  %+v", original, &decoded)
	}
}

func TestPassageRendering(t *testing.T) {
	p := Passage{Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world."}
	if got := p.Ref(); got != "John 3:16" {
		t.Fatalf("Ref() = %q", got)
	}
	if got := p.String(); got != "For God so loved the world. (John 3:16)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestDefaultFiguresHaveUniqueIDs(t *testing.T) {
	figures := DefaultFigures()
	if len(figures) == 0 {
		t.Fatal("built-in roster must not be empty")
	}
	seen := make(map[string]bool)
	for _, f := range figures {
		if f.ID == "" || f.Name == "" || f.VoicePrompt == "" {
			t.Errorf("figure %+v missing required fields", f)
		}
		if seen[f.ID] {
			t.Errorf("duplicate figure id %q", f.ID)
		}
		seen[f.ID] = true
	}
}
