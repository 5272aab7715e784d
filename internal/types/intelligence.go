// Package types defines the persisted intelligence data model.
package types

import "time"

// InteractionType classifies a recorded exchange.
type InteractionType string

const (
	// InteractionChat is a one-on-one conversation turn.
	InteractionChat InteractionType = "chat"
	// InteractionPrayer is a prayer exchange.
	InteractionPrayer InteractionType = "prayer"
	// InteractionGroupDiscussion is a roundtable turn.
	InteractionGroupDiscussion InteractionType = "group_discussion"
	// InteractionTeaching is a teaching or council answer.
	InteractionTeaching InteractionType = "teaching"
)

// CharacterIntelligence is the root intelligence record, one per figure.
// Memories are append-only; Version counts recorded interactions.
type CharacterIntelligence struct {
	CharacterID          string                  `json:"character_id"`
	Profile              Profile                 `json:"profile"`
	Memories             []Memory                `json:"memories"`
	Traits               map[string]LearnedTrait `json:"traits"`
	Stances              map[string]TopicStance  `json:"stances"`
	Relationships        map[string]Relationship `json:"relationships"`
	Stats                Stats                   `json:"stats"`
	Version              int                     `json:"version"`
	CreatedAt            time.Time               `json:"created_at"`
	LastUpdatedAt        time.Time               `json:"last_updated_at"`
	LastProfileRebuildAt *time.Time              `json:"last_profile_rebuild_at,omitempty"`
}

// NewCharacterIntelligence returns an empty record for a figure.
func NewCharacterIntelligence(characterID string, now time.Time) *CharacterIntelligence {
	return &CharacterIntelligence{
		CharacterID:   characterID,
		Memories:      []Memory{},
		Traits:        map[string]LearnedTrait{},
		Stances:       map[string]TopicStance{},
		Relationships: map[string]Relationship{},
		Stats: Stats{
			ByType:         map[InteractionType]int{},
			TopicFrequency: map[string]int{},
		},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Profile is the synthesized view of a figure's accumulated memory.
type Profile struct {
	PersonalityTraits    []string              `json:"personality_traits"`
	Style                CommunicationStyle    `json:"communication_style"`
	Stances              []string              `json:"stances"`
	ScripturePreferences []ScripturePreference `json:"scripture_preferences"`
	SignaturePhrases     []string              `json:"signature_phrases"`
	EvolvedDescription   string                `json:"evolved_description"`
	Confidence           float64               `json:"confidence"`
}

// CommunicationStyle holds continuous 0-1 style dimensions.
type CommunicationStyle struct {
	Formality           float64 `json:"formality"`
	Verbosity           float64 `json:"verbosity"`
	Directness          float64 `json:"directness"`
	EmotionalExpression float64 `json:"emotional_expression"`
	QuestionAsking      float64 `json:"question_asking"`
	Storytelling        float64 `json:"storytelling"`
}

// ScripturePreference tracks how often a figure reaches for a reference.
type ScripturePreference struct {
	Reference  string   `json:"reference"`
	UsageCount int      `json:"usage_count"`
	Contexts   []string `json:"contexts"`
}

// Memory is the immutable record of one interaction.
type Memory struct {
	ID           string          `json:"id"`
	Type         InteractionType `json:"type"`
	Context      string          `json:"context"`
	UserInput    string          `json:"user_input"`
	Response     string          `json:"response"`
	Participants []string        `json:"participants,omitempty"`
	Claims       []string        `json:"claims"`
	References   []string        `json:"references"`
	// Tone is a 0-1 positive/negative balance of the response.
	Tone float64 `json:"tone"`
	// Importance is a 0-1 score used for retrieval and profile rebuilds.
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
}

// LearnedTrait is an inferred behavioral tendency, strengthened on
// re-observation.
type LearnedTrait struct {
	Trait         string    `json:"trait"`
	Evidence      string    `json:"evidence"`
	Confidence    float64   `json:"confidence"`
	Occurrences   int       `json:"occurrences"`
	FirstObserved time.Time `json:"first_observed"`
	LastObserved  time.Time `json:"last_observed"`
}

// TopicStance is a figure's recorded position on a derived topic.
type TopicStance struct {
	Topic           string   `json:"topic"`
	Position        string   `json:"position"`
	Arguments       []string `json:"arguments"`
	References      []string `json:"references"`
	Certainty       float64  `json:"certainty"`
	DiscussionCount int      `json:"discussion_count"`
}

// RelationType categorizes a relationship between figures.
type RelationType string

const (
	RelationAlly       RelationType = "ally"
	RelationChallenger RelationType = "challenger"
	RelationMentor     RelationType = "mentor"
	RelationStudent    RelationType = "student"
	RelationNeutral    RelationType = "neutral"
)

// Relationship tracks shared history with another figure. Type inference
// beyond neutral is future work; nothing assigns the other values yet.
type Relationship struct {
	CharacterID     string       `json:"character_id"`
	Name            string       `json:"name"`
	Type            RelationType `json:"type"`
	Affinity        float64      `json:"affinity"`
	SharedTopics    []string     `json:"shared_topics"`
	DisagreedTopics []string     `json:"disagreed_topics"`
	Interactions    int          `json:"interactions"`
}

// Stats aggregates interaction counters for a figure.
type Stats struct {
	ByType           map[InteractionType]int `json:"by_type"`
	TotalWords       int                     `json:"total_words"`
	TopicFrequency   map[string]int          `json:"topic_frequency"`
	FirstInteraction time.Time               `json:"first_interaction"`
	LastInteraction  time.Time               `json:"last_interaction"`
}
