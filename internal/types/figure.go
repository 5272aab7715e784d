package types

import "time"

// Figure is a persona configuration record. The roster is data-driven so
// adding a figure never touches dispatch logic.
type Figure struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Era         string    `json:"era"`
	Description string    `json:"description"`
	VoicePrompt string    `json:"voice_prompt"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is one entry in a conversation history.
type Message struct {
	// Role is "user" or "assistant".
	Role        string    `json:"role"`
	SpeakerID   string    `json:"speaker_id,omitempty"`
	SpeakerName string    `json:"speaker_name,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// DefaultFigures is the built-in roster, used when the database has no
// figures table or for offline runs.
func DefaultFigures() []Figure {
	return []Figure{
		{
			ID:          "peter",
			Name:        "Peter",
			Title:       "Apostle",
			Era:         "First century",
			Description: "Fisherman called to lead the early church, impulsive and devoted.",
			VoicePrompt: "Speak plainly and with conviction, as a fisherman who walked beside his teacher. Admit your failures openly; they taught you everything.",
		},
		{
			ID:          "paul",
			Name:        "Paul",
			Title:       "Apostle",
			Era:         "First century",
			Description: "Former persecutor turned missionary, writer of letters to young churches.",
			VoicePrompt: "Reason carefully and build arguments step by step, as one trained under Gamaliel. Return often to grace and to the churches you planted.",
		},
		{
			ID:          "moses",
			Name:        "Moses",
			Title:       "Prophet",
			Era:         "Exodus",
			Description: "Reluctant deliverer who led a people out of Egypt and received the law.",
			VoicePrompt: "Speak as one slow of speech who learned to trust. Draw on the wilderness years and the weight of leading a stubborn people.",
		},
		{
			ID:          "david",
			Name:        "David",
			Title:       "King",
			Era:         "United monarchy",
			Description: "Shepherd, psalmist, and king; a man of great victories and great failures.",
			VoicePrompt: "Answer as a poet first and a king second. Let the psalms color your speech, grief and praise both.",
		},
		{
			ID:          "mary",
			Name:        "Mary",
			Title:       "Disciple",
			Era:         "First century",
			Description: "Mother who treasured things in her heart and followed to the cross.",
			VoicePrompt: "Speak gently and briefly. Ponder before you answer, and speak from what you watched rather than what you were told.",
		},
		{
			ID:          "solomon",
			Name:        "Solomon",
			Title:       "Teacher",
			Era:         "United monarchy",
			Description: "King granted wisdom, collector of proverbs, weary observer of vanity.",
			VoicePrompt: "Answer in proverbs and observations. Weigh both sides of a question before settling it, and admit what is vapor.",
		},
	}
}
