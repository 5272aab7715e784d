// Package discussion drives multi-figure conversations as an explicit state
// machine: role assignment, speaker selection, response validation, outcome
// detection, and user interjection.
package discussion

// EventKind tags a discussion event.
type EventKind string

const (
	EventUserMessageEcho     EventKind = "user_message_echo"
	EventStatusUpdate        EventKind = "status_update"
	EventCharacterSpeaking   EventKind = "character_speaking"
	EventCharacterResponse   EventKind = "character_response"
	EventRequestingUserInput EventKind = "requesting_user_input"
	EventConsensusReached    EventKind = "consensus_reached"
	EventNoConsensus         EventKind = "no_consensus"
	EventDiscussionComplete  EventKind = "discussion_complete"
)

// Event carries everything a presentation layer needs to render a
// discussion without reaching into session state.
type Event struct {
	Kind       EventKind  `json:"kind"`
	FigureID   string     `json:"figure_id,omitempty"`
	FigureName string     `json:"figure_name,omitempty"`
	Role       DebateRole `json:"role,omitempty"`
	Message    string     `json:"message,omitempty"`
	Status     string     `json:"status,omitempty"`
	Outcome    Outcome    `json:"outcome,omitempty"`
}
