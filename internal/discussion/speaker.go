package discussion

import (
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// Response-style hints steer the selected speaker toward engaging with the
// previous message instead of monologuing.
const (
	HintRespondDirectly = "respond directly to what was just said to you"
	HintAnswerQuestion  = "answer the question that was just raised"
	HintDefend          = "defend your view or reconsider it in light of the disagreement"
	HintDeepen          = "affirm, challenge, or deepen the claim that was just made"
	HintSynthesize      = "synthesize what the group has said so far"
	HintBuild           = "build on what was shared"
)

// SelectNextSpeaker picks the next eligible figure and its response-style
// hint. ok is false when no figure is eligible (degenerate roster).
func SelectNextSpeaker(roster []types.Figure, history []types.Message) (types.Figure, string, bool) {
	if len(roster) == 0 {
		return types.Figure{}, "", false
	}

	assistant := assistantTurns(history, len(roster)*2)

	// Round-robin fairness: skip anyone who spoke within the last
	// len(roster)-1 turns.
	recent := len(roster) - 1
	if recent > len(assistant) {
		recent = len(assistant)
	}
	spokeRecently := make(map[string]bool, recent)
	for _, msg := range assistant[len(assistant)-recent:] {
		spokeRecently[msg.SpeakerID] = true
	}

	lastSpoken := make(map[string]int, len(assistant))
	for i, msg := range assistant {
		lastSpoken[msg.SpeakerID] = i
	}

	chosen := -1
	chosenLast := 0
	for i, figure := range roster {
		if spokeRecently[figure.ID] {
			continue
		}
		last, spoke := lastSpoken[figure.ID]
		if !spoke {
			// Never spoken in the window: pick immediately, roster order.
			chosen = i
			break
		}
		if chosen == -1 || last < chosenLast {
			chosen = i
			chosenLast = last
		}
	}
	if chosen == -1 {
		return types.Figure{}, "", false
	}

	speaker := roster[chosen]
	return speaker, responseHint(speaker, history, len(roster)), true
}

// responseHint inspects the previous message for what kind of reply fits.
func responseHint(speaker types.Figure, history []types.Message, rosterSize int) string {
	if len(history) == 0 {
		return HintBuild
	}
	previous := history[len(history)-1]
	lower := strings.ToLower(previous.Content)

	switch {
	case strings.Contains(lower, strings.ToLower(speaker.Name)):
		return HintRespondDirectly
	case strings.Contains(previous.Content, "?"):
		return HintAnswerQuestion
	case containsAny(lower, disagreementMarkers):
		return HintDefend
	case containsAny(lower, claimMarkers):
		return HintDeepen
	case len(assistantTurns(history, len(history))) >= rosterSize*2:
		return HintSynthesize
	default:
		return HintBuild
	}
}

// assistantTurns returns up to the last limit assistant messages, oldest
// first.
func assistantTurns(history []types.Message, limit int) []types.Message {
	var turns []types.Message
	for _, msg := range history {
		if msg.Role == "assistant" {
			turns = append(turns, msg)
		}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}
