package discussion

import (
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// Outcome is how a discussion ended.
type Outcome string

const (
	OutcomeConsensus        Outcome = "consensus"
	OutcomePartialAgreement Outcome = "partial_agreement"
	OutcomeAgreeToDisagree  Outcome = "agree_to_disagree"
	OutcomeUserConcluded    Outcome = "user_concluded"
	OutcomeMaxTurns         Outcome = "max_turns"
)

// Message renders the outcome for display.
func (o Outcome) Message() string {
	switch o {
	case OutcomeConsensus:
		return "The group reached a shared understanding."
	case OutcomePartialAgreement:
		return "The group found partial agreement, with some questions left open."
	case OutcomeAgreeToDisagree:
		return "The group holds differing views and has agreed to disagree."
	case OutcomeUserConcluded:
		return "You brought the discussion to a close."
	case OutcomeMaxTurns:
		return "The discussion reached its turn limit."
	default:
		return "The discussion ended."
	}
}

// agreementMarkers and disagreementMarkers are the fixed phrase lists used
// both for outcome evaluation and for speaker hints.
var agreementMarkers = []string{
	"i agree", "as was said", "likewise", "indeed", "amen", "well said",
	"we are agreed", "just as", "so too",
}

var disagreementMarkers = []string{
	"i disagree", "but consider", "yet i say", "on the contrary", "not so",
	"i must differ", "and yet", "however",
}

// claimMarkers flag theological claims worth engaging directly.
var claimMarkers = []string{
	"god", "lord", "faith", "scripture", "truth", "covenant", "spirit",
	"salvation", "grace", "law",
}

// conclusionPhrases end a discussion naturally when a speaker uses one.
var conclusionPhrases = []string{
	"in conclusion", "we are agreed", "let us end here", "nothing more to add",
	"i have nothing further", "let this be our final word",
}

// ContainsConclusion reports whether a response signals a natural close.
func ContainsConclusion(response string) bool {
	lower := strings.ToLower(response)
	for _, phrase := range conclusionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// EvaluateOutcome inspects assistant turns for agreement and disagreement
// signals. Only meaningful when the session ends without an explicit cause.
func EvaluateOutcome(history []types.Message, seekConsensus bool) Outcome {
	var agreements, disagreements int
	for _, msg := range history {
		if msg.Role != "assistant" {
			continue
		}
		lower := strings.ToLower(msg.Content)
		for _, marker := range agreementMarkers {
			if strings.Contains(lower, marker) {
				agreements++
				break
			}
		}
		for _, marker := range disagreementMarkers {
			if strings.Contains(lower, marker) {
				disagreements++
				break
			}
		}
	}

	switch {
	case seekConsensus && agreements > 0 && agreements >= disagreements*2:
		return OutcomeConsensus
	case disagreements > agreements:
		return OutcomeAgreeToDisagree
	default:
		return OutcomePartialAgreement
	}
}

func containsAny(lower string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
