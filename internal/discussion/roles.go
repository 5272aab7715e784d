package discussion

import (
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
)

// DebateRole is a turn-scoped rhetorical stance shaping that turn's prompt.
type DebateRole string

const (
	RoleInitiator      DebateRole = "initiator"
	RoleChallenger     DebateRole = "challenger"
	RoleSupporter      DebateRole = "supporter"
	RoleQuestioner     DebateRole = "questioner"
	RoleSynthesizer    DebateRole = "synthesizer"
	RoleDevilsAdvocate DebateRole = "devils_advocate"
	RoleWitness        DebateRole = "witness"
	RoleProphet        DebateRole = "prophet"
)

// Instruction returns the fixed template injected into the prompt for this
// role.
func (r DebateRole) Instruction() string {
	switch r {
	case RoleInitiator:
		return "Open the discussion: share your honest perspective on the question from your own life and convictions."
	case RoleChallenger:
		return "Respectfully challenge something said before you. Name what you find incomplete or mistaken and say why."
	case RoleSupporter:
		return "Strengthen a point someone else made. Add your own reason or experience that supports it."
	case RoleQuestioner:
		return "Press the group with a probing question about what has been said, then offer your own tentative answer."
	case RoleSynthesizer:
		return "Draw the threads together: name where the group agrees, where it differs, and what remains unresolved."
	case RoleDevilsAdvocate:
		return "Argue the strongest case against the emerging view, even if you privately share it."
	case RoleWitness:
		return "Testify from what you personally saw and lived through; speak from experience, not theory."
	case RoleProphet:
		return "Speak to the heart of the matter with urgency. Say what the group does not want to hear but needs to."
	default:
		return "Share your perspective on the question."
	}
}

// AssignRole picks a role from turn parity and the speaker's title.
func AssignRole(turnIndex int, figure types.Figure) DebateRole {
	title := strings.ToLower(figure.Title)
	even := turnIndex%2 == 0

	switch {
	case strings.Contains(title, "prophet"):
		return RoleProphet
	case strings.Contains(title, "teacher"):
		if even {
			return RoleQuestioner
		}
		return RoleSynthesizer
	case strings.Contains(title, "king"):
		if even {
			return RoleDevilsAdvocate
		}
		return RoleSupporter
	case strings.Contains(title, "apostle"), strings.Contains(title, "disciple"):
		if even {
			return RoleWitness
		}
		return RoleChallenger
	default:
		if even {
			return RoleChallenger
		}
		return RoleSupporter
	}
}
