package discussion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/prompt"
	"github.com/upperroomlabs/upperroom/internal/types"
)

// State is where the session currently stands.
type State string

const (
	StateInitiating        State = "initiating"
	StateFirstRound        State = "first_round"
	StateOngoingRound      State = "ongoing_round"
	StateAwaitingUserInput State = "awaiting_user_input"
	StateConcluded         State = "concluded"
)

// Settings bound a discussion session.
type Settings struct {
	MaxTotalTurns         int
	MaxTurnsBeforeCheck   int
	AllowUserInterjection bool
	SeekConsensus         bool
}

// DefaultSettings returns the calibrated defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxTotalTurns:         12,
		MaxTurnsBeforeCheck:   4,
		AllowUserInterjection: true,
		SeekConsensus:         true,
	}
}

// PassageFinder retrieves scripture passages relevant to a query.
type PassageFinder interface {
	Find(ctx context.Context, query string, limit int) ([]string, error)
}

// Deps are the collaborators a session consumes.
type Deps struct {
	Completer llm.Completer
	Recorder  *intelligence.Recorder
	Store     *intelligence.Store
	Retriever *intelligence.Retriever
	Prompts   *prompt.Builder
	Validator *Validator
	// Passages is optional; without it prompts omit the passages section.
	Passages     PassageFinder
	PassageLimit int
	// Retries is the number of regeneration attempts after a rejected
	// response.
	Retries int
}

// Session is one bounded multi-figure discussion. It is not safe for
// concurrent use: turns are strictly sequential.
type Session struct {
	id       string
	roster   []types.Figure
	settings Settings
	deps     Deps

	state         State
	history       []types.Message
	turnCount     int
	lastCheckTurn int
	question      string
	questionCount int
	// spoken holds each figure's statements this session, used only for
	// anti-repetition; cleared when the question changes.
	spoken map[string][]string
	// highlighted caches stance topics already surfaced in prompts, so the
	// same position is not re-quoted every turn; cleared with spoken.
	highlighted map[string]bool
	// passageCache memoizes passage retrieval per question.
	passageCache []string
	passagesFor  string
	outcome      Outcome
	now          func() time.Time
}

// NewSession creates a session over the given roster.
func NewSession(roster []types.Figure, settings Settings, deps Deps) (*Session, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}
	if deps.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder()
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator()
	}
	if deps.Retriever == nil {
		deps.Retriever = intelligence.NewRetriever(0)
	}
	if deps.PassageLimit <= 0 {
		deps.PassageLimit = defaultPassageLimit
	}
	if deps.Retries <= 0 {
		deps.Retries = defaultRetries
	}
	if settings.MaxTotalTurns <= 0 {
		settings.MaxTotalTurns = DefaultSettings().MaxTotalTurns
	}
	if settings.MaxTurnsBeforeCheck <= 0 {
		settings.MaxTurnsBeforeCheck = DefaultSettings().MaxTurnsBeforeCheck
	}
	return &Session{
		id:          uuid.NewString(),
		roster:      roster,
		settings:    settings,
		deps:        deps,
		state:       StateInitiating,
		spoken:      make(map[string][]string),
		highlighted: make(map[string]bool),
		now:         time.Now,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current machine state.
func (s *Session) State() State { return s.state }

// TurnCount returns how many figure turns have been taken.
func (s *Session) TurnCount() int { return s.turnCount }

// QuestionCount returns how many questions the user has posed.
func (s *Session) QuestionCount() int { return s.questionCount }

// Outcome returns how the session ended; empty until Concluded.
func (s *Session) Outcome() Outcome { return s.outcome }

// History returns the message history so far.
func (s *Session) History() []types.Message {
	out := make([]types.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Run starts the discussion on the opening question. The stream ends when
// the session concludes or suspends awaiting user input; resume with
// AddUserInput.
func (s *Session) Run(ctx context.Context, question string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if s.state != StateInitiating {
			yield(Event{}, fmt.Errorf("session already started (state %s)", s.state))
			return
		}
		question = strings.TrimSpace(question)
		if question == "" {
			yield(Event{}, fmt.Errorf("question is required"))
			return
		}

		s.question = question
		s.questionCount = 1
		s.appendUserMessage(question)
		if !yield(Event{Kind: EventUserMessageEcho, Message: question}, nil) {
			return
		}
		if !yield(Event{Kind: EventStatusUpdate, Status: "The circle gathers to consider the question."}, nil) {
			return
		}
		s.state = StateFirstRound
		s.drive(ctx, yield)
	}
}

// AddUserInput resumes a session suspended at RequestingUserInput.
// "conclude"/"end"/"stop" ends it; "continue" resumes unchanged; anything
// else becomes the new question.
func (s *Session) AddUserInput(ctx context.Context, input string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if s.state != StateAwaitingUserInput {
			yield(Event{}, fmt.Errorf("session is not awaiting input (state %s)", s.state))
			return
		}

		trimmed := strings.TrimSpace(input)
		switch strings.ToLower(trimmed) {
		case "conclude", "end", "stop":
			s.conclude(yield, OutcomeUserConcluded)
			return
		case "continue", "":
			if !yield(Event{Kind: EventStatusUpdate, Status: "The discussion continues."}, nil) {
				return
			}
		default:
			// A new question: advance the counter and clear the
			// anti-repetition and highlight caches.
			s.questionCount++
			s.question = trimmed
			s.spoken = make(map[string][]string)
			s.highlighted = make(map[string]bool)
			s.appendUserMessage(trimmed)
			if !yield(Event{Kind: EventUserMessageEcho, Message: trimmed}, nil) {
				return
			}
		}

		s.state = StateOngoingRound
		s.drive(ctx, yield)
	}
}

// drive advances the machine until it concludes or suspends.
func (s *Session) drive(ctx context.Context, yield func(Event, error) bool) {
	for {
		switch s.state {
		case StateFirstRound:
			if !s.firstRound(ctx, yield) {
				return
			}
		case StateOngoingRound:
			if !s.ongoingTurn(ctx, yield) {
				return
			}
		default:
			return
		}
	}
}

// firstRound lets every figure speak exactly once, in roster order, as an
// initiator. Reports false when the stream ended.
func (s *Session) firstRound(ctx context.Context, yield func(Event, error) bool) bool {
	for _, figure := range s.roster {
		natural, cont := s.takeTurn(ctx, yield, figure, RoleInitiator, "")
		if !cont {
			return false
		}
		if natural {
			s.concludeEvaluated(yield, true)
			return false
		}
		if s.turnCount >= s.settings.MaxTotalTurns {
			s.conclude(yield, OutcomeMaxTurns)
			return false
		}
	}
	s.state = StateOngoingRound
	s.lastCheckTurn = s.turnCount
	return yield(Event{Kind: EventStatusUpdate, Status: "Every voice has been heard once. The discussion opens."}, nil)
}

// ongoingTurn runs one iteration of the ongoing round. Reports false when
// the stream ended or the session suspended.
func (s *Session) ongoingTurn(ctx context.Context, yield func(Event, error) bool) bool {
	if s.settings.AllowUserInterjection &&
		s.turnCount > s.lastCheckTurn &&
		s.turnCount%s.settings.MaxTurnsBeforeCheck == 0 {
		s.lastCheckTurn = s.turnCount
		s.state = StateAwaitingUserInput
		yield(Event{Kind: EventRequestingUserInput, Status: "Share a thought, ask a new question, or say \"continue\" or \"conclude\"."}, nil)
		return false
	}

	speaker, hint, ok := SelectNextSpeaker(s.roster, s.history)
	if !ok {
		s.concludeEvaluated(yield, false)
		return false
	}

	role := AssignRole(s.turnCount, speaker)
	natural, cont := s.takeTurn(ctx, yield, speaker, role, hint)
	if !cont {
		return false
	}
	if natural {
		s.concludeEvaluated(yield, true)
		return false
	}
	if s.turnCount >= s.settings.MaxTotalTurns {
		s.conclude(yield, OutcomeMaxTurns)
		return false
	}
	return true
}

// takeTurn produces one figure turn: prompt, completion, validation with
// bounded retries, recording, history. natural reports a conclusion phrase;
// cont is false when the event stream ended or the context was cancelled.
func (s *Session) takeTurn(ctx context.Context, yield func(Event, error) bool, figure types.Figure, role DebateRole, hint string) (natural, cont bool) {
	if !yield(Event{Kind: EventCharacterSpeaking, FigureID: figure.ID, FigureName: figure.Name, Role: role}, nil) {
		return false, false
	}

	promptText, err := s.buildPrompt(ctx, figure, role, hint)
	if err != nil {
		yield(Event{}, err)
		return false, false
	}

	// Curated context travels in the prompt; the history stays empty so the
	// backend answers the instructions, not the raw transcript.
	candidate, err := s.deps.Completer.Complete(ctx, figure, nil, promptText)
	if err != nil {
		if ctx.Err() != nil {
			// Aborted turn: nothing is recorded.
			yield(Event{}, ctx.Err())
			return false, false
		}
		return false, s.placeholderTurn(yield, figure, role, err)
	}

	candidate, cont = s.validateWithRetries(ctx, yield, figure, promptText, candidate)
	if !cont {
		return false, false
	}

	s.record(ctx, figure, candidate)
	s.appendFigureMessage(figure, candidate)
	s.spoken[figure.ID] = append(s.spoken[figure.ID], candidate)
	s.turnCount++

	if !yield(Event{Kind: EventCharacterResponse, FigureID: figure.ID, FigureName: figure.Name, Role: role, Message: candidate}, nil) {
		return false, false
	}
	return ContainsConclusion(candidate), true
}

// validateWithRetries re-asks a bounded number of times, then accepts the
// last candidate: validation exhaustion is not an error.
func (s *Session) validateWithRetries(ctx context.Context, yield func(Event, error) bool, figure types.Figure, promptText, candidate string) (string, bool) {
	for attempt := 0; ; attempt++ {
		verr := s.deps.Validator.Validate(candidate, s.question, s.spoken[figure.ID])
		if verr == nil {
			return candidate, true
		}
		if attempt >= s.deps.Retries {
			slog.Debug("accepting best-effort response after retries", "figure", figure.ID, "reason", verr.Error())
			return candidate, true
		}

		retryPrompt := promptText + "\n\nYour previous reply was rejected: " + verr.Error() +
			". Say something completely different while still answering the question."
		next, err := s.deps.Completer.Complete(ctx, figure, nil, retryPrompt)
		if err != nil {
			if ctx.Err() != nil {
				yield(Event{}, ctx.Err())
				return "", false
			}
			// Keep what we have rather than fail the turn.
			slog.Warn("retry completion failed, keeping prior candidate", "figure", figure.ID, "error", err.Error())
			return candidate, true
		}
		candidate = next
	}
}

// placeholderTurn substitutes a visible pause for a failed backend call and
// keeps the session going. The placeholder joins the history but is never
// recorded as a memory.
func (s *Session) placeholderTurn(yield func(Event, error) bool, figure types.Figure, role DebateRole, cause error) bool {
	slog.Error("turn failed, substituting placeholder", "figure", figure.ID, "error", cause.Error())
	placeholder := fmt.Sprintf("%s pauses thoughtfully... (error: %v)", figure.Name, cause)
	s.appendFigureMessage(figure, placeholder)
	s.turnCount++
	return yield(Event{Kind: EventCharacterResponse, FigureID: figure.ID, FigureName: figure.Name, Role: role, Message: placeholder}, nil)
}

func (s *Session) buildPrompt(ctx context.Context, figure types.Figure, role DebateRole, hint string) (string, error) {
	intel, err := s.snapshotFor(ctx, figure.ID)
	if err != nil {
		return "", err
	}

	stances := s.deps.Retriever.RelevantStances(intel, s.question)
	fresh := stances[:0:0]
	for _, stance := range stances {
		key := figure.ID + "|" + stance.Topic
		if s.highlighted[key] {
			continue
		}
		s.highlighted[key] = true
		fresh = append(fresh, stance)
	}

	var memories []types.Memory
	for _, ranked := range s.deps.Retriever.RelevantMemories(intel, s.question) {
		memories = append(memories, ranked.Memory)
	}

	return s.deps.Prompts.Discussion(prompt.DiscussionContext{
		RoleInstruction:    role.Instruction(),
		Hint:               hint,
		Question:           s.question,
		EvolvedDescription: intel.Profile.EvolvedDescription,
		Stances:            fresh,
		Memories:           memories,
		Passages:           s.findPassages(ctx),
		Others:             s.recentOtherStatements(figure.ID),
		Own:                s.spoken[figure.ID],
	})
}

// findPassages is best effort; retrieval faults just drop the section.
func (s *Session) findPassages(ctx context.Context) []string {
	if s.deps.Passages == nil {
		return nil
	}
	if s.passagesFor == s.question {
		return s.passageCache
	}
	passages, err := s.deps.Passages.Find(ctx, s.question, s.deps.PassageLimit)
	if err != nil {
		slog.Warn("passage retrieval failed", "session", s.id, "error", err.Error())
		return nil
	}
	s.passageCache = passages
	s.passagesFor = s.question
	return passages
}

const (
	defaultPassageLimit = 3
	defaultRetries      = 2
)

// snapshotFor degrades to an empty record when the store is unavailable;
// the prompt just loses its memory sections.
func (s *Session) snapshotFor(ctx context.Context, figureID string) (*types.CharacterIntelligence, error) {
	if s.deps.Store == nil {
		return types.NewCharacterIntelligence(figureID, s.now()), nil
	}
	intel, err := s.deps.Store.Snapshot(ctx, figureID)
	if err != nil {
		slog.Warn("intelligence unavailable for prompt", "figure", figureID, "error", err.Error())
		return types.NewCharacterIntelligence(figureID, s.now()), nil
	}
	return intel, nil
}

func (s *Session) recentOtherStatements(figureID string) []prompt.Attributed {
	var collected []prompt.Attributed
	for i := len(s.history) - 1; i >= 0 && len(collected) < maxRecentOthers; i-- {
		msg := s.history[i]
		if msg.Role != "assistant" || msg.SpeakerID == figureID {
			continue
		}
		collected = append(collected, prompt.Attributed{Name: msg.SpeakerName, Content: msg.Content})
	}
	// Oldest first.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

const maxRecentOthers = 4

func (s *Session) record(ctx context.Context, figure types.Figure, response string) {
	if s.deps.Recorder == nil {
		return
	}
	var participants []intelligence.Participant
	for _, other := range s.roster {
		if other.ID == figure.ID {
			continue
		}
		participants = append(participants, intelligence.Participant{ID: other.ID, Name: other.Name})
	}
	s.deps.Recorder.RecordInteraction(ctx, intelligence.Interaction{
		CharacterID:  figure.ID,
		Kind:         types.InteractionGroupDiscussion,
		Context:      s.question,
		Response:     response,
		Participants: participants,
	})
}

// concludeEvaluated ends the session with an outcome judged from the
// transcript.
func (s *Session) concludeEvaluated(yield func(Event, error) bool, natural bool) {
	outcome := EvaluateOutcome(s.history, s.settings.SeekConsensus)
	if !natural && outcome == OutcomeConsensus {
		// Consensus requires somebody to have actually closed the loop.
		outcome = OutcomePartialAgreement
	}
	s.conclude(yield, outcome)
}

func (s *Session) conclude(yield func(Event, error) bool, outcome Outcome) {
	s.state = StateConcluded
	s.outcome = outcome

	switch outcome {
	case OutcomeConsensus:
		if !yield(Event{Kind: EventConsensusReached, Outcome: outcome, Message: outcome.Message()}, nil) {
			return
		}
	case OutcomePartialAgreement, OutcomeAgreeToDisagree:
		if !yield(Event{Kind: EventNoConsensus, Outcome: outcome, Message: outcome.Message()}, nil) {
			return
		}
	}
	yield(Event{Kind: EventDiscussionComplete, Outcome: outcome, Message: outcome.Message()}, nil)
}

func (s *Session) appendUserMessage(content string) {
	s.history = append(s.history, types.Message{
		Role:      "user",
		Content:   content,
		Timestamp: s.now(),
	})
}

func (s *Session) appendFigureMessage(figure types.Figure, content string) {
	s.history = append(s.history, types.Message{
		Role:        "assistant",
		SpeakerID:   figure.ID,
		SpeakerName: figure.Name,
		Content:     content,
		Timestamp:   s.now(),
	})
}
