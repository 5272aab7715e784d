package discussion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/types"
)

// scriptedCompleter returns canned responses keyed by call number and
// records every prompt it was given. Safe for concurrent callers so the
// council can share it.
type scriptedCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	respond func(call int, figure types.Figure) (string, error)
}

var _ llm.Completer = (*scriptedCompleter)(nil)

func (c *scriptedCompleter) Complete(_ context.Context, figure types.Figure, _ []types.Message, prompt string) (string, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.respond(call, figure)
}

func (c *scriptedCompleter) CompleteStreaming(ctx context.Context, figure types.Figure, history []types.Message, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := c.Complete(ctx, figure, history, prompt)
		if err != nil {
			yield("", err)
			return
		}
		yield(text, nil)
	}
}

func neutralCompleter() *scriptedCompleter {
	return &scriptedCompleter{respond: func(call int, _ types.Figure) (string, error) {
		return fmt.Sprintf("Reflection %d upon this matter.", call), nil
	}}
}

// permissiveValidator accepts everything so flow tests exercise the state
// machine, not the content checks.
func permissiveValidator() *Validator {
	return &Validator{SimilarityCutoff: 2, TopicCoverageMin: 0, LongResponseChars: 1}
}

func flowDeps(completer llm.Completer) Deps {
	return Deps{Completer: completer, Validator: permissiveValidator()}
}

func collect(t *testing.T, seq iter.Seq2[Event, error]) []Event {
	t.Helper()
	var events []Event
	for event, err := range seq {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func collectWithError(seq iter.Seq2[Event, error]) ([]Event, error) {
	var events []Event
	var streamErr error
	for event, err := range seq {
		if err != nil {
			streamErr = err
			break
		}
		events = append(events, event)
	}
	return events, streamErr
}

func responsesOf(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == EventCharacterResponse {
			out = append(out, e)
		}
	}
	return out
}

func TestRunFirstRoundSpeaksEveryFigureOnce(t *testing.T) {
	completer := neutralCompleter()
	session, err := NewSession(testRoster(), Settings{
		MaxTotalTurns:       3,
		MaxTurnsBeforeCheck: 10,
		SeekConsensus:       true,
	}, flowDeps(completer))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	events := collect(t, session.Run(context.Background(), "What is wisdom?"))

	if events[0].Kind != EventUserMessageEcho || events[0].Message != "What is wisdom?" {
		t.Fatalf("expected user echo first, got %+v", events[0])
	}
	responses := responsesOf(events)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	wantOrder := []string{"peter", "moses", "solomon"}
	for i, r := range responses {
		if r.FigureID != wantOrder[i] {
			t.Errorf("response %d: figure = %q, want %q", i, r.FigureID, wantOrder[i])
		}
		if r.Role != RoleInitiator {
			t.Errorf("response %d: role = %q, want initiator", i, r.Role)
		}
	}
	last := events[len(events)-1]
	if last.Kind != EventDiscussionComplete || last.Outcome != OutcomeMaxTurns {
		t.Fatalf("expected max-turns completion, got %+v", last)
	}
	if session.State() != StateConcluded {
		t.Fatalf("state = %q, want concluded", session.State())
	}
	if session.TurnCount() != 3 || session.QuestionCount() != 1 {
		t.Fatalf("turns = %d, questions = %d", session.TurnCount(), session.QuestionCount())
	}
}

func TestRunRejectsEmptyQuestionAndRestart(t *testing.T) {
	session, err := NewSession(testRoster(), DefaultSettings(), flowDeps(neutralCompleter()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := collectWithError(session.Run(context.Background(), "   ")); err == nil {
		t.Fatal("expected error for empty question")
	}

	session2, _ := NewSession(testRoster(), Settings{MaxTotalTurns: 3, MaxTurnsBeforeCheck: 10}, flowDeps(neutralCompleter()))
	collect(t, session2.Run(context.Background(), "What is wisdom?"))
	if _, err := collectWithError(session2.Run(context.Background(), "again?")); err == nil {
		t.Fatal("expected error for second Run")
	}
}

func TestInterjectionCadenceAndNewQuestion(t *testing.T) {
	completer := neutralCompleter()
	session, err := NewSession(testRoster(), Settings{
		MaxTotalTurns:         12,
		MaxTurnsBeforeCheck:   3,
		AllowUserInterjection: true,
		SeekConsensus:         true,
	}, flowDeps(completer))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ctx := context.Background()

	events := collect(t, session.Run(ctx, "What is forgiveness?"))
	last := events[len(events)-1]
	if last.Kind != EventRequestingUserInput {
		t.Fatalf("expected suspension, got %+v", last)
	}
	if session.State() != StateAwaitingUserInput {
		t.Fatalf("state = %q, want awaiting input", session.State())
	}
	if session.TurnCount() != 6 {
		t.Fatalf("turns before first check = %d, want 6", session.TurnCount())
	}
	if got := len(responsesOf(events)); got != 6 {
		t.Fatalf("responses = %d, want 6", got)
	}

	spokenBefore := len(session.spoken["peter"])
	events = collect(t, session.AddUserInput(ctx, "continue"))
	if events[len(events)-1].Kind != EventRequestingUserInput {
		t.Fatalf("expected second suspension, got %+v", events[len(events)-1])
	}
	if session.TurnCount() != 9 {
		t.Fatalf("turns after continue = %d, want 9", session.TurnCount())
	}
	if session.QuestionCount() != 1 {
		t.Fatalf("continue must not change question count, got %d", session.QuestionCount())
	}
	if got := len(responsesOf(events)); got != 3 {
		t.Fatalf("responses after continue = %d, want 3", got)
	}
	if len(session.spoken["peter"]) < spokenBefore {
		t.Fatal("continue must preserve anti-repetition memory")
	}

	events = events[:0]
	for event, err := range session.AddUserInput(ctx, "What of mercy?") {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if event.Kind == EventUserMessageEcho && len(session.spoken) != 0 {
			t.Fatal("a new question must clear anti-repetition memory before the next turn")
		}
		events = append(events, event)
	}
	if events[0].Kind != EventUserMessageEcho || events[0].Message != "What of mercy?" {
		t.Fatalf("expected new question echo, got %+v", events[0])
	}
	if session.QuestionCount() != 2 {
		t.Fatalf("question count = %d, want 2", session.QuestionCount())
	}
	last = events[len(events)-1]
	if last.Kind != EventDiscussionComplete || last.Outcome != OutcomeMaxTurns {
		t.Fatalf("expected max-turns completion, got %+v", last)
	}
	if session.TurnCount() != 12 {
		t.Fatalf("final turns = %d, want 12", session.TurnCount())
	}
	if session.State() != StateConcluded {
		t.Fatalf("state = %q, want concluded", session.State())
	}
}

func suspendedSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession(testRoster(), Settings{
		MaxTotalTurns:         12,
		MaxTurnsBeforeCheck:   3,
		AllowUserInterjection: true,
	}, flowDeps(neutralCompleter()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	collect(t, session.Run(context.Background(), "What is forgiveness?"))
	if session.State() != StateAwaitingUserInput {
		t.Fatalf("setup: state = %q", session.State())
	}
	return session
}

func TestAddUserInputConcludeCommand(t *testing.T) {
	session := suspendedSession(t)

	events := collect(t, session.AddUserInput(context.Background(), "End"))
	if len(events) != 1 || events[0].Kind != EventDiscussionComplete {
		t.Fatalf("expected a single completion event, got %+v", events)
	}
	if events[0].Outcome != OutcomeUserConcluded {
		t.Fatalf("outcome = %q, want user_concluded", events[0].Outcome)
	}
	if session.State() != StateConcluded || session.Outcome() != OutcomeUserConcluded {
		t.Fatalf("state = %q, outcome = %q", session.State(), session.Outcome())
	}
}

func TestAddUserInputRequiresSuspendedSession(t *testing.T) {
	session, err := NewSession(testRoster(), DefaultSettings(), flowDeps(neutralCompleter()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := collectWithError(session.AddUserInput(context.Background(), "continue")); err == nil {
		t.Fatal("expected error when session is not awaiting input")
	}
}

func TestBackendFaultSubstitutesPlaceholder(t *testing.T) {
	completer := &scriptedCompleter{respond: func(call int, _ types.Figure) (string, error) {
		if call == 2 {
			return "", errors.New("model down")
		}
		return fmt.Sprintf("Reflection %d upon this matter.", call), nil
	}}
	store := intelligence.NewStore(nil)
	deps := flowDeps(completer)
	deps.Store = store
	deps.Recorder = intelligence.NewRecorder(store, nil, nil, 0, 0)

	session, err := NewSession(testRoster(), Settings{MaxTotalTurns: 3, MaxTurnsBeforeCheck: 10}, deps)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	events := collect(t, session.Run(context.Background(), "What is wisdom?"))

	responses := responsesOf(events)
	if len(responses) != 3 {
		t.Fatalf("responses = %d, want 3 (placeholder counts as a turn)", len(responses))
	}
	placeholder := responses[1]
	if placeholder.FigureID != "moses" {
		t.Fatalf("placeholder figure = %q, want moses", placeholder.FigureID)
	}
	if !strings.Contains(placeholder.Message, "pauses thoughtfully") {
		t.Fatalf("placeholder message = %q", placeholder.Message)
	}
	if session.State() != StateConcluded {
		t.Fatalf("session should survive the fault, state = %q", session.State())
	}

	ctx := context.Background()
	peter, _ := store.Snapshot(ctx, "peter")
	if len(peter.Memories) != 1 {
		t.Fatalf("peter memories = %d, want 1", len(peter.Memories))
	}
	moses, _ := store.Snapshot(ctx, "moses")
	if len(moses.Memories) != 0 {
		t.Fatalf("placeholder must not be recorded, got %d memories", len(moses.Memories))
	}
}

func TestValidationRetryReplacesRejectedResponse(t *testing.T) {
	accepted := "Forgiveness between brothers begins with humility and grows through patient love."
	completer := &scriptedCompleter{respond: func(call int, _ types.Figure) (string, error) {
		if call == 1 {
			return "No.", nil
		}
		return accepted, nil
	}}
	roster := []types.Figure{{ID: "peter", Name: "Peter", Title: "Apostle"}}
	session, err := NewSession(roster, Settings{MaxTotalTurns: 1, MaxTurnsBeforeCheck: 10}, Deps{
		Completer: completer,
		Validator: NewValidator(),
		Retries:   1,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	events := collect(t, session.Run(context.Background(), "How should brothers practice forgiveness?"))

	if completer.calls != 2 {
		t.Fatalf("completer calls = %d, want 2", completer.calls)
	}
	if !strings.Contains(completer.prompts[1], "completely different") {
		t.Fatalf("retry prompt missing rejection notice: %q", completer.prompts[1])
	}
	responses := responsesOf(events)
	if len(responses) != 1 || responses[0].Message != accepted {
		t.Fatalf("expected the regenerated response, got %+v", responses)
	}
	if session.TurnCount() != 1 {
		t.Fatalf("turns = %d, want 1", session.TurnCount())
	}
}

func TestValidationExhaustionAcceptsBestEffort(t *testing.T) {
	completer := &scriptedCompleter{respond: func(int, types.Figure) (string, error) {
		return "No.", nil
	}}
	roster := []types.Figure{{ID: "peter", Name: "Peter", Title: "Apostle"}}
	session, err := NewSession(roster, Settings{MaxTotalTurns: 1, MaxTurnsBeforeCheck: 10}, Deps{
		Completer: completer,
		Validator: NewValidator(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if session.deps.Retries != 2 {
		t.Fatalf("default retries = %d, want 2", session.deps.Retries)
	}

	events := collect(t, session.Run(context.Background(), "How should brothers practice forgiveness?"))

	if completer.calls != 3 {
		t.Fatalf("completer calls = %d, want 3", completer.calls)
	}
	responses := responsesOf(events)
	if len(responses) != 1 || responses[0].Message != "No." {
		t.Fatalf("expected the rejected response accepted as-is, got %+v", responses)
	}
}

func TestNaturalConclusionReachesConsensus(t *testing.T) {
	completer := &scriptedCompleter{respond: func(int, types.Figure) (string, error) {
		return "We are agreed; in conclusion, mercy triumphs over judgment.", nil
	}}
	session, err := NewSession(testRoster(), Settings{MaxTotalTurns: 12, MaxTurnsBeforeCheck: 10, SeekConsensus: true}, flowDeps(completer))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	events := collect(t, session.Run(context.Background(), "What is mercy?"))

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	if kinds[len(kinds)-2] != EventConsensusReached || kinds[len(kinds)-1] != EventDiscussionComplete {
		t.Fatalf("expected consensus then completion, got %v", kinds)
	}
	if session.Outcome() != OutcomeConsensus {
		t.Fatalf("outcome = %q, want consensus", session.Outcome())
	}
	if session.TurnCount() != 1 {
		t.Fatalf("turns = %d, want 1 (first speaker closed the loop)", session.TurnCount())
	}
}

type stubFinder struct {
	passages []string
	calls    int
}

func (f *stubFinder) Find(_ context.Context, _ string, _ int) ([]string, error) {
	f.calls++
	return f.passages, nil
}

func TestPassagesMemoizedPerQuestion(t *testing.T) {
	finder := &stubFinder{passages: []string{"Blessed are the merciful. (Matthew 5:7)"}}
	completer := neutralCompleter()
	deps := flowDeps(completer)
	deps.Passages = finder

	session, err := NewSession(testRoster(), Settings{MaxTotalTurns: 3, MaxTurnsBeforeCheck: 10}, deps)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	collect(t, session.Run(context.Background(), "What is mercy?"))

	if finder.calls != 1 {
		t.Fatalf("finder calls = %d, want 1 (memoized per question)", finder.calls)
	}
	for i, p := range completer.prompts {
		if !strings.Contains(p, "(Matthew 5:7)") {
			t.Fatalf("prompt %d missing passage:\n%s", i, p)
		}
	}
}

func TestCancelledContextStopsWithoutRecording(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := &scriptedCompleter{respond: func(int, types.Figure) (string, error) {
		return "", context.Canceled
	}}
	store := intelligence.NewStore(nil)
	deps := flowDeps(completer)
	deps.Store = store
	deps.Recorder = intelligence.NewRecorder(store, nil, nil, 0, 0)

	session, err := NewSession(testRoster(), DefaultSettings(), deps)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	_, streamErr := collectWithError(session.Run(ctx, "What is wisdom?"))
	if streamErr == nil {
		t.Fatal("expected a stream error on cancellation")
	}
	if session.State() == StateConcluded {
		t.Fatal("cancellation must not conclude the session")
	}
	peter, _ := store.Snapshot(context.Background(), "peter")
	if len(peter.Memories) != 0 {
		t.Fatalf("aborted turn must not be recorded, got %d memories", len(peter.Memories))
	}
}
