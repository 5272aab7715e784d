package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/types"
)

func TestCouncilAnswersInRosterOrder(t *testing.T) {
	completer := &scriptedCompleter{respond: func(_ int, figure types.Figure) (string, error) {
		return fmt.Sprintf("Counsel from %s.", figure.Name), nil
	}}
	store := intelligence.NewStore(nil)
	deps := flowDeps(completer)
	deps.Store = store
	deps.Recorder = intelligence.NewRecorder(store, nil, nil, 0, 0)

	council, err := NewCouncil(testRoster(), deps)
	if err != nil {
		t.Fatalf("NewCouncil: %v", err)
	}
	ctx := context.Background()

	answers, err := council.Ask(ctx, "What is wisdom?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("answers = %d, want 3", len(answers))
	}
	for i, figure := range testRoster() {
		if answers[i].Figure.ID != figure.ID {
			t.Errorf("answer %d: figure = %q, want %q", i, answers[i].Figure.ID, figure.ID)
		}
		if answers[i].Failed {
			t.Errorf("answer %d unexpectedly failed", i)
		}
		want := fmt.Sprintf("Counsel from %s.", figure.Name)
		if answers[i].Response != want {
			t.Errorf("answer %d: response = %q, want %q", i, answers[i].Response, want)
		}
	}

	intel, err := store.Snapshot(ctx, "moses")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(intel.Memories) != 1 {
		t.Fatalf("memories = %d, want 1", len(intel.Memories))
	}
	if intel.Memories[0].Type != types.InteractionTeaching {
		t.Fatalf("memory type = %q, want teaching", intel.Memories[0].Type)
	}
	if intel.Memories[0].UserInput != "What is wisdom?" {
		t.Fatalf("memory user input = %q", intel.Memories[0].UserInput)
	}
	if intel.Memories[0].Context != "What is wisdom?" {
		t.Fatalf("memory context = %q, want the question itself", intel.Memories[0].Context)
	}
	if _, ok := intel.Stances["wisdom"]; !ok {
		t.Fatalf("expected a stance keyed by the question topic, have %v", intel.Stances)
	}
}

func TestCouncilSingleFailureYieldsPlaceholder(t *testing.T) {
	completer := &scriptedCompleter{respond: func(_ int, figure types.Figure) (string, error) {
		if figure.ID == "moses" {
			return "", errors.New("model down")
		}
		return fmt.Sprintf("Counsel from %s.", figure.Name), nil
	}}
	council, err := NewCouncil(testRoster(), flowDeps(completer))
	if err != nil {
		t.Fatalf("NewCouncil: %v", err)
	}

	answers, err := council.Ask(context.Background(), "What is wisdom?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !answers[1].Failed {
		t.Fatal("expected the moses answer to be marked failed")
	}
	if !strings.Contains(answers[1].Response, "pauses thoughtfully") {
		t.Fatalf("placeholder response = %q", answers[1].Response)
	}
	for _, i := range []int{0, 2} {
		if answers[i].Failed {
			t.Errorf("answer %d should not be failed", i)
		}
	}
}

func TestCouncilRejectsEmptyQuestion(t *testing.T) {
	council, err := NewCouncil(testRoster(), flowDeps(neutralCompleter()))
	if err != nil {
		t.Fatalf("NewCouncil: %v", err)
	}
	if _, err := council.Ask(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestCouncilCancelledContextFailsWholeCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := &scriptedCompleter{respond: func(int, types.Figure) (string, error) {
		return "", context.Canceled
	}}
	council, err := NewCouncil(testRoster(), flowDeps(completer))
	if err != nil {
		t.Fatalf("NewCouncil: %v", err)
	}
	if _, err := council.Ask(ctx, "What is wisdom?"); err == nil {
		t.Fatal("expected error when the context is cancelled")
	}
}
