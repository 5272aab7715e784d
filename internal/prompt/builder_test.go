package prompt

import (
	"strings"
	"testing"

	"github.com/upperroomlabs/upperroom/internal/types"
)

func TestDiscussionRendersAllSections(t *testing.T) {
	b := NewBuilder()
	text, err := b.Discussion(DiscussionContext{
		RoleInstruction:    "Open the discussion.",
		Hint:               "answer the question asked of you",
		Question:           "What is wisdom?",
		EvolvedDescription: "Speaks boldly, often from personal failure.",
		Stances: []types.TopicStance{
			{Topic: "faith works", Position: "Faith must show itself in action."},
		},
		Memories: []types.Memory{
			{Response: "I once said the Lord restores what we break."},
		},
		Passages: []string{"Fear of the Lord is the beginning of wisdom. (Proverbs 9:10)"},
		Others:   []Attributed{{Name: "Moses", Content: "The law is a lamp."}},
		Own:      []string{"Wisdom begins in listening."},
	})
	if err != nil {
		t.Fatalf("Discussion: %v", err)
	}

	for _, want := range []string{
		"Open the discussion.",
		"Approach: answer the question asked of you.",
		"What is wisdom?",
		"Speaks boldly, often from personal failure.",
		"- On faith works: Faith must show itself in action.",
		"- I once said the Lord restores what we break.",
		"- Fear of the Lord is the beginning of wisdom. (Proverbs 9:10)",
		"Moses: The law is a lamp.",
		"DO NOT REPEAT",
		"- Wisdom begins in listening.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q\n%s", want, text)
		}
	}
}

func TestDiscussionOmitsEmptySections(t *testing.T) {
	b := NewBuilder()
	text, err := b.Discussion(DiscussionContext{
		RoleInstruction: "Open the discussion.",
		Question:        "What is wisdom?",
	})
	if err != nil {
		t.Fatalf("Discussion: %v", err)
	}

	for _, header := range []string{
		"Approach:",
		"[Positions you have taken before]",
		"[What you have said on this subject before]",
		"[Passages that may bear on the question]",
		"[What the others have just said]",
		"DO NOT REPEAT",
	} {
		if strings.Contains(text, header) {
			t.Errorf("empty section %q should be omitted\n%s", header, text)
		}
	}
}

func TestDiscussionRequiresQuestion(t *testing.T) {
	if _, err := NewBuilder().Discussion(DiscussionContext{Question: "  "}); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestDiscussionCapsOtherStatements(t *testing.T) {
	others := []Attributed{
		{Name: "A", Content: "first"},
		{Name: "B", Content: "second"},
		{Name: "C", Content: "third"},
		{Name: "D", Content: "fourth"},
		{Name: "E", Content: "fifth"},
		{Name: "F", Content: "sixth"},
	}
	text, err := NewBuilder().Discussion(DiscussionContext{
		RoleInstruction: "Open the discussion.",
		Question:        "What is wisdom?",
		Others:          others,
	})
	if err != nil {
		t.Fatalf("Discussion: %v", err)
	}

	if strings.Contains(text, "A: first") || strings.Contains(text, "B: second") {
		t.Fatalf("oldest statements should be dropped\n%s", text)
	}
	for _, want := range []string{"C: third", "F: sixth"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDiscussionTruncatesLongStatements(t *testing.T) {
	long := strings.Repeat("wisdom is precious ", 30)
	text, err := NewBuilder().Discussion(DiscussionContext{
		RoleInstruction: "Open the discussion.",
		Question:        "What is wisdom?",
		Others:          []Attributed{{Name: "Moses", Content: long}},
	})
	if err != nil {
		t.Fatalf("Discussion: %v", err)
	}
	if strings.Contains(text, long) {
		t.Fatal("long statement should be truncated")
	}
	if !strings.Contains(text, "...") {
		t.Fatal("truncated statement should carry an ellipsis")
	}
}

func TestChatRendersSections(t *testing.T) {
	text, err := NewBuilder().Chat(ChatContext{
		Instruction:        "Answer with pastoral warmth.",
		UserInput:          "How do I forgive my brother?",
		EvolvedDescription: "Gentle with the penitent.",
		Memories:           []types.Memory{{Response: "We spoke of mercy last time."}},
		Passages:           []string{"Forgive, and you will be forgiven. (Luke 6:37)"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	for _, want := range []string{
		"Answer with pastoral warmth.",
		"Gentle with the penitent.",
		"- We spoke of mercy last time.",
		"- Forgive, and you will be forgiven. (Luke 6:37)",
		"[They say to you]",
		"How do I forgive my brother?",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q\n%s", want, text)
		}
	}
}

func TestChatRequiresUserInput(t *testing.T) {
	if _, err := NewBuilder().Chat(ChatContext{UserInput: ""}); err == nil {
		t.Fatal("expected error for empty user input")
	}
}
