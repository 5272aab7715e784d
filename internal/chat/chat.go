// Package chat holds one-on-one conversations between the user and a single
// figure, feeding every exchange back into the figure's accumulated record.
package chat

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/prompt"
	"github.com/upperroomlabs/upperroom/internal/types"
)

const (
	chatInstruction = "Answer the user personally, in 2-4 sentences, as yourself."

	// historyWindow bounds how much transcript rides along with each turn.
	historyWindow = 20

	defaultPassageLimit = 3
)

// PassageFinder retrieves scripture passages relevant to a query. It is
// optional; without one, prompts simply omit the passages section.
type PassageFinder interface {
	Find(ctx context.Context, query string, limit int) ([]string, error)
}

// Deps are the optional collaborators a Service consumes. A nil Recorder
// skips memory writes; a nil Store degrades prompts to the persona alone.
type Deps struct {
	Recorder  *intelligence.Recorder
	Store     *intelligence.Store
	Retriever *intelligence.Retriever
	// Passages is optional; without it prompts omit the passages section.
	Passages     PassageFinder
	PassageLimit int
}

// Service builds conversations over a shared backend and intelligence store.
type Service struct {
	completer    llm.Completer
	recorder     *intelligence.Recorder
	store        *intelligence.Store
	retriever    *intelligence.Retriever
	prompts      *prompt.Builder
	passages     PassageFinder
	passageLimit int
}

// NewService creates a chat service.
func NewService(completer llm.Completer, deps Deps) (*Service, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if deps.Retriever == nil {
		deps.Retriever = intelligence.NewRetriever(0)
	}
	if deps.PassageLimit <= 0 {
		deps.PassageLimit = defaultPassageLimit
	}
	return &Service{
		completer:    completer,
		recorder:     deps.Recorder,
		store:        deps.Store,
		retriever:    deps.Retriever,
		prompts:      prompt.NewBuilder(),
		passages:     deps.Passages,
		passageLimit: deps.PassageLimit,
	}, nil
}

// Conversation is one running exchange with a single figure. Not safe for
// concurrent use.
type Conversation struct {
	service *Service
	figure  types.Figure
	history []types.Message
}

// NewConversation starts a conversation with the figure.
func (s *Service) NewConversation(figure types.Figure) *Conversation {
	return &Conversation{service: s, figure: figure}
}

// History returns the transcript so far.
func (c *Conversation) History() []types.Message {
	out := make([]types.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Send submits one user message and returns the figure's full reply.
func (c *Conversation) Send(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	promptText, err := c.buildPrompt(ctx, input)
	if err != nil {
		return "", err
	}

	response, err := c.service.completer.Complete(ctx, c.figure, c.window(), promptText)
	if err != nil {
		return "", fmt.Errorf("complete chat turn: %w", err)
	}

	c.finish(ctx, input, response)
	return response, nil
}

// SendStreaming submits one user message and streams the reply in fragments.
// The exchange is committed to history and recorded only after the stream
// completes and is fully consumed.
func (c *Conversation) SendStreaming(ctx context.Context, input string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		input = strings.TrimSpace(input)
		promptText, err := c.buildPrompt(ctx, input)
		if err != nil {
			yield("", err)
			return
		}

		var full strings.Builder
		for fragment, err := range c.service.completer.CompleteStreaming(ctx, c.figure, c.window(), promptText) {
			if err != nil {
				yield("", fmt.Errorf("stream chat turn: %w", err))
				return
			}
			full.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}
		if full.Len() == 0 {
			yield("", fmt.Errorf("stream chat turn: empty response"))
			return
		}

		c.finish(ctx, input, full.String())
	}
}

// ClassifyKind maps a user message onto the kind of exchange it opens.
func ClassifyKind(input string) types.InteractionType {
	lowered := strings.ToLower(input)
	switch {
	case strings.Contains(lowered, "pray"):
		return types.InteractionPrayer
	case strings.Contains(lowered, "teach me"),
		strings.Contains(lowered, "explain"),
		strings.Contains(lowered, "what does") && strings.Contains(lowered, "mean"):
		return types.InteractionTeaching
	default:
		return types.InteractionChat
	}
}

func (c *Conversation) buildPrompt(ctx context.Context, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("input is required")
	}

	intel := c.snapshot(ctx)

	var memories []types.Memory
	for _, ranked := range c.service.retriever.RelevantMemories(intel, input) {
		memories = append(memories, ranked.Memory)
	}

	return c.service.prompts.Chat(prompt.ChatContext{
		Instruction:        chatInstruction,
		UserInput:          input,
		EvolvedDescription: intel.Profile.EvolvedDescription,
		Stances:            c.service.retriever.RelevantStances(intel, input),
		Memories:           memories,
		Passages:           c.findPassages(ctx, input),
	})
}

func (c *Conversation) snapshot(ctx context.Context) *types.CharacterIntelligence {
	if c.service.store == nil {
		return types.NewCharacterIntelligence(c.figure.ID, time.Now())
	}
	intel, err := c.service.store.Snapshot(ctx, c.figure.ID)
	if err != nil {
		slog.Warn("intelligence unavailable for chat prompt", "figure", c.figure.ID, "error", err.Error())
		return types.NewCharacterIntelligence(c.figure.ID, time.Now())
	}
	return intel
}

// findPassages is best effort; retrieval faults just drop the section.
func (c *Conversation) findPassages(ctx context.Context, input string) []string {
	if c.service.passages == nil {
		return nil
	}
	passages, err := c.service.passages.Find(ctx, input, c.service.passageLimit)
	if err != nil {
		slog.Warn("passage retrieval failed", "figure", c.figure.ID, "error", err.Error())
		return nil
	}
	return passages
}

// finish commits a completed exchange: history first, then recording.
func (c *Conversation) finish(ctx context.Context, input, response string) {
	now := time.Now()
	c.history = append(c.history,
		types.Message{Role: "user", Content: input, Timestamp: now},
		types.Message{
			Role:        "assistant",
			SpeakerID:   c.figure.ID,
			SpeakerName: c.figure.Name,
			Content:     response,
			Timestamp:   now,
		},
	)

	if c.service.recorder == nil {
		return
	}
	c.service.recorder.RecordInteraction(ctx, intelligence.Interaction{
		CharacterID: c.figure.ID,
		Kind:        ClassifyKind(input),
		Context:     input,
		UserInput:   input,
		Response:    response,
	})
}

func (c *Conversation) window() []types.Message {
	if len(c.history) <= historyWindow {
		return c.history
	}
	return c.history[len(c.history)-historyWindow:]
}
