package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/prompt"
	"github.com/upperroomlabs/upperroom/internal/types"
)

const councilInstruction = "The user has brought one question before the whole council. " +
	"Give your own counsel in 3-4 sentences, speaking only for yourself."

// CouncilAnswer is one figure's counsel. Failed indicates the response is a
// placeholder for a backend fault rather than the figure's own words.
type CouncilAnswer struct {
	Figure   types.Figure
	Response string
	Failed   bool
}

// Council poses a single question to every figure at once. Unlike a
// discussion session the figures do not hear each other; answers come back
// in roster order.
type Council struct {
	roster       []types.Figure
	completer    llm.Completer
	recorder     *intelligence.Recorder
	store        *intelligence.Store
	retriever    *intelligence.Retriever
	prompts      *prompt.Builder
	passages     PassageFinder
	passageLimit int
}

// NewCouncil creates a council over the roster.
func NewCouncil(roster []types.Figure, deps Deps) (*Council, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}
	if deps.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder()
	}
	if deps.Retriever == nil {
		deps.Retriever = intelligence.NewRetriever(0)
	}
	if deps.PassageLimit <= 0 {
		deps.PassageLimit = defaultPassageLimit
	}
	return &Council{
		roster:       roster,
		completer:    deps.Completer,
		recorder:     deps.Recorder,
		store:        deps.Store,
		retriever:    deps.Retriever,
		prompts:      deps.Prompts,
		passages:     deps.Passages,
		passageLimit: deps.PassageLimit,
	}, nil
}

// Ask fans the question out to every figure concurrently and waits for all
// of them. A single figure's failure yields a placeholder answer; only
// context cancellation fails the whole call.
func (c *Council) Ask(ctx context.Context, question string) ([]CouncilAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	answers := make([]CouncilAnswer, len(c.roster))
	group, gctx := errgroup.WithContext(ctx)
	for i, figure := range c.roster {
		group.Go(func() error {
			answer, err := c.askOne(gctx, figure, question)
			if err != nil {
				return err
			}
			answers[i] = answer
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (c *Council) askOne(ctx context.Context, figure types.Figure, question string) (CouncilAnswer, error) {
	promptText, err := c.buildPrompt(ctx, figure, question)
	if err != nil {
		return CouncilAnswer{}, err
	}

	response, err := c.completer.Complete(ctx, figure, nil, promptText)
	if err != nil {
		if ctx.Err() != nil {
			return CouncilAnswer{}, ctx.Err()
		}
		slog.Error("council answer failed, substituting placeholder", "figure", figure.ID, "error", err.Error())
		return CouncilAnswer{
			Figure:   figure,
			Response: fmt.Sprintf("%s pauses thoughtfully... (error: %v)", figure.Name, err),
			Failed:   true,
		}, nil
	}

	c.record(ctx, figure, question, response)
	return CouncilAnswer{Figure: figure, Response: response}, nil
}

func (c *Council) buildPrompt(ctx context.Context, figure types.Figure, question string) (string, error) {
	intel := c.snapshotFor(ctx, figure.ID)

	var memories []types.Memory
	for _, ranked := range c.retriever.RelevantMemories(intel, question) {
		memories = append(memories, ranked.Memory)
	}

	return c.prompts.Chat(prompt.ChatContext{
		Instruction:        councilInstruction,
		UserInput:          question,
		EvolvedDescription: intel.Profile.EvolvedDescription,
		Stances:            c.retriever.RelevantStances(intel, question),
		Memories:           memories,
		Passages:           c.findPassages(ctx, question),
	})
}

// findPassages is best effort; retrieval faults just drop the section.
func (c *Council) findPassages(ctx context.Context, question string) []string {
	if c.passages == nil {
		return nil
	}
	passages, err := c.passages.Find(ctx, question, c.passageLimit)
	if err != nil {
		slog.Warn("passage retrieval failed", "error", err.Error())
		return nil
	}
	return passages
}

func (c *Council) snapshotFor(ctx context.Context, figureID string) *types.CharacterIntelligence {
	if c.store == nil {
		return types.NewCharacterIntelligence(figureID, time.Now())
	}
	intel, err := c.store.Snapshot(ctx, figureID)
	if err != nil {
		slog.Warn("intelligence unavailable for council prompt", "figure", figureID, "error", err.Error())
		return types.NewCharacterIntelligence(figureID, time.Now())
	}
	return intel
}

func (c *Council) record(ctx context.Context, figure types.Figure, question, response string) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordInteraction(ctx, intelligence.Interaction{
		CharacterID: figure.ID,
		Kind:        types.InteractionTeaching,
		Context:     question,
		UserInput:   question,
		Response:    response,
	})
}
