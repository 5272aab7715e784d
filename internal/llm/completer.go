// Package llm defines the narrow text-generation collaborator the core
// consumes, plus an adapter over the model layer.
package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

// Completer is everything the core assumes about the text-generation
// backend.
type Completer interface {
	Complete(ctx context.Context, figure types.Figure, history []types.Message, prompt string) (string, error)
	CompleteStreaming(ctx context.Context, figure types.Figure, history []types.Message, prompt string) iter.Seq2[string, error]
}

// ModelCompleter adapts a model.LLM to the Completer shape.
type ModelCompleter struct {
	llm model.LLM
}

// NewModelCompleter returns a Completer over the given model.
func NewModelCompleter(llm model.LLM) (*ModelCompleter, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm model is required")
	}
	return &ModelCompleter{llm: llm}, nil
}

// Complete returns the full response text for a prompt.
func (c *ModelCompleter) Complete(ctx context.Context, figure types.Figure, history []types.Message, prompt string) (string, error) {
	req := buildRequest(figure, history, prompt)

	var text strings.Builder
	var callErr error
	seq := c.llm.GenerateContent(ctx, req, false)
	seq(func(resp *model.LLMResponse, err error) bool {
		if err != nil {
			callErr = err
			return false
		}
		if resp != nil {
			text.WriteString(utils.ExtractContentText(resp.Content))
		}
		return true
	})
	if callErr != nil {
		return "", fmt.Errorf("completion failed: %w", callErr)
	}

	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return result, nil
}

// CompleteStreaming yields response fragments as they arrive.
func (c *ModelCompleter) CompleteStreaming(ctx context.Context, figure types.Figure, history []types.Message, prompt string) iter.Seq2[string, error] {
	req := buildRequest(figure, history, prompt)
	return func(yield func(string, error) bool) {
		for resp, err := range c.llm.GenerateContent(ctx, req, true) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			fragment := utils.ExtractContentText(resp.Content)
			if fragment == "" {
				continue
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

func buildRequest(figure types.Figure, history []types.Message, prompt string) *model.LLMRequest {
	contents := make([]*genai.Content, 0, len(history)+2)
	contents = append(contents, genai.NewContentFromText(personaInstruction(figure), "system"))
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(prompt, "user"))
	return &model.LLMRequest{Contents: contents}
}

// personaInstruction renders a figure's fixed voice. The evolving parts of
// the persona travel in the prompt itself, not here.
func personaInstruction(figure types.Figure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s", figure.Name)
	if figure.Title != "" {
		fmt.Fprintf(&sb, ", %s", strings.ToLower(figure.Title))
	}
	if figure.Era != "" {
		fmt.Fprintf(&sb, " (%s)", figure.Era)
	}
	sb.WriteString(".\n")
	if figure.Description != "" {
		sb.WriteString(figure.Description)
		sb.WriteString("\n")
	}
	if figure.VoicePrompt != "" {
		// Stored voice prompts may carry placeholders and escaped newlines.
		sb.WriteString(utils.NormalizePromptText(figure.VoicePrompt, figure.Name, "the one before you"))
		sb.WriteString("\n")
	}
	sb.WriteString("Stay in character. Never mention being an AI or a simulation.")
	return sb.String()
}
