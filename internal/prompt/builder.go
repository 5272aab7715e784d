// Package prompt assembles layered prompts for discussion turns and chat.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
)

const (
	maxOtherStatements = 4
	statementTruncate  = 280
)

// Attributed is another speaker's statement with its name.
type Attributed struct {
	Name    string
	Content string
}

// DiscussionContext contains all inputs for a discussion-turn prompt.
type DiscussionContext struct {
	RoleInstruction    string
	Hint               string
	Question           string
	EvolvedDescription string
	Stances            []types.TopicStance
	Memories           []types.Memory
	Passages           []string
	// Others are the most recent statements by other figures.
	Others []Attributed
	// Own are the speaker's prior statements this session, marked
	// do-not-repeat in the rendered prompt.
	Own []string
}

// ChatContext contains all inputs for a one-on-one prompt.
type ChatContext struct {
	Instruction        string
	UserInput          string
	EvolvedDescription string
	Stances            []types.TopicStance
	Memories           []types.Memory
	Passages           []string
}

// Builder renders prompt templates.
type Builder struct{}

// NewBuilder returns a prompt Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Discussion renders a role- and history-aware turn prompt.
func (b *Builder) Discussion(ctx DiscussionContext) (string, error) {
	if strings.TrimSpace(ctx.Question) == "" {
		return "", fmt.Errorf("question is required")
	}

	others := ctx.Others
	if len(others) > maxOtherStatements {
		others = others[len(others)-maxOtherStatements:]
	}

	data := struct {
		RoleInstruction    string
		Hint               string
		Question           string
		EvolvedDescription string
		Stances            []types.TopicStance
		Memories           []string
		Passages           []string
		Others             []Attributed
		Own                []string
	}{
		RoleInstruction:    ctx.RoleInstruction,
		Hint:               ctx.Hint,
		Question:           ctx.Question,
		EvolvedDescription: ctx.EvolvedDescription,
		Stances:            ctx.Stances,
		Memories:           memoryLines(ctx.Memories),
		Passages:           ctx.Passages,
		Others:             truncateAttributed(others),
		Own:                truncateAll(ctx.Own),
	}

	var buf bytes.Buffer
	if err := discussionTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build discussion prompt: %w", err)
	}
	return buf.String(), nil
}

// Chat renders a one-on-one prompt.
func (b *Builder) Chat(ctx ChatContext) (string, error) {
	if strings.TrimSpace(ctx.UserInput) == "" {
		return "", fmt.Errorf("user input is required")
	}

	data := struct {
		Instruction        string
		UserInput          string
		EvolvedDescription string
		Stances            []types.TopicStance
		Memories           []string
		Passages           []string
	}{
		Instruction:        ctx.Instruction,
		UserInput:          ctx.UserInput,
		EvolvedDescription: ctx.EvolvedDescription,
		Stances:            ctx.Stances,
		Memories:           memoryLines(ctx.Memories),
		Passages:           ctx.Passages,
	}

	var buf bytes.Buffer
	if err := chatTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build chat prompt: %w", err)
	}
	return buf.String(), nil
}

func memoryLines(memories []types.Memory) []string {
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lines = append(lines, truncateText(m.Response, statementTruncate))
	}
	return lines
}

func truncateAttributed(in []Attributed) []Attributed {
	out := make([]Attributed, len(in))
	for i, a := range in {
		out[i] = Attributed{Name: a.Name, Content: truncateText(a.Content, statementTruncate)}
	}
	return out
}

func truncateAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = truncateText(s, statementTruncate)
	}
	return out
}

func truncateText(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
