package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

// Describer produces the evolved personality description for a figure.
type Describer interface {
	Describe(ctx context.Context, figureName string, memories []types.Memory) (string, error)
}

const (
	synthesizerAppName = "upperroom_profile"
	synthesizerUserID  = "profile_synthesizer"
)

// describeInstruction instructs the model to return structured JSON only.
const describeInstruction = `You observe how a historical figure's voice has evolved across recorded conversations.
Given a list of the figure's most important remembered statements, write how this figure now comes across:
recurring convictions, tone, and what they keep returning to.

Output requirements:
- 2-3 sentences, third person
- Ground every observation in the provided statements, do not invent biography
- Return a valid JSON object matching the output schema
- Do not include any extra keys or text outside the JSON object`

// Synthesizer asks the text-generation collaborator for an evolved profile
// description. Each request carries its own context; conversation history
// is deliberately empty.
type Synthesizer struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	counter        uint64
}

// NewSynthesizer creates a description synthesizer over the given model.
func NewSynthesizer(llm model.LLM) (*Synthesizer, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm model is required")
	}

	llmAgent, err := llmagent.New(llmagent.Config{
		Name:            "profile_synthesizer",
		Description:     "summarizes a figure's accumulated memories into an evolved description",
		Model:           llm,
		Instruction:     describeInstruction,
		OutputSchema:    describeOutputSchema(),
		IncludeContents: llmagent.IncludeContentsNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile synthesizer agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        synthesizerAppName,
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile synthesizer runner: %w", err)
	}

	return &Synthesizer{
		agent:          llmAgent,
		runner:         r,
		sessionService: sessionService,
	}, nil
}

// Describe summarizes the given memories into a 2-3 sentence description.
func (s *Synthesizer) Describe(ctx context.Context, figureName string, memories []types.Memory) (string, error) {
	request := buildDescribeRequest(figureName, memories)
	if request == "" {
		return "", fmt.Errorf("no memories to describe")
	}

	sessionID := fmt.Sprintf("describe-%d", atomic.AddUint64(&s.counter, 1))
	msg := genai.NewContentFromText(request, "user")
	events := s.runner.Run(ctx, synthesizerUserID, sessionID, msg, agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var last string
	for event, err := range events {
		if err != nil {
			return "", err
		}
		if event == nil || event.Content == nil {
			continue
		}
		if event.Author == "user" {
			continue
		}
		text := strings.TrimSpace(utils.ExtractContentText(event.Content))
		if text == "" {
			continue
		}
		last = text
		if event.IsFinalResponse() {
			break
		}
	}
	if last == "" {
		return "", fmt.Errorf("empty description response")
	}

	return parseDescriptionJSON(last)
}

// buildDescribeRequest lays out the figure's strongest memories, newest
// signals last.
func buildDescribeRequest(figureName string, memories []types.Memory) string {
	if len(memories) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Figure: %s\n\nRemembered statements:\n", figureName)
	for _, m := range memories {
		fmt.Fprintf(&sb, "- [%s] %s\n", m.Type, truncate(m.Response, 300))
	}
	return sb.String()
}

// TopMemoriesByImportance returns up to limit memories, most important
// first, without mutating the input order.
func TopMemoriesByImportance(memories []types.Memory, limit int) []types.Memory {
	sorted := make([]types.Memory, len(memories))
	copy(sorted, memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func describeOutputSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"evolved_description": {
				Type: genai.TypeString,
			},
		},
		Required: []string{"evolved_description"},
	}
}

// parseDescriptionJSON extracts JSON from model output and decodes it.
func parseDescriptionJSON(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var output struct {
		EvolvedDescription string `json:"evolved_description"`
	}
	if err := json.Unmarshal([]byte(clean), &output); err != nil {
		return "", fmt.Errorf("failed to parse description json: %w", err)
	}
	description := strings.TrimSpace(output.EvolvedDescription)
	if description == "" {
		return "", fmt.Errorf("missing evolved description")
	}
	return description, nil
}
