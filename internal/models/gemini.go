package models

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// geminiModel serves chat through the Gemini API directly.
type geminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini-backed chat model.
func NewGeminiModel(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiModel{client: client, name: modelName}, nil
}

func (m *geminiModel) Name() string {
	return m.name
}

func (m *geminiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	liftSystemContents(req)
	maybeAppendUserContent(req)

	name := req.Model
	if name == "" {
		name = m.name
	}

	if stream {
		return m.generateStream(ctx, name, req)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.client.Models.GenerateContent(ctx, name, req.Contents, req.Config)
		if err != nil {
			slog.Error("failed to call gemini API", "error", err.Error())
			yield(nil, fmt.Errorf("failed to call gemini API: %w", err))
			return
		}
		yield(toLLMResponse(resp, false), nil)
	}
}

func (m *geminiModel) generateStream(ctx context.Context, name string, req *model.LLMRequest) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		for resp, err := range m.client.Models.GenerateContentStream(ctx, name, req.Contents, req.Config) {
			if err != nil {
				slog.Error("failed to stream gemini API", "error", err.Error())
				yield(nil, fmt.Errorf("stream error: %w", err))
				return
			}
			if !yield(toLLMResponse(resp, true), nil) {
				return
			}
		}
		// Terminal marker; the stream itself carries no finish signal here.
		yield(&model.LLMResponse{
			Content:      &genai.Content{Role: "model"},
			TurnComplete: true,
		}, nil)
	}
}

// liftSystemContents moves system-role contents into the config's system
// instruction; the Gemini API rejects them inside the transcript.
func liftSystemContents(req *model.LLMRequest) {
	var rest []*genai.Content
	var system []string
	for _, content := range req.Contents {
		if content != nil && content.Role == "system" {
			for _, part := range content.Parts {
				if part != nil && part.Text != "" {
					system = append(system, part.Text)
				}
			}
			continue
		}
		rest = append(rest, content)
	}
	if len(system) == 0 {
		return
	}
	req.Contents = rest
	if req.Config == nil {
		req.Config = &genai.GenerateContentConfig{}
	}
	if req.Config.SystemInstruction == nil {
		req.Config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), "system")
	}
}

func toLLMResponse(resp *genai.GenerateContentResponse, partial bool) *model.LLMResponse {
	out := &model.LLMResponse{
		Content:      &genai.Content{Role: "model"},
		Partial:      partial,
		TurnComplete: !partial,
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	out.Content = resp.Candidates[0].Content
	if out.Content.Role == "" {
		out.Content.Role = "model"
	}
	return out
}
