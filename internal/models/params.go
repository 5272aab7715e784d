package models

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// buildChatParams converts an adk request to OpenAI chat parameters.
func buildChatParams(req *model.LLMRequest, defaultModel string) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.Model == "" {
		params.Model = defaultModel
	}

	messages := convertContentsToMessages(req)
	if len(messages) > 0 {
		params.Messages = messages
	}

	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.Config.MaxOutputTokens))
		}
		if req.Config.TopP != nil {
			params.TopP = openai.Float(float64(*req.Config.TopP))
		}
		if req.Config.ResponseSchema != nil {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   "response",
						Schema: toJSONSchema(req.Config.ResponseSchema),
						Strict: openai.Bool(true),
					},
				},
			}
		}
	}

	return &params
}

// toJSONSchema converts a genai schema into standard JSON Schema form.
func toJSONSchema(schema *genai.Schema) *jsonschema.Schema {
	if schema == nil {
		return nil
	}

	out := &jsonschema.Schema{
		Type:        jsonSchemaType(schema.Type),
		Description: schema.Description,
		Format:      schema.Format,
		Required:    schema.Required,
	}

	if len(schema.Enum) > 0 {
		out.Enum = make([]any, 0, len(schema.Enum))
		for _, v := range schema.Enum {
			out.Enum = append(out.Enum, v)
		}
	}
	if schema.Items != nil {
		out.Items = toJSONSchema(schema.Items)
	}
	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			out.Properties[name] = toJSONSchema(prop)
		}
	}

	return out
}

func jsonSchemaType(t genai.Type) string {
	switch t {
	case genai.TypeString:
		return "string"
	case genai.TypeNumber:
		return "number"
	case genai.TypeInteger:
		return "integer"
	case genai.TypeBoolean:
		return "boolean"
	case genai.TypeArray:
		return "array"
	case genai.TypeObject:
		return "object"
	default:
		return "object"
	}
}

// convertContentsToMessages flattens genai contents into OpenAI messages.
// A system instruction on the config leads the transcript.
func convertContentsToMessages(req *model.LLMRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := contentText(req.Config.SystemInstruction); text != "" {
			messages = append(messages, openai.SystemMessage(text))
		}
	}

	for _, content := range req.Contents {
		text := contentText(content)
		switch content.Role {
		case "user":
			messages = append(messages, openai.UserMessage(text))
		case "model":
			messages = append(messages, openai.AssistantMessage(text))
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}

	return messages
}

func contentText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
