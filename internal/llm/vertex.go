package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// VertexCompleter implements Completer with Gemini models on Vertex AI.
type VertexCompleter struct {
	client *genai.Client
	log    zerolog.Logger
}

// NewVertexCompleter creates a Vertex AI client for the given project and region.
func NewVertexCompleter(ctx context.Context, projectID, location string, opts ...option.ClientOption) (*VertexCompleter, error) {
	const op = "NewVertexCompleter"

	if projectID == "" || location == "" {
		return nil, NewCompletionError(op, "", 0, fmt.Errorf("%w: project and location are required", ErrMissingCredentials))
	}

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, NewCompletionError(op, "", 0, fmt.Errorf("genai.NewClient: %w", err))
	}

	return &VertexCompleter{
		client: client,
		log:    logger.WithComponent("llm-vertex"),
	}, nil
}

// Complete asks the model for application/json output constrained by the
// request schema.
func (c *VertexCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "VertexCompleter.Complete"

	model := c.client.GenerativeModel(req.Model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	if req.Schema != nil {
		model.GenerationConfig.ResponseSchema = ToGenaiSchema(req.Schema)
	}

	c.log.Debug().
		Str("model", req.Model).
		Int("prompt_length", len(req.Prompt)).
		Msg("Sending structured completion request")

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, NewCompletionError(op, req.Model, 0, err)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	content := strings.TrimSpace(responseText(resp))
	if content == "" {
		return nil, NewCompletionError(op, req.Model, tokens, ErrEmptyResponse)
	}

	return &Response{
		Text:   content,
		Tokens: tokens,
		Model:  req.Model,
	}, nil
}

// Close closes the underlying Vertex AI client.
func (c *VertexCompleter) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

// ToGenaiSchema translates the JSON Schema subset used for invoice records
// into a Vertex AI response schema. Type unions with "null" become Nullable.
func ToGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	for _, t := range schemaTypes(schema["type"]) {
		switch t {
		case "null":
			out.Nullable = true
		case "string":
			out.Type = genai.TypeString
		case "number":
			out.Type = genai.TypeNumber
		case "integer":
			out.Type = genai.TypeInteger
		case "boolean":
			out.Type = genai.TypeBoolean
		case "array":
			out.Type = genai.TypeArray
		case "object":
			out.Type = genai.TypeObject
		}
	}

	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	out.Enum = stringList(schema["enum"])
	out.Required = stringList(schema["required"])

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = ToGenaiSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = ToGenaiSchema(items)
	}

	return out
}

func schemaTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	default:
		return stringList(v)
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
