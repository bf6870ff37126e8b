package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// schemaDoc lets a plain schema map satisfy json.Marshaler for the
// response_format payload.
type schemaDoc map[string]any

func (s schemaDoc) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

// OpenAICompleter implements Completer with OpenAI chat completions.
type OpenAICompleter struct {
	client *openai.Client
	log    zerolog.Logger
}

// NewOpenAICompleter creates a completer authenticated with apiKey.
func NewOpenAICompleter(apiKey string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, NewCompletionError("NewOpenAICompleter", "", 0, ErrMissingCredentials)
	}
	return NewOpenAICompleterWithClient(openai.NewClient(apiKey)), nil
}

// NewOpenAICompleterWithClient creates a completer with an explicit client (for testing).
func NewOpenAICompleterWithClient(client *openai.Client) *OpenAICompleter {
	return &OpenAICompleter{
		client: client,
		log:    logger.WithComponent("llm-openai"),
	}
}

// Complete sends a strict json_schema chat completion. Temperature is left
// at the provider default since some models reject any other value.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "OpenAICompleter.Complete"

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schemaDoc(req.Schema),
				Strict: true,
			},
		}
	}

	c.log.Debug().
		Str("model", req.Model).
		Int("prompt_length", len(req.Prompt)).
		Msg("Sending structured completion request")

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, NewCompletionError(op, req.Model, 0, err)
	}

	tokens := resp.Usage.TotalTokens
	if len(resp.Choices) == 0 {
		return nil, NewCompletionError(op, req.Model, tokens, ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, NewCompletionError(op, req.Model, tokens, ErrEmptyResponse)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	c.log.Debug().
		Str("model", model).
		Int("tokens", tokens).
		Int("response_length", len(content)).
		Msg("Received structured completion")

	return &Response{
		Text:   content,
		Tokens: tokens,
		Model:  model,
	}, nil
}
