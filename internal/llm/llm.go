// Package llm wraps the remote language-model providers used to complete
// invoice records.
//
// Every provider is consumed through Completer: it receives a prompt plus a
// JSON Schema describing the expected object and returns the raw text the
// model produced together with the token cost of the call. Providers never
// parse the text; repairing and validating it against the schema is done with
// RepairJSON and SchemaValidator.
//
// Supported providers:
//   - OpenAI chat completions with strict json_schema response format
//   - Google Vertex AI Gemini models with a response schema
package llm

import (
	"context"
)

// Completer requests a schema-constrained completion from a model.
type Completer interface {
	// Complete sends the request to the model named in req.Model.
	// On failure the returned error may be a *CompletionError carrying the
	// tokens already billed.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single structured completion request.
type Request struct {
	// Model is the provider model identifier (e.g. "gpt-4o-mini").
	Model string

	// System carries fixed instructions; may be empty.
	System string

	// Prompt is the user message, usually rules plus the document text.
	Prompt string

	// SchemaName names the response schema for providers that require one.
	SchemaName string

	// Schema is a JSON Schema object describing the response.
	Schema map[string]any
}

// Response is the raw result of a completion.
type Response struct {
	Text   string
	Tokens int
	Model  string
}
