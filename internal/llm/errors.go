package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when the provider answers without content.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrMissingCredentials is returned when a provider is built without credentials.
	ErrMissingCredentials = errors.New("missing model provider credentials")

	// ErrInvalidJSON is returned when a response cannot be repaired into JSON.
	ErrInvalidJSON = errors.New("response is not valid JSON")

	// ErrSchemaMismatch is returned when a response does not satisfy the schema.
	ErrSchemaMismatch = errors.New("response does not match schema")
)

// CompletionError wraps a failed completion with the model used and the
// tokens billed before the failure.
type CompletionError struct {
	Op     string
	Model  string
	Tokens int
	Err    error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("llm: %s failed (model: %s): %v", e.Op, e.Model, e.Err)
	}
	return fmt.Sprintf("llm: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *CompletionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCompletionError creates a new CompletionError.
func NewCompletionError(op, model string, tokens int, err error) *CompletionError {
	return &CompletionError{
		Op:     op,
		Model:  model,
		Tokens: tokens,
		Err:    err,
	}
}

// TokensSpent returns the tokens recorded on a *CompletionError in err's
// chain, or zero.
func TokensSpent(err error) int {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Tokens
	}
	return 0
}
