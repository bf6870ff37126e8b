package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/llm"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// RemoteOutcome is the terminal state of a remote extraction.
type RemoteOutcome string

const (
	// OutcomeSkipped means the decision policy did not call the remote path.
	OutcomeSkipped RemoteOutcome = "skipped"
	// OutcomePrimaryOK means the primary model answered.
	OutcomePrimaryOK RemoteOutcome = "primary_ok"
	// OutcomeFallbackOK means the primary failed and the fallback answered.
	OutcomeFallbackOK RemoteOutcome = "fallback_ok"
	// OutcomeDegraded means both models failed; no remote data is available.
	OutcomeDegraded RemoteOutcome = "degraded"
)

// RemoteConfig configures the remote structured extractor. It is copied at
// construction and never read from the environment.
type RemoteConfig struct {
	PrimaryModel  string        // e.g. gpt-4o-mini
	FallbackModel string        // e.g. gpt-5-mini; empty disables the fallback
	Timeout       time.Duration // per model call
}

// DefaultRemoteConfig returns the models and timeout used in production.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		PrimaryModel:  "gpt-4o-mini",
		FallbackModel: "gpt-5-mini",
		Timeout:       60 * time.Second,
	}
}

// RemoteResult is the result of a remote extraction. Used is false only when
// no model produced an answer. Data is nil when the answer could not be
// parsed even after repair.
type RemoteResult struct {
	Used          bool
	Tokens        int
	Data          *models.InvoiceRecord
	Outcome       RemoteOutcome
	Model         string
	CleanedFields []string
}

// RemoteExtractor asks a language model for the full record.
type RemoteExtractor struct {
	completer llm.Completer
	config    RemoteConfig
	schema    map[string]any
	validator *llm.SchemaValidator
	log       zerolog.Logger
}

// NewRemoteExtractor creates a remote extractor backed by completer.
func NewRemoteExtractor(completer llm.Completer, config RemoteConfig) (*RemoteExtractor, error) {
	const op = "NewRemoteExtractor"

	if completer == nil {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, "completer is required")
	}
	if config.PrimaryModel == "" {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, "primary model is required")
	}

	schema := RecordSchema()
	validator, err := llm.NewSchemaValidator(SchemaName, schema)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to compile record schema")
	}

	return &RemoteExtractor{
		completer: completer,
		config:    config,
		schema:    schema,
		validator: validator,
		log:       logger.WithComponent("remote-extractor"),
	}, nil
}

type attempt struct {
	model   string
	outcome RemoteOutcome
}

// Extract runs primary then fallback and never returns an error: every
// failure ends in one of the three terminal outcomes.
func (e *RemoteExtractor) Extract(ctx context.Context, text string) RemoteResult {
	req := llm.Request{
		System:     systemPrompt,
		Prompt:     BuildPrompt(text),
		SchemaName: SchemaName,
		Schema:     e.schema,
	}

	attempts := []attempt{
		{model: e.config.PrimaryModel, outcome: OutcomePrimaryOK},
		{model: e.config.FallbackModel, outcome: OutcomeFallbackOK},
	}

	tokens := 0
	for i, a := range attempts {
		if a.model == "" {
			continue
		}

		resp, err := e.call(ctx, a.model, req)
		if err != nil {
			tokens += llm.TokensSpent(err)
			e.log.Warn().
				Err(err).
				Str("model", a.model).
				Int("attempt", i+1).
				Msg("Remote extraction call failed")
			continue
		}
		tokens += resp.Tokens

		result := RemoteResult{
			Used:    true,
			Tokens:  tokens,
			Outcome: a.outcome,
			Model:   a.model,
		}

		data, cleaned, err := e.parse(resp.Text)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("model", a.model).
				Int("tokens", tokens).
				Msg("Remote response could not be parsed, discarding")
			return result
		}
		result.Data = data
		result.CleanedFields = cleaned

		e.log.Info().
			Str("model", a.model).
			Str("outcome", string(a.outcome)).
			Int("tokens", tokens).
			Strs("cleaned_fields", cleaned).
			Msg("Remote extraction completed")

		return result
	}

	e.log.Error().
		Str("primary_model", e.config.PrimaryModel).
		Str("fallback_model", e.config.FallbackModel).
		Int("tokens", tokens).
		Msg("All remote extraction attempts failed")

	return RemoteResult{
		Used:    false,
		Tokens:  tokens,
		Outcome: OutcomeDegraded,
	}
}

func (e *RemoteExtractor) call(ctx context.Context, model string, req llm.Request) (*llm.Response, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}
	req.Model = model
	return e.completer.Complete(ctx, req)
}

// parse repairs the raw answer, nulls properties the schema rejects and
// decodes the result. Properties that still do not fit the record type are
// nulled one at a time, so a single odd value never costs the whole answer.
func (e *RemoteExtractor) parse(text string) (*models.InvoiceRecord, []string, error) {
	const op = "parse"

	repaired, err := llm.RepairJSON(text)
	if err != nil {
		return nil, nil, WrapExtractionError(op, err, "repair failed")
	}

	// Sanitize round-trips through map[string]any, which also rewrites
	// integral floats such as 12345.0 as plain integers.
	cleaned, touched, err := e.validator.Sanitize([]byte(repaired))
	if err != nil {
		return nil, nil, WrapExtractionError(op, err, "sanitize failed")
	}

	rec, nulled, err := decodeRecord(cleaned)
	if err != nil {
		return nil, nil, WrapExtractionError(op, err, "decode failed")
	}
	return rec, mergeFieldNames(touched, nulled), nil
}

// decodeRecord decodes a sanitized object into a record. A property whose
// value cannot be stored in its Go field is set to null and decoding is
// retried; the nulled properties are returned.
func decodeRecord(data []byte) (*models.InvoiceRecord, []string, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, fmt.Errorf("decode record: %w", err)
	}

	var nulled []string
	for range len(obj) + 1 {
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, nil, fmt.Errorf("decode record: %w", err)
		}

		rec := models.NewInvoiceRecord()
		err = json.Unmarshal(raw, &rec)
		if err == nil {
			if rec.InjecoesSCEE == nil {
				rec.InjecoesSCEE = []models.Injection{}
			}
			return &rec, nulled, nil
		}

		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return nil, nil, fmt.Errorf("decode record: %w", err)
		}
		key, _, _ := strings.Cut(typeErr.Field, ".")
		if v, ok := obj[key]; !ok || v == nil {
			return nil, nil, fmt.Errorf("decode record: %w", err)
		}
		obj[key] = nil
		nulled = append(nulled, key)
	}

	return nil, nil, fmt.Errorf("decode record: too many invalid properties")
}

func mergeFieldNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, name := range append(append([]string{}, a...), b...) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
