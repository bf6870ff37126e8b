// Package invoice extracts billing fields from Equatorial Goiás utility
// invoices.
//
// Extraction is hybrid. A table of regular-expression rules reads the
// normalized document text and reports inconsistencies in its own result;
// only when something is inconsistent, and remote completion is enabled,
// a language model is asked for the whole record under a strict JSON
// schema. The remote answer only fills fields the rules left empty.
//
// Remote Completion:
//   - Primary model first, fallback model once on any failure
//   - Every call is bounded by RemoteConfig.Timeout (default 60 seconds)
//   - Malformed answers are repaired, then validated; invalid fields are nulled
//   - Failures never reach the caller: the outcome degrades to local data
//
// Record Invariants:
//   - beneficio_tarifario_liquido is never positive
//   - consumo_scee_tarifa_unitaria never exceeds consumo_scee_preco_unit_com_tributos
//   - fatura_debito_automatico is always "yes" or "no"
//   - injecoes_scee is never null
package invoice

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/usage"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/services"
)

var _ services.InvoiceExtractor = (*Service)(nil)

// ServiceConfig controls whether the remote path may run.
type ServiceConfig struct {
	// RemoteEnabled is the USE_GPT feature flag.
	RemoteEnabled bool

	// HasCredential reports whether the remote provider can authenticate.
	// Without it the remote path is skipped even when enabled.
	HasCredential bool
}

// Service runs the full extraction pipeline for one document at a time.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	text       ocr.OCRService
	remote     *RemoteExtractor
	validation *RecordValidation
	meter      usage.Meter
	config     ServiceConfig
	log        zerolog.Logger
}

// NewService creates the pipeline. remote may be nil, which disables remote
// completion; a nil meter is replaced by an in-memory one.
func NewService(text ocr.OCRService, remote *RemoteExtractor, meter usage.Meter, config ServiceConfig) *Service {
	if meter == nil {
		meter = usage.NewMemoryMeter()
	}
	return &Service{
		text:       text,
		remote:     remote,
		validation: NewRecordValidation(),
		meter:      meter,
		config:     config,
		log:        logger.WithComponent("invoice-service"),
	}
}

// Process extracts the record from raw document bytes.
func (s *Service) Process(ctx context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	return s.process(ctx, doc, true)
}

// ProcessLocal is Process with remote completion turned off.
func (s *Service) ProcessLocal(ctx context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	return s.process(ctx, doc, false)
}

// ProcessText runs the pipeline on already-extracted text. The fingerprint
// is computed over the text bytes.
func (s *Service) ProcessText(ctx context.Context, text string) (*models.ExtractionOutcome, error) {
	const op = "Service.ProcessText"

	if strings.TrimSpace(text) == "" {
		return nil, NewExtractionError(op, ErrNoDocument, "empty text")
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapExtractionError(op, ErrContextCanceled, err.Error())
	}

	return s.run(ctx, Fingerprint([]byte(text)), text, true)
}

func (s *Service) process(ctx context.Context, doc []byte, allowRemote bool) (*models.ExtractionOutcome, error) {
	const op = "Service.Process"

	if len(doc) == 0 {
		return nil, NewExtractionError(op, ErrNoDocument, "empty upload")
	}
	if len(doc) > ocr.MaxFileSizeBytes {
		return nil, NewExtractionError(op, ErrDocumentTooLarge, "")
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapExtractionError(op, ErrContextCanceled, err.Error())
	}

	hash := Fingerprint(doc)
	text := s.extractText(ctx, hash, doc)
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Op: op, Err: ErrContextCanceled, Details: err.Error(), Hash: hash}
	}

	return s.run(ctx, hash, text, allowRemote)
}

// extractText degrades to empty text when no source can read the document,
// so the caller still receives an all-null record with its inconsistencies.
func (s *Service) extractText(ctx context.Context, hash string, doc []byte) string {
	if s.text == nil {
		return ""
	}

	startTime := time.Now()
	text, err := s.text.ProcessPDF(ctx, bytes.NewReader(doc))
	if err != nil {
		event := s.log.Warn()
		if errors.Is(err, ocr.ErrInvalidPDF) {
			event = s.log.Info()
		}
		event.
			Err(err).
			Str("hash", hash).
			Msg("Text extraction failed, continuing with empty text")
		return ""
	}

	s.log.Debug().
		Str("hash", hash).
		Int("text_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Document text extracted")

	return text
}

func (s *Service) run(ctx context.Context, hash, raw string, allowRemote bool) (*models.ExtractionOutcome, error) {
	text := Normalize(raw)
	local := ExtractLocal(text)

	s.log.Info().
		Str("hash", hash).
		Strs("inconsistencies", local.Inconsistencies).
		Msg("Local extraction completed")

	record := local.Record
	remote := RemoteResult{Outcome: OutcomeSkipped}

	enabled := allowRemote && s.config.RemoteEnabled && s.remote != nil
	if ShouldCompleteRemotely(enabled, s.config.HasCredential, local.Inconsistencies) {
		remote = s.remote.Extract(ctx, text)
		if remote.Data != nil {
			merged := Reconcile(record, remote.Data)
			if remote.Data.ConsumoSCEEPrecoUnitComTributos != nil && merged.ConsumoSCEEPrecoUnitComTributos == nil {
				s.log.Info().
					Str("hash", hash).
					Float64("remote_preco_unit_com_tributos", *remote.Data.ConsumoSCEEPrecoUnitComTributos).
					Float64("local_tarifa_unitaria", *record.ConsumoSCEETarifaUnitaria).
					Msg("Remote SCEE unit price below local tariff discarded")
			}
			warnings := s.validation.Enforce(&merged)
			s.log.Info().
				Str("hash", hash).
				Strs("filled_fields", filledFields(record, merged)).
				Strs("warnings", warnings).
				Msg("Remote completion merged")
			record = merged
		}
	}

	monthly, err := s.meter.Add(ctx, remote.Tokens)
	if err != nil {
		s.log.Error().
			Err(err).
			Int("tokens", remote.Tokens).
			Msg("Failed to record token usage")
	}

	health := models.Health{
		Inconsistencies: local.Inconsistencies,
		RemoteUsed:      remote.Used,
		TokensUsed:      remote.Tokens,
		MonthlyTokens:   monthly,
		RemoteOutcome:   string(remote.Outcome),
	}
	if remote.Data != nil {
		health.RemoteModel = remote.Model
	}

	return &models.ExtractionOutcome{
		OK:     true,
		Hash:   hash,
		Health: health,
		Data:   record,
	}, nil
}
