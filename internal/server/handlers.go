package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

const (
	// UploadField is the multipart field carrying the invoice.
	UploadField = "fatura"
	// altUploadField is accepted for clients that send a generic name.
	altUploadField = "file"

	// maxRequestBytes leaves room for multipart headers around a maximum
	// size document.
	maxRequestBytes = ocr.MaxFileSizeBytes + 1<<20

	logsLimit = 100

	failureMessage = "Falha ao processar fatura."
)

var errMissingUpload = errors.New("no file in upload")

type extractFunc func(ctx context.Context, doc []byte) (*models.ExtractionOutcome, error)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"versao":          Version,
		"use_gpt":         s.opts.Info.UseGPT,
		"remote_provider": s.opts.Info.RemoteProvider,
		"primary_model":   s.opts.Info.PrimaryModel,
		"fallback_model":  s.opts.Info.FallbackModel,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	entries := []json.RawMessage{}
	if s.opts.Ring != nil {
		entries = s.opts.Ring.Entries(logsLimit)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	s.extract(w, r, s.extractor.Process)
}

func (s *Server) handleExtractLocal(w http.ResponseWriter, r *http.Request) {
	s.extract(w, r, s.extractor.ProcessLocal)
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request, run extractFunc) {
	log := zerolog.Ctx(r.Context())

	doc, filename, err := readUpload(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("Upload rejected")
		writeFailure(w)
		return
	}

	outcome, err := run(r.Context(), doc)
	if err != nil {
		log.Error().
			Err(err).
			Str("filename", filename).
			Int("size", len(doc)).
			Msg("Extraction failed")
		writeFailure(w)
		return
	}

	log.Info().
		Str("filename", filename).
		Str("hash", outcome.Hash).
		Bool("remote_used", outcome.Health.RemoteUsed).
		Int("tokens_used", outcome.Health.TokensUsed).
		Int("inconsistencies", len(outcome.Health.Inconsistencies)).
		Msg("Invoice extracted")

	writeJSON(w, http.StatusOK, outcome)
}

// readUpload returns the bytes of the "fatura" part, falling back to "file".
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxRequestBytes); err != nil {
		return nil, "", fmt.Errorf("parse multipart: %w", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range []string{UploadField, altUploadField} {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, "", errMissingUpload
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return doc, header.Filename, nil
}

func writeFailure(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok":    false,
		"error": failureMessage,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
