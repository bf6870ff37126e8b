package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/config"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/invoice"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/llm"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/usage"
)

// closers releases clients in reverse creation order.
type closers []func() error

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// createTextSource builds the text chain: the PDF text layer first, Cloud
// Vision second when OCR_FALLBACK=vision. A Vision client that cannot be
// created is logged and left out of the chain.
func createTextSource(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ocr.ChainService, closers) {
	sources := []ocr.OCRService{ocr.NewPDFTextService()}
	var cleanup closers

	if cfg.OCRFallback == config.OCRFallbackVision {
		vision, err := ocr.NewGoogleVisionOCRService(ctx, ocr.VisionConfig{
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Msg("Cloud Vision fallback unavailable, using the PDF text layer only")
		} else {
			sources = append(sources, vision)
			cleanup = append(cleanup, vision.Close)
		}
	}

	return ocr.NewChainService(sources...), cleanup
}

// createCompleter returns the completer for the configured provider, or nil
// when the provider has no credential.
func createCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, closers, error) {
	if !cfg.HasRemoteCredential() {
		return nil, nil, nil
	}

	switch cfg.RemoteProvider {
	case config.ProviderVertex:
		var opts []option.ClientOption
		switch {
		case cfg.GoogleCredentialsJSON != "":
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
		case cfg.GoogleCredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		completer, err := llm.NewVertexCompleter(ctx, cfg.GoogleCloudProject, cfg.GoogleCloudLocation, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
		}
		return completer, closers{completer.Close}, nil
	default:
		completer, err := llm.NewOpenAICompleter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return completer, nil, nil
	}
}

// createMeter opens the SQLite meter when USAGE_DB_PATH is set and falls
// back to an in-memory one otherwise.
func createMeter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (usage.Meter, closers, error) {
	if cfg.UsageDBPath == "" {
		log.Debug().Msg("USAGE_DB_PATH not set, monthly token totals are kept in memory")
		return usage.NewMemoryMeter(), nil, nil
	}

	meter, err := usage.NewSQLiteMeter(ctx, cfg.UsageDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	return meter, closers{meter.Close}, nil
}

// createExtractionService wires the full pipeline from configuration. The
// returned closers must be closed once the service is no longer used.
func createExtractionService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*invoice.Service, closers, error) {
	textSource, cleanup := createTextSource(ctx, cfg, log)

	meter, meterClose, err := createMeter(ctx, cfg, log)
	if err != nil {
		_ = cleanup.Close()
		return nil, nil, err
	}
	cleanup = append(cleanup, meterClose...)

	var remote *invoice.RemoteExtractor
	if cfg.UseGPT {
		completer, completerClose, err := createCompleter(ctx, cfg)
		if err != nil {
			_ = cleanup.Close()
			return nil, nil, err
		}
		cleanup = append(cleanup, completerClose...)

		if completer != nil {
			remote, err = invoice.NewRemoteExtractor(completer, invoice.RemoteConfig{
				PrimaryModel:  cfg.PrimaryModel,
				FallbackModel: cfg.FallbackModel,
				Timeout:       cfg.RemoteTimeout,
			})
			if err != nil {
				_ = cleanup.Close()
				return nil, nil, fmt.Errorf("failed to create remote extractor: %w", err)
			}
		} else {
			log.Warn().
				Str("provider", cfg.RemoteProvider).
				Msg("USE_GPT is set but the remote provider has no credential, remote completion disabled")
		}
	}

	svc := invoice.NewService(textSource, remote, meter, invoice.ServiceConfig{
		RemoteEnabled: cfg.UseGPT,
		HasCredential: cfg.HasRemoteCredential(),
	})

	log.Debug().
		Bool("use_gpt", cfg.UseGPT).
		Bool("remote_enabled", cfg.RemoteEnabled()).
		Str("provider", cfg.RemoteProvider).
		Str("ocr_fallback", cfg.OCRFallback).
		Msg("Extraction service created")

	return svc, cleanup, nil
}
