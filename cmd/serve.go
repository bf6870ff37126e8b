package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extractor over HTTP",
	Long: `Start the HTTP service.

Routes:
  GET  /health          service status and remote settings
  GET  /logs            last 100 log entries
  POST /extract         multipart upload (field "fatura"), hybrid extraction
  POST /extract-local   same upload, local rules only

Environment variables:
  PORT                    listen port (default: 10000)
  CORS_ALLOWED_ORIGINS    comma separated origins (default: *)
  USE_GPT                 "true" enables remote completion
  REMOTE_PROVIDER         openai or vertex (default: openai)
  OPENAI_API_KEY          required for the openai provider
  GOOGLE_CLOUD_PROJECT    required for the vertex provider
  PRIMARY_MODEL           default: gpt-4o-mini
  FALLBACK_MODEL          default: gpt-5-mini
  OCR_FALLBACK            none or vision (default: none)
  USAGE_DB_PATH           SQLite file for monthly token totals (optional)`,
	Example: `  # Serve on the configured PORT
  extract-equatorial serve

  # Serve on another port
  extract-equatorial serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Listen port (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	port := cfg.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := createExtractionService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release clients")
		}
	}()

	srv := server.New(svc, server.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Info: server.Info{
			UseGPT:         cfg.UseGPT,
			RemoteProvider: cfg.RemoteProvider,
			PrimaryModel:   cfg.PrimaryModel,
			FallbackModel:  cfg.FallbackModel,
		},
		Ring: logger.Ring(),
	})

	log.Info().
		Int("port", port).
		Bool("use_gpt", cfg.UseGPT).
		Bool("remote_enabled", cfg.RemoteEnabled()).
		Str("provider", cfg.RemoteProvider).
		Msg("Starting extraction service")

	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}
