package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/config"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute. Commands that need it call requireConfig.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "extract-equatorial",
	Short: "Extrator de faturas Equatorial Goiás",
	Long: `extract-equatorial reads Equatorial Goiás utility invoices (PDF) and returns
a fixed-schema JSON record with billing, metering and SCEE compensation fields.

Extraction is hybrid: local rules run first and a language model is only
asked to complete the record when the rules report inconsistencies and
USE_GPT=true. The same pipeline is served over HTTP by the serve command.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("extract-equatorial executed")

		fmt.Println("extract-equatorial: use --help to see available commands.")
	},
}

// Execute runs the root command. cfg may be nil when configuration failed
// to load; commands that need it report the load error themselves.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// requireConfig returns the loaded configuration or the error that kept it
// from loading.
func requireConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
