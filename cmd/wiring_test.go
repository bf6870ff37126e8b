package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/config"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/usage"
)

func baseConfig() *config.Config {
	return &config.Config{
		Port:           10000,
		RemoteProvider: config.ProviderOpenAI,
		PrimaryModel:   "gpt-4o-mini",
		FallbackModel:  "gpt-5-mini",
		RemoteTimeout:  time.Minute,
		OCRFallback:    config.OCRFallbackNone,
	}
}

func TestCreateMeter(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	meter, cleanup, err := createMeter(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &usage.MemoryMeter{}, meter)
	assert.Empty(t, cleanup)

	cfg.UsageDBPath = filepath.Join(t.TempDir(), "usage.db")
	meter, cleanup, err = createMeter(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &usage.SQLiteMeter{}, meter)
	require.Len(t, cleanup, 1)
	assert.NoError(t, cleanup.Close())
}

func TestCreateCompleter(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	completer, _, err := createCompleter(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, completer, "no credential means no completer")

	cfg.OpenAIAPIKey = "sk-test"
	completer, cleanup, err := createCompleter(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, completer)
	assert.Empty(t, cleanup)
}

func TestCreateExtractionService_LocalOnly(t *testing.T) {
	cfg := baseConfig()
	svc, cleanup, err := createExtractionService(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup.Close()

	outcome, err := svc.ProcessText(context.Background(), "UC: 10023456789")
	require.NoError(t, err)
	assert.Equal(t, "skipped", outcome.Health.RemoteOutcome)
	assert.False(t, outcome.Health.RemoteUsed)
}
