package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "USE_GPT", "REMOTE_PROVIDER", "OPENAI_API_KEY",
		"PRIMARY_MODEL", "FALLBACK_MODEL", "REMOTE_TIMEOUT_SECONDS", "GOOGLE_CLOUD_PROJECT",
		"GOOGLE_CLOUD_LOCATION", "GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS",
		"OCR_FALLBACK", "USAGE_DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "LOG_TIME_FORMAT",
		"LOG_OUTPUT", "LOG_RING_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Port)
	assert.False(t, cfg.UseGPT)
	assert.Equal(t, ProviderOpenAI, cfg.RemoteProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.PrimaryModel)
	assert.Equal(t, "gpt-5-mini", cfg.FallbackModel)
	assert.Equal(t, 60*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, OCRFallbackNone, cfg.OCRFallback)
	assert.Equal(t, 200, cfg.LogRingSize)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("USE_GPT", "TRUE")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_RING_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.UseGPT)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	logCfg := cfg.GetLoggerConfig()
	assert.Equal(t, 50, logCfg.RingSize)
	assert.Equal(t, "info", logCfg.Level)
}

func TestRemoteEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"disabled", Config{UseGPT: false, RemoteProvider: ProviderOpenAI, OpenAIAPIKey: "k"}, false},
		{"openai without key", Config{UseGPT: true, RemoteProvider: ProviderOpenAI}, false},
		{"openai with key", Config{UseGPT: true, RemoteProvider: ProviderOpenAI, OpenAIAPIKey: "k"}, true},
		{"vertex without project", Config{UseGPT: true, RemoteProvider: ProviderVertex, GoogleCloudLocation: "us-central1"}, false},
		{"vertex with project", Config{UseGPT: true, RemoteProvider: ProviderVertex, GoogleCloudProject: "p", GoogleCloudLocation: "us-central1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.RemoteEnabled())
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad provider", "REMOTE_PROVIDER", "azure"},
		{"bad ocr fallback", "OCR_FALLBACK", "tesseract"},
		{"port out of range", "PORT", "70000"},
		{"zero timeout", "REMOTE_TIMEOUT_SECONDS", "0"},
		{"negative ring", "LOG_RING_SIZE", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvBool_OnlyTrueIsTrue(t *testing.T) {
	t.Setenv("FLAG", "1")
	assert.False(t, getEnvBool("FLAG", true))
	t.Setenv("FLAG", "true")
	assert.True(t, getEnvBool("FLAG", false))
	t.Setenv("FLAG", "")
	assert.True(t, getEnvBool("FLAG", true))
}
