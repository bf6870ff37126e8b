package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

type fakeExtractor struct {
	mu      sync.Mutex
	remote  int
	local   int
	lastDoc []byte
	err     error
	outcome *models.ExtractionOutcome
}

func (f *fakeExtractor) Process(_ context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote++
	f.lastDoc = doc
	return f.outcome, f.err
}

func (f *fakeExtractor) ProcessLocal(_ context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local++
	f.lastDoc = doc
	return f.outcome, f.err
}

func sampleOutcome() *models.ExtractionOutcome {
	uc := "10023456789"
	rec := models.NewInvoiceRecord()
	rec.UnidadeConsumidora = &uc
	return &models.ExtractionOutcome{
		OK:   true,
		Hash: "abc123",
		Health: models.Health{
			Inconsistencies: []string{},
			RemoteOutcome:   "skipped",
		},
		Data: rec,
	}
}

func uploadRequest(t *testing.T, path, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "fatura.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	srv := New(&fakeExtractor{}, Options{Info: Info{
		UseGPT:         true,
		RemoteProvider: "openai",
		PrimaryModel:   "gpt-4o-mini",
		FallbackModel:  "gpt-5-mini",
	}})

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "v1", body["versao"])
	assert.Equal(t, true, body["use_gpt"])
	assert.Equal(t, "gpt-4o-mini", body["primary_model"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestLogs(t *testing.T) {
	ring := logger.NewRingBuffer(200)
	log := zerolog.New(ring)
	for i := 0; i < 150; i++ {
		log.Info().Int("n", i).Msg("entry")
	}
	srv := New(&fakeExtractor{}, Options{Ring: ring})

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 100)
	assert.Equal(t, 50.0, entries[0]["n"])
	assert.Equal(t, 149.0, entries[99]["n"])
}

func TestLogs_NoRing(t *testing.T) {
	srv := New(&fakeExtractor{}, Options{})

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/logs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		field     string
		wantLocal int
		wantFull  int
	}{
		{"extract", "/extract", "fatura", 0, 1},
		{"extract with generic field", "/extract", "file", 0, 1},
		{"extract local", "/extract-local", "fatura", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{outcome: sampleOutcome()}
			srv := New(ext, Options{})

			rec := serve(srv.Handler(), uploadRequest(t, tt.path, tt.field, []byte("%PDF-1.4 test")))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantFull, ext.remote)
			assert.Equal(t, tt.wantLocal, ext.local)
			assert.Equal(t, []byte("%PDF-1.4 test"), ext.lastDoc)

			body := decode(t, rec)
			assert.Equal(t, true, body["ok"])
			assert.Equal(t, "abc123", body["hash"])
			health := body["health"].(map[string]any)
			assert.Contains(t, health, "inconsistencies")
			assert.Contains(t, health, "remote_used")
			assert.Contains(t, health, "tokens_used")
			assert.Contains(t, health, "monthly_tokens")
			data := body["data"].(map[string]any)
			assert.Equal(t, "10023456789", data["unidade_consumidora"])
			assert.Equal(t, []any{}, data["injecoes_scee"])
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ext := &fakeExtractor{outcome: sampleOutcome()}
		srv := New(ext, Options{})

		rec := serve(srv.Handler(), uploadRequest(t, "/extract", "other", []byte("x")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"ok": false, "error": "Falha ao processar fatura."}`, rec.Body.String())
		assert.Zero(t, ext.remote)
	})

	t.Run("not multipart", func(t *testing.T) {
		srv := New(&fakeExtractor{outcome: sampleOutcome()}, Options{})

		req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(srv.Handler(), req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("pipeline error", func(t *testing.T) {
		ext := &fakeExtractor{err: errors.New("boom")}
		srv := New(ext, Options{})

		rec := serve(srv.Handler(), uploadRequest(t, "/extract", "fatura", []byte("%PDF")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "Falha ao processar fatura.", body["error"])
		assert.NotContains(t, rec.Body.String(), "boom")
	})
}

type panicExtractor struct{}

func (panicExtractor) Process(context.Context, []byte) (*models.ExtractionOutcome, error) {
	panic("nil record")
}

func (panicExtractor) ProcessLocal(context.Context, []byte) (*models.ExtractionOutcome, error) {
	panic("nil record")
}

func TestExtract_PanicAnswersGenericFailure(t *testing.T) {
	ring := logger.NewRingBuffer(10)
	srv := New(panicExtractor{}, Options{Ring: ring})
	srv.log = zerolog.New(ring)

	for _, path := range []string{"/extract", "/extract-local"} {
		rec := serve(srv.Handler(), uploadRequest(t, path, "fatura", []byte("%PDF")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"ok": false, "error": "Falha ao processar fatura."}`, rec.Body.String(), path)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader), path)
	}

	var panics int
	for _, raw := range ring.Entries(0) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		if entry["message"] == "Handler panicked" {
			panics++
			assert.Equal(t, "nil record", entry["panic"])
			assert.NotEmpty(t, entry["request_id"])
			assert.NotEmpty(t, entry["stack"])
		}
	}
	assert.Equal(t, 2, panics)
}

func TestRequestID(t *testing.T) {
	srv := New(&fakeExtractor{}, Options{})
	id := "2f1c3a52-7a8e-4c1d-9a56-3e0f4b7d9c10"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := serve(srv.Handler(), req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = serve(srv.Handler(), req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	srv := New(&fakeExtractor{}, Options{AllowedOrigins: []string{"https://painel.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
	req.Header.Set("Origin", "https://painel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(srv.Handler(), req)

	assert.Equal(t, "https://painel.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/extract", nil)
	req.Header.Set("Origin", "https://other.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(srv.Handler(), req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	srv := New(&fakeExtractor{}, Options{})

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
