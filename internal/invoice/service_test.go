package invoice

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/usage"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// stubText returns fixed text for any document.
type stubText struct {
	text string
	err  error
}

func (s stubText) ProcessPDF(_ context.Context, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s stubText) ProcessPDFWithMetadata(ctx context.Context, r io.Reader) (*ocr.OCRResult, error) {
	text, err := s.ProcessPDF(ctx, r)
	if err != nil {
		return nil, err
	}
	return &ocr.OCRResult{Text: text, Source: "stub"}, nil
}

var samplePDF = []byte("%PDF-1.4 sample invoice bytes")

// sampleWithoutNextReading drops the reading-dates table so the local result
// reports a missing next-reading date.
var sampleWithoutNextReading = strings.Replace(sampleInvoice,
	"Data de Leituras: 31/08/2025 30/09/2025 30/10/2025\n", "", 1)

func newRemoteService(t *testing.T, text string, completer *fakeCompleter, config ServiceConfig) *Service {
	t.Helper()
	extractor := newTestExtractor(t, completer, testRemoteConfig())
	return NewService(stubText{text: text}, extractor, usage.NewMemoryMeter(), config)
}

func TestService_Process_LocalOnly(t *testing.T) {
	svc := NewService(stubText{text: sampleInvoice}, nil, nil, ServiceConfig{})

	outcome, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	assert.True(t, outcome.OK)
	assert.Equal(t, Fingerprint(samplePDF), outcome.Hash)
	assert.Empty(t, outcome.Health.Inconsistencies)
	assert.False(t, outcome.Health.RemoteUsed)
	assert.Zero(t, outcome.Health.TokensUsed)
	assert.Zero(t, outcome.Health.MonthlyTokens)
	assert.Equal(t, string(OutcomeSkipped), outcome.Health.RemoteOutcome)
	require.NotNil(t, outcome.Data.UnidadeConsumidora)
	assert.Equal(t, "10023456789", *outcome.Data.UnidadeConsumidora)
}

func TestService_Process_RemoteCompletesMissingFields(t *testing.T) {
	completer := newFakeCompleter(map[string]fakeReply{
		"primary": {text: recordJSON(t, func(r *models.InvoiceRecord) {
			r.DataProximaLeitura = ptr("30/10/2025")
			r.TotalAPagar = ptr(999.0)
			r.Observacoes = "preenchido remotamente"
		}), tokens: 250},
	})
	svc := newRemoteService(t, sampleWithoutNextReading, completer,
		ServiceConfig{RemoteEnabled: true, HasCredential: true})

	outcome, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	assert.Equal(t, []string{InconsistencyMissingNextReading}, outcome.Health.Inconsistencies)
	assert.True(t, outcome.Health.RemoteUsed)
	assert.Equal(t, 250, outcome.Health.TokensUsed)
	assert.Equal(t, 250, outcome.Health.MonthlyTokens)
	assert.Equal(t, string(OutcomePrimaryOK), outcome.Health.RemoteOutcome)
	assert.Equal(t, "primary", outcome.Health.RemoteModel)

	require.NotNil(t, outcome.Data.DataProximaLeitura)
	assert.Equal(t, "30/10/2025", *outcome.Data.DataProximaLeitura)
	assert.InDelta(t, 1234.56, *outcome.Data.TotalAPagar, 1e-9)
	assert.Equal(t, "preenchido remotamente", outcome.Data.Observacoes)

	// monthly counter accumulates across requests
	outcome, err = svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)
	assert.Equal(t, 250, outcome.Health.TokensUsed)
	assert.Equal(t, 500, outcome.Health.MonthlyTokens)
}

func TestService_Process_RemoteValuesRespectInvariants(t *testing.T) {
	text := strings.Replace(sampleWithoutNextReading, "Benefício Tarifário Líquido: 150,00\n", "", 1)
	text = strings.Replace(text, sampleConsumptionLine,
		"CONSUMO SCEE QUANT: 500,00 PREÇO UNIT C/ TRIBUTOS: 0,95", 1)

	completer := newFakeCompleter(map[string]fakeReply{
		"primary": {text: recordJSON(t, func(r *models.InvoiceRecord) {
			r.BeneficioTarifarioLiquido = ptr(80.0)
			r.ConsumoSCEETarifaUnitaria = ptr(1.5)
		}), tokens: 10},
	})
	svc := newRemoteService(t, text, completer, ServiceConfig{RemoteEnabled: true, HasCredential: true})

	outcome, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	require.NotNil(t, outcome.Data.BeneficioTarifarioLiquido)
	assert.Equal(t, -80.0, *outcome.Data.BeneficioTarifarioLiquido)
	assert.Nil(t, outcome.Data.ConsumoSCEETarifaUnitaria)
}

func TestService_Process_RemoteGate(t *testing.T) {
	tests := []struct {
		name   string
		config ServiceConfig
		local  bool
	}{
		{"flag off", ServiceConfig{RemoteEnabled: false, HasCredential: true}, false},
		{"no credential", ServiceConfig{RemoteEnabled: true, HasCredential: false}, false},
		{"local endpoint", ServiceConfig{RemoteEnabled: true, HasCredential: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := newFakeCompleter(map[string]fakeReply{
				"primary": {text: recordJSON(t, nil), tokens: 10},
			})
			svc := newRemoteService(t, sampleWithoutNextReading, completer, tt.config)

			var outcome *models.ExtractionOutcome
			var err error
			if tt.local {
				outcome, err = svc.ProcessLocal(context.Background(), samplePDF)
			} else {
				outcome, err = svc.Process(context.Background(), samplePDF)
			}
			require.NoError(t, err)

			assert.Empty(t, completer.Calls())
			assert.NotEmpty(t, outcome.Health.Inconsistencies)
			assert.False(t, outcome.Health.RemoteUsed)
			assert.Zero(t, outcome.Health.TokensUsed)
			assert.Equal(t, string(OutcomeSkipped), outcome.Health.RemoteOutcome)
		})
	}
}

func TestService_Process_CleanLocalSkipsRemote(t *testing.T) {
	completer := newFakeCompleter(map[string]fakeReply{
		"primary": {text: recordJSON(t, nil), tokens: 10},
	})
	svc := newRemoteService(t, sampleInvoice, completer, ServiceConfig{RemoteEnabled: true, HasCredential: true})

	_, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	assert.Empty(t, completer.Calls())
}

func TestService_Process_DegradedRemote(t *testing.T) {
	completer := newFakeCompleter(map[string]fakeReply{
		"primary":  {err: errors.New("down"), tokens: 3},
		"fallback": {err: errors.New("down")},
	})
	svc := newRemoteService(t, sampleWithoutNextReading, completer,
		ServiceConfig{RemoteEnabled: true, HasCredential: true})

	outcome, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	assert.True(t, outcome.OK)
	assert.False(t, outcome.Health.RemoteUsed)
	assert.Equal(t, 3, outcome.Health.TokensUsed)
	assert.Equal(t, string(OutcomeDegraded), outcome.Health.RemoteOutcome)
	assert.Empty(t, outcome.Health.RemoteModel)
	assert.Nil(t, outcome.Data.DataProximaLeitura)
}

func TestService_Process_TextSourceFailureDegrades(t *testing.T) {
	svc := NewService(stubText{err: ocr.ErrEmptyDocument}, nil, nil, ServiceConfig{})

	outcome, err := svc.Process(context.Background(), samplePDF)
	require.NoError(t, err)

	assert.True(t, outcome.OK)
	assert.Equal(t, []string{InconsistencyMissingUC, InconsistencyMissingNextReading}, outcome.Health.Inconsistencies)
	assert.Nil(t, outcome.Data.UnidadeConsumidora)
	assert.Equal(t, []models.Injection{}, outcome.Data.InjecoesSCEE)
}

func TestService_Process_InvalidInput(t *testing.T) {
	svc := NewService(stubText{text: sampleInvoice}, nil, nil, ServiceConfig{})

	_, err := svc.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.Process(context.Background(), make([]byte, ocr.MaxFileSizeBytes+1))
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Process(ctx, samplePDF)
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestService_ProcessText(t *testing.T) {
	svc := NewService(nil, nil, nil, ServiceConfig{})

	outcome, err := svc.ProcessText(context.Background(), "UC 12345678\r\nTotal a Pagar R$ 1.234,56\r\nVencimento 10/05/2024")
	require.NoError(t, err)

	assert.Equal(t, "12345678", *outcome.Data.UnidadeConsumidora)
	assert.InDelta(t, 1234.56, *outcome.Data.TotalAPagar, 1e-9)
	assert.Equal(t, "10/05/2024", *outcome.Data.DataVencimento)
	assert.Equal(t, []string{InconsistencyMissingNextReading}, outcome.Health.Inconsistencies)

	_, err = svc.ProcessText(context.Background(), "  \n ")
	assert.ErrorIs(t, err, ErrNoDocument)
}
