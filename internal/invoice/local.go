package invoice

import (
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// LocalResult is the output of the rule-based extractor.
type LocalResult struct {
	Record          models.InvoiceRecord
	Inconsistencies []string
}

// ExtractLocal runs the rule table over normalized text and returns a
// fully-shaped record plus the inconsistencies found in it. It never fails:
// rules that do not match leave their field null.
func ExtractLocal(text string) LocalResult {
	rec := models.NewInvoiceRecord()

	for _, r := range fieldRules {
		setField(&rec, r.Field, r.Apply(text))
	}

	rec.DataLeituraAnterior, rec.DataLeituraAtual, rec.DataProximaLeitura = readingDates(text)
	rec.InjecoesSCEE = injections(text)
	rec.FaturaDebitoAutomatico = autoDebit(text)
	rec.InformacoesParaOCliente = customerInfo(text)

	applySignConvention(&rec)
	inconsistencies := DetectInconsistencies(&rec)
	discardExcessTariff(&rec)

	return LocalResult{
		Record:          rec,
		Inconsistencies: inconsistencies,
	}
}
