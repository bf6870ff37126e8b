package invoice

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// Inconsistency messages, reported to clients in the health block in this order.
const (
	InconsistencyMissingUC          = "UC vazia"
	InconsistencyMissingNextReading = "Data próxima leitura ausente"
	InconsistencyPositiveNetBenefit = "Benefício tarifário líquido deveria ser negativo"
	InconsistencyTariffAbovePrice   = "Tarifa unitária SCEE > preço unit c/ tributos"
)

// DetectInconsistencies evaluates every check in fixed order and returns the
// ones that apply. The record is not modified.
func DetectInconsistencies(rec *models.InvoiceRecord) []string {
	inconsistencies := []string{}

	if rec.UnidadeConsumidora == nil || *rec.UnidadeConsumidora == "" {
		inconsistencies = append(inconsistencies, InconsistencyMissingUC)
	}
	if rec.DataProximaLeitura == nil || *rec.DataProximaLeitura == "" {
		inconsistencies = append(inconsistencies, InconsistencyMissingNextReading)
	}
	// Unreachable after applySignConvention; kept so records from other
	// sources are checked the same way.
	if rec.BeneficioTarifarioLiquido != nil && *rec.BeneficioTarifarioLiquido > 0 {
		inconsistencies = append(inconsistencies, InconsistencyPositiveNetBenefit)
	}
	if tariffExceedsPrice(rec) {
		inconsistencies = append(inconsistencies, InconsistencyTariffAbovePrice)
	}

	return inconsistencies
}

// applySignConvention negates a positive net tariff benefit.
func applySignConvention(rec *models.InvoiceRecord) bool {
	if rec.BeneficioTarifarioLiquido == nil || *rec.BeneficioTarifarioLiquido <= 0 {
		return false
	}
	negated := -math.Abs(*rec.BeneficioTarifarioLiquido)
	rec.BeneficioTarifarioLiquido = &negated
	return true
}

// discardExcessTariff nulls the SCEE unit tariff when it is above the
// tax-inclusive unit price.
func discardExcessTariff(rec *models.InvoiceRecord) bool {
	if !tariffExceedsPrice(rec) {
		return false
	}
	rec.ConsumoSCEETarifaUnitaria = nil
	return true
}

func tariffExceedsPrice(rec *models.InvoiceRecord) bool {
	return rec.ConsumoSCEETarifaUnitaria != nil &&
		rec.ConsumoSCEEPrecoUnitComTributos != nil &&
		*rec.ConsumoSCEETarifaUnitaria > *rec.ConsumoSCEEPrecoUnitComTributos
}

// RecordValidation re-applies the record invariants to data that did not
// come from the local rules, such as a merged remote completion.
type RecordValidation struct {
	log zerolog.Logger
}

// NewRecordValidation creates a new record validation service
func NewRecordValidation() *RecordValidation {
	return &RecordValidation{
		log: logger.WithComponent("record-validation"),
	}
}

// Enforce fixes invariant violations in place and returns a warning for each
// correction made.
func (rv *RecordValidation) Enforce(rec *models.InvoiceRecord) []string {
	var warnings []string

	if applySignConvention(rec) {
		warnings = append(warnings, "net tariff benefit negated")
		rv.log.Warn().
			Float64("beneficio_tarifario_liquido", *rec.BeneficioTarifarioLiquido).
			Msg("Positive net tariff benefit negated")
	}

	if rec.ConsumoSCEETarifaUnitaria != nil && rec.ConsumoSCEEPrecoUnitComTributos != nil {
		tariff := *rec.ConsumoSCEETarifaUnitaria
		price := *rec.ConsumoSCEEPrecoUnitComTributos
		if discardExcessTariff(rec) {
			warnings = append(warnings, "SCEE unit tariff above unit price discarded")
			rv.log.Warn().
				Float64("tarifa_unitaria", tariff).
				Float64("preco_unit_com_tributos", price).
				Msg("SCEE unit tariff above unit price discarded")
		}
	}

	if rec.FaturaDebitoAutomatico != models.AutoDebitYes && rec.FaturaDebitoAutomatico != models.AutoDebitNo {
		warnings = append(warnings, "automatic debit flag reset to no")
		rv.log.Warn().
			Str("fatura_debito_automatico", rec.FaturaDebitoAutomatico).
			Msg("Unknown automatic debit flag reset")
		rec.FaturaDebitoAutomatico = models.AutoDebitNo
	}

	if rec.InjecoesSCEE == nil {
		rec.InjecoesSCEE = []models.Injection{}
	}

	return warnings
}
