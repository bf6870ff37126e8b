package models

// Automatic-debit flag values.
const (
	AutoDebitYes = "yes"
	AutoDebitNo  = "no"
)

// InvoiceRecord is the fixed-schema result of extracting an Equatorial Goiás
// utility invoice. Fields that could not be extracted are nil and encode as
// JSON null; the two free-text fields default to "" and the automatic-debit
// flag defaults to "no".
type InvoiceRecord struct {
	// Identity and dates
	UnidadeConsumidora  *string  `json:"unidade_consumidora"`   // Consumer unit (UC) id
	TotalAPagar         *float64 `json:"total_a_pagar"`         // Total payable
	DataVencimento      *string  `json:"data_vencimento"`       // Due date, dd/mm/yyyy
	DataLeituraAnterior *string  `json:"data_leitura_anterior"` // Prior reading date
	DataLeituraAtual    *string  `json:"data_leitura_atual"`    // Current reading date
	DataProximaLeitura  *string  `json:"data_proxima_leitura"`  // Next reading date
	DataEmissao         *string  `json:"data_emissao"`          // Issue date
	Apresentacao        *string  `json:"apresentacao"`          // Presentation date
	MesAnoReferencia    *string  `json:"mes_ao_referencia"`     // Billing period, e.g. ABR/2024

	// Metering
	LeituraAnterior *int64 `json:"leitura_anterior"`
	LeituraAtual    *int64 `json:"leitura_atual"`

	// Monetary
	BeneficioTarifarioBruto   *float64 `json:"beneficio_tarifario_bruto"`
	BeneficioTarifarioLiquido *float64 `json:"beneficio_tarifario_liquido"` // Always <= 0 when set
	ICMS                      *float64 `json:"icms"`
	PISPASEP                  *float64 `json:"pis_pasep"`
	COFINS                    *float64 `json:"cofins"`

	// SCEE (energy compensation)
	FaturaDebitoAutomatico          string      `json:"fatura_debito_automatico"`
	CreditoRecebido                 *float64    `json:"credito_recebido"`
	SaldoKWh                        *float64    `json:"saldo_kwh"`
	ExcedenteRecebido               *float64    `json:"excedente_recebido"`
	CicloGeracao                    *string     `json:"ciclo_geracao"`
	InformacoesParaOCliente         string      `json:"informacoes_para_o_cliente"`
	UCGeradora                      *string     `json:"uc_geradora"`
	UCGeradoraProducao              *float64    `json:"uc_geradora_producao"`
	CadastroRateioGeracaoUC         *string     `json:"cadastro_rateio_geracao_uc"`
	CadastroRateioGeracaoPercentual *float64    `json:"cadastro_rateio_geracao_percentual"`
	InjecoesSCEE                    []Injection `json:"injecoes_scee"`
	ConsumoSCEEQuant                *float64    `json:"consumo_scee_quant"`
	ConsumoSCEEPrecoUnitComTributos *float64    `json:"consumo_scee_preco_unit_com_tributos"`
	ConsumoSCEETarifaUnitaria       *float64    `json:"consumo_scee_tarifa_unitaria"` // Never above the tax-inclusive price
	Media                           *float64    `json:"media"`
	ParcInjetSDescPercentual        *float64    `json:"parc_injet_s_desc_percentual"`
	Observacoes                     string      `json:"observacoes"`
}

// Injection is one SCEE energy-injection line. All four fields are required.
type Injection struct {
	UC                   string  `json:"uc"`
	QuantKWh             float64 `json:"quant_kwh"`
	PrecoUnitComTributos float64 `json:"preco_unit_com_tributos"`
	TarifaUnitaria       float64 `json:"tarifa_unitaria"`
}

// NewInvoiceRecord returns a record with every nullable field unset and the
// non-nullable fields at their defaults.
func NewInvoiceRecord() InvoiceRecord {
	return InvoiceRecord{
		FaturaDebitoAutomatico:  AutoDebitNo,
		InformacoesParaOCliente: "",
		InjecoesSCEE:            []Injection{},
		Observacoes:             "",
	}
}

// Health describes how a record was produced.
type Health struct {
	Inconsistencies []string `json:"inconsistencies"`
	RemoteUsed      bool     `json:"remote_used"`
	TokensUsed      int      `json:"tokens_used"`
	MonthlyTokens   int      `json:"monthly_tokens"`
	RemoteOutcome   string   `json:"remote_outcome"`
	RemoteModel     string   `json:"remote_model,omitempty"`
}

// ExtractionOutcome is the envelope returned for a single document.
type ExtractionOutcome struct {
	OK     bool          `json:"ok"`
	Hash   string        `json:"hash"`
	Health Health        `json:"health"`
	Data   InvoiceRecord `json:"data"`
}
