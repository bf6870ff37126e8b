package invoice

import (
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// SchemaName identifies the record schema in provider requests.
const SchemaName = "fatura_equatorial"

var (
	nullableString  = []string{"string", "null"}
	nullableNumber  = []string{"number", "null"}
	nullableInteger = []string{"integer", "null"}
)

// recordSchemaTypes lists the JSON Schema type of every record field.
var recordSchemaTypes = map[string]any{
	"unidade_consumidora":                  nullableString,
	"total_a_pagar":                        nullableNumber,
	"data_vencimento":                      nullableString,
	"data_leitura_anterior":                nullableString,
	"data_leitura_atual":                   nullableString,
	"data_proxima_leitura":                 nullableString,
	"data_emissao":                         nullableString,
	"apresentacao":                         nullableString,
	"mes_ao_referencia":                    nullableString,
	"leitura_anterior":                     nullableInteger,
	"leitura_atual":                        nullableInteger,
	"beneficio_tarifario_bruto":            nullableNumber,
	"beneficio_tarifario_liquido":          nullableNumber,
	"icms":                                 nullableNumber,
	"pis_pasep":                            nullableNumber,
	"cofins":                               nullableNumber,
	"fatura_debito_automatico":             "string",
	"credito_recebido":                     nullableNumber,
	"saldo_kwh":                            nullableNumber,
	"excedente_recebido":                   nullableNumber,
	"ciclo_geracao":                        nullableString,
	"informacoes_para_o_cliente":           "string",
	"uc_geradora":                          nullableString,
	"uc_geradora_producao":                 nullableNumber,
	"cadastro_rateio_geracao_uc":           nullableString,
	"cadastro_rateio_geracao_percentual":   nullableNumber,
	"injecoes_scee":                        "array",
	"consumo_scee_quant":                   nullableNumber,
	"consumo_scee_preco_unit_com_tributos": nullableNumber,
	"consumo_scee_tarifa_unitaria":         nullableNumber,
	"media":                                nullableNumber,
	"parc_injet_s_desc_percentual":         nullableNumber,
	"observacoes":                          "string",
}

// RecordSchema returns a strict JSON Schema for InvoiceRecord: every field is
// required, nullable fields are typed as a union with null and injection
// entries require all four properties. A fresh map is built on every call.
func RecordSchema() map[string]any {
	fields := RecordFields()
	properties := make(map[string]any, len(fields))

	for _, name := range fields {
		prop := map[string]any{"type": recordSchemaTypes[name]}
		switch name {
		case "fatura_debito_automatico":
			prop["enum"] = []string{models.AutoDebitYes, models.AutoDebitNo}
		case "injecoes_scee":
			prop["items"] = injectionSchema()
		case "beneficio_tarifario_liquido":
			prop["description"] = "Valor sempre menor ou igual a zero."
		case "data_proxima_leitura":
			prop["description"] = "Terceira data da tabela de datas de leitura (dd/mm/aaaa)."
		}
		properties[name] = prop
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             fields,
		"additionalProperties": false,
	}
}

func injectionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"uc":                      map[string]any{"type": "string"},
			"quant_kwh":               map[string]any{"type": "number"},
			"preco_unit_com_tributos": map[string]any{"type": "number"},
			"tarifa_unitaria":         map[string]any{"type": "number"},
		},
		"required":             []string{"uc", "quant_kwh", "preco_unit_com_tributos", "tarifa_unitaria"},
		"additionalProperties": false,
	}
}
