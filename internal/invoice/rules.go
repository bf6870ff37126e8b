package invoice

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// Coercion converts a raw capture into a typed field value. A nil result
// means the capture could not be coerced and the field stays null.
type Coercion func(raw string) any

// asString keeps the capture verbatim. Dates pass through here unvalidated.
func asString(raw string) any {
	if raw == "" {
		return nil
	}
	s := raw
	return &s
}

// asNumber parses Brazilian-formatted amounts: periods are thousands
// separators, the first comma is the decimal mark and a trailing minus is
// treated as the sign ("150,00-" is -150).
func asNumber(raw string) any {
	f, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &f
}

// asInteger strips every non-digit before parsing.
func asInteger(raw string) any {
	n, ok := parseInteger(raw)
	if !ok {
		return nil
	}
	return &n
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if negative {
		f = -math.Abs(f)
	}
	return f, true
}

func parseInteger(raw string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Rule extracts a single field. Patterns are tried in order and the first
// one that matches wins; Group selects the capture to coerce.
type Rule struct {
	Field    string
	Patterns []*regexp.Regexp
	Group    int
	Coerce   Coercion
}

// Apply runs the rule over normalized text. It returns nil when no pattern
// matches or the capture does not coerce.
func (r Rule) Apply(text string) any {
	for _, re := range r.Patterns {
		m := re.FindStringSubmatch(text)
		if m == nil || r.Group >= len(m) {
			continue
		}
		return r.Coerce(m[r.Group])
	}
	return nil
}

const (
	datePattern = `(\d{2}/\d{2}/\d{4})`
	// Amount captures always start with a digit so a lone separator is never
	// taken for a value.
	amountPattern       = `(\d[\d.,]*)`
	signedAmountPattern = `(-?\d[\d.,]*-?)`
	ucPattern           = `(\d{6,14})`
)

func rule(field string, coerce Coercion, patterns ...string) Rule {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return Rule{Field: field, Patterns: compiled, Group: 1, Coerce: coerce}
}

// fieldRules is the single-value rule table, keyed by JSON field name.
var fieldRules = []Rule{
	rule("unidade_consumidora", asString,
		`(?i)(?:Unidade\s*Consumidora|UC)\D+`+ucPattern),
	rule("data_vencimento", asString,
		`(?i)data\s+de\s+vencimento\D+`+datePattern,
		`(?i)vencimento\D+`+datePattern),
	rule("data_emissao", asString,
		`(?i)emiss[aã]o\D+`+datePattern),
	rule("apresentacao", asString,
		`(?i)apresenta[cç][aã]o\D+`+datePattern),
	rule("mes_ao_referencia", asString,
		`(?i)refer[eê]ncia\D+([A-Z]{3}/\d{2,4})`,
		`\b([A-Z]{3}/\d{2,4})\b`),
	rule("leitura_anterior", asInteger,
		`(?i)leitura\s*anterior\D+(\d{3,7})`),
	rule("leitura_atual", asInteger,
		`(?i)leitura\s*atual\D+(\d{3,7})`),
	rule("total_a_pagar", asNumber,
		`(?i)total\s+a\s+pagar\D+`+amountPattern+`\b`),
	rule("beneficio_tarifario_bruto", asNumber,
		`(?i)benef[ií]cio\s+tarif[aá]rio\s+bruto\D+`+amountPattern),
	rule("beneficio_tarifario_liquido", asNumber,
		`(?i)benef[ií]cio\s+tarif[aá]rio\s+l[ií]qu[ií]do\D+?`+signedAmountPattern),
	rule("icms", asNumber,
		`(?i)\bicms\D+`+amountPattern),
	rule("pis_pasep", asNumber,
		`(?i)pis[/\s-]*pasep\D+`+amountPattern),
	rule("cofins", asNumber,
		`(?i)\bcofins\D+`+amountPattern),
	rule("credito_recebido", asNumber,
		`(?i)cr[eé]dito\s+recebido\D+`+amountPattern),
	rule("saldo_kwh", asNumber,
		`(?i)saldo\s*kwh\D+`+amountPattern),
	rule("excedente_recebido", asNumber,
		`(?i)excedente\s+recebido\D+`+amountPattern),
	rule("ciclo_geracao", asString,
		`(?is)informa[cç][oõ]es\s+do\s+scee.*?gera[cç][aã]o\s+do\s+ciclo\s*\(([^)]+)\)`,
		`(?i)\((\d{1,2}/\d{4})\)\s*gera[cç][aã]o\s+do\s+ciclo`),
	rule("uc_geradora", asString,
		`(?is)informa[cç][oõ]es\s+do\s+scee.*?uc\s+`+ucPattern,
		`(?i)uc\s+geradora\D+`+ucPattern),
	rule("uc_geradora_producao", asNumber,
		`(?i)uc\s+\d{6,14}\s*:\s*`+amountPattern),
	rule("cadastro_rateio_geracao_uc", asString,
		`(?i)cadastro\s+rateio\s+gera[cç][aã]o\D+`+ucPattern),
	rule("cadastro_rateio_geracao_percentual", asNumber,
		`(?i)cadastro\s+rateio[\s\S]{0,60}?percentual\D+`+amountPattern),
	rule("consumo_scee_quant", asNumber,
		`(?i)consumo\s+scee\D+quant(?:idade)?\D+`+amountPattern),
	rule("consumo_scee_preco_unit_com_tributos", asNumber,
		`(?i)consumo\s+scee[\s\S]{0,80}?pre[cç]o\s+unit.*?`+amountPattern),
	rule("consumo_scee_tarifa_unitaria", asNumber,
		`(?i)consumo\s+scee[\s\S]{0,80}?tarifa\s+unit.*?`+amountPattern),
	rule("media", asNumber,
		`(?i)\bm[eé]dia\D+`+amountPattern+`\b`),
	rule("parc_injet_s_desc_percentual", asNumber,
		`(?i)parc(?:ela)?\s+injet\s*s/desc\D+`+amountPattern),
}

var (
	readingDatesTableRe = regexp.MustCompile(
		`(?is)data\s+de\s+leituras?:?\s*([\d/]{10}).*?([\d/]{10}).*?([\d/]{10})`)
	readingDatesLabeledRe = regexp.MustCompile(
		`(?is)(?:Leitura\s*Anterior|Anterior)\D+` + datePattern +
			`.*?(?:Leitura\s*Atual|Atual)\D+` + datePattern +
			`.*?(?:Pr[oó]xima\s*Leitura|Pr[oó]xima)\D+` + datePattern)

	injectionRe = regexp.MustCompile(
		`(?i)inje[cç](?:[oõ]es|[aã]o)\s*scee[\s\S]{0,200}?uc\D+` + ucPattern +
			`\D+quant\D+` + amountPattern +
			`\D+pre[cç]o\s+unit.*?(-?\d[\d.,]*)` +
			`\D+tarifa\s+unit.*?(-?\d[\d.,]*)`)

	autoDebitRe = regexp.MustCompile(`(?i)d[eé]bito\s+autom[aá]tico\D+\b(sim|yes|ativo)\b`)

	customerInfoRe    = regexp.MustCompile(`(?i)informa[cç][oõ]es\s+para\s+o\s+cliente[:\s]*([\s\S]+)`)
	customerInfoCutRe = regexp.MustCompile(`(?i)(?:uc\s+geradora|cadastro\s+rateio|nota\s+fiscal)`)
)

// readingDates extracts the prior, current and next reading dates together.
// The labeled form is only consulted when the table form does not match.
func readingDates(text string) (prior, current, next *string) {
	for _, re := range []*regexp.Regexp{readingDatesTableRe, readingDatesLabeledRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strPtr(m[1]), strPtr(m[2]), strPtr(m[3])
		}
	}
	return nil, nil, nil
}

// injections returns one entry per SCEE injection block in document order.
// A block with any value that fails to coerce is dropped whole.
func injections(text string) []models.Injection {
	out := []models.Injection{}
	for _, m := range injectionRe.FindAllStringSubmatch(text, -1) {
		quant, ok1 := parseNumber(m[2])
		price, ok2 := parseNumber(m[3])
		tariff, ok3 := parseNumber(m[4])
		if m[1] == "" || !ok1 || !ok2 || !ok3 {
			continue
		}
		out = append(out, models.Injection{
			UC:                   m[1],
			QuantKWh:             quant,
			PrecoUnitComTributos: price,
			TarifaUnitaria:       tariff,
		})
	}
	return out
}

func autoDebit(text string) string {
	if autoDebitRe.MatchString(text) {
		return models.AutoDebitYes
	}
	return models.AutoDebitNo
}

func customerInfo(text string) string {
	m := customerInfoRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	body := m[1]
	if loc := customerInfoCutRe.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	return strings.TrimSpace(body)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
