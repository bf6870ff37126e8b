package invoice

import (
	"strings"
)

const systemPrompt = `Você extrai dados estruturados de faturas de energia da Equatorial Goiás.
Responda somente com um objeto JSON que siga exatamente o schema fornecido.`

// extractionRules are the business rules the model must follow. They mirror
// the invariants enforced on the local record.
const extractionRules = `REGRAS DE EXTRAÇÃO:
1. "apresentacao" é a data de apresentação da fatura ao cliente (dd/mm/aaaa), não a data de emissão nem a de vencimento.
2. As datas de leitura aparecem em sequência na tabela "Data de leituras": a primeira é a leitura anterior, a segunda é a leitura atual e a terceira é a data da próxima leitura ("data_proxima_leitura").
3. "beneficio_tarifario_liquido" é sempre menor ou igual a zero. Se o valor aparecer positivo na fatura, devolva-o negativo.
4. "consumo_scee_tarifa_unitaria" nunca pode ser maior que "consumo_scee_preco_unit_com_tributos". Se a leitura indicar o contrário, devolva null para a tarifa.
5. Valores monetários e quantidades são números com ponto decimal (1.234,56 na fatura vira 1234.56). Datas ficam no formato dd/mm/aaaa.
6. "fatura_debito_automatico" é "yes" somente quando a fatura indicar débito automático ativo; caso contrário "no".
7. Preencha todos os campos do schema. Use null quando o dado não existir na fatura; nunca invente valores.`

// BuildPrompt embeds the extraction rules and the normalized document text.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(extractionRules) + len(text) + 64)
	b.WriteString(extractionRules)
	b.WriteString("\n\nTEXTO DA FATURA:\n")
	b.WriteString(text)
	return b.String()
}
