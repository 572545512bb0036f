package llm

import (
	"fmt"
	"strings"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/entity"
)

// BuildExtractionPrompt embeds the raw proposal text and the field/type
// contract: which keys, which types, which sentinels for "unknown" and the
// closed tag set for the proposal type.
func BuildExtractionPrompt(text string) string {
	tags := constants.PromptTypeTags()
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = `"` + t + `"`
	}
	tagLine := strings.Join(quoted[:len(quoted)-1], ", ") + " ou " + quoted[len(quoted)-1]

	var b strings.Builder
	b.WriteString("Você é um assistente especialista em análise de propostas comerciais. ")
	b.WriteString("Sua tarefa é extrair as seguintes informações do texto abaixo e retorná-las em formato JSON.\n\n")
	b.WriteString("Texto da Proposta:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n\n")
	b.WriteString("Extraia os seguintes campos:\n")
	b.WriteString(`- "nome_cliente": O nome da empresa ou pessoa para quem a proposta é destinada.` + "\n")
	b.WriteString(`- "valor_proposta": O valor total da proposta. Extraia apenas o número (float), sem símbolos de moeda. Se houver múltiplos valores, pegue o valor total.` + "\n")
	b.WriteString(`- "produto_servico": Uma breve descrição do principal produto ou serviço ofertado.` + "\n")
	b.WriteString(`- "proposal_type": A categoria da proposta. Use uma das seguintes tags: ` + tagLine + ".\n")
	b.WriteString(`- "condicoes": Um resumo das principais condições, como prazos de entrega, validade da proposta ou formas de pagamento.` + "\n\n")
	b.WriteString(`Se uma informação não for encontrada, use o valor "N/A" para strings ou 0.0 para o valor.` + "\n")
	b.WriteString("Responda APENAS com o objeto JSON, sem nenhum texto ou formatação adicional.")
	return b.String()
}

// BuildSummaryPrompt asks for a short executive summary aimed at a busy
// decision-maker.
func BuildSummaryPrompt(f ProposalFields) string {
	var b strings.Builder
	b.WriteString("Com base nos seguintes dados de uma proposta comercial, crie um resumo executivo para um gerente de vendas ocupado.\n")
	b.WriteString("O resumo deve ser conciso (3-4 frases), em português, e destacar os pontos mais importantes para uma tomada de decisão rápida.\n\n")
	b.WriteString("Dados da Proposta:\n")
	fmt.Fprintf(&b, "- Cliente: %s\n", f.ClientName)
	fmt.Fprintf(&b, "- Valor: R$ %.2f\n", f.ProposalValue)
	fmt.Fprintf(&b, "- Produto/Serviço: %s\n", f.ProductOrService)
	fmt.Fprintf(&b, "- Condições/Prazos: %s\n\n", f.Terms)
	b.WriteString("Seja direto e informativo.")
	return b.String()
}

// BuildPredictionPrompt constrains the model to answer with a single label.
func BuildPredictionPrompt(f ProposalFields) string {
	var b strings.Builder
	b.WriteString("Com base nos seguintes dados de uma proposta comercial, preveja se ela será 'aceita', 'recusada' ou 'pendente'.\n")
	b.WriteString("Considere o cliente, o valor, o tipo de proposta e as condições.\n")
	b.WriteString("Responda APENAS com uma das palavras: 'aceita', 'recusada' ou 'pendente'.\n\n")
	b.WriteString("Dados da Proposta:\n")
	fmt.Fprintf(&b, "- Cliente: %s\n", f.ClientName)
	fmt.Fprintf(&b, "- Valor: R$ %.2f\n", f.ProposalValue)
	fmt.Fprintf(&b, "- Produto/Serviço: %s\n", f.ProductOrService)
	fmt.Fprintf(&b, "- Tipo de Proposta: %s\n", f.ProposalType)
	fmt.Fprintf(&b, "- Condições: %s\n", f.Terms)
	return b.String()
}

// BuildPendingDigestPrompt aggregates pending proposals into a single prompt
// asking for a short operator digest.
func BuildPendingDigestPrompt(proposals []entity.Proposal) string {
	var lines strings.Builder
	for _, p := range proposals {
		fmt.Fprintf(&lines, "- Cliente: %s, Valor: R$ %.2f, Produto: %s, Status: %s\n",
			p.ClientName, p.ProposalValue, p.ProductOrService, p.Status)
	}

	var b strings.Builder
	b.WriteString("Com base na lista de propostas pendentes abaixo, crie um resumo conciso (máximo 100 palavras)\n")
	b.WriteString("destacando o número total de propostas pendentes, o valor total envolvido e os principais clientes ou produtos/serviços.\n\n")
	b.WriteString("Propostas Pendentes:\n---\n")
	b.WriteString(lines.String())
	b.WriteString("---\n\n")
	b.WriteString("Seja direto e informativo.")
	return b.String()
}
