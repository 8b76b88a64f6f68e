package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"financas/internal/core"
)

// ChatContextLimit is how many transactions are handed to the advisor.
const ChatContextLimit = 50

const defaultProfileContext = "Perfil do usuário não definido. Assuma um perfil moderado."

const insightsInstruction = `Analise as seguintes transações financeiras e forneça 3 alertas/insights importantes para um dashboard pessoal.
Foque em anomalias de gastos, contas recorrentes próximas ou oportunidades de economia.
Use português do Brasil (pt-BR).
Responda APENAS com JSON no formato {"alerts":[{"type":"warning|info|success","title":string,"message":string,"icon":string}]}.

Transações: %s`

const advisorInstruction = `Você é o Finanças IA, um estrategista financeiro pessoal de elite.
Seu objetivo não é apenas responder, mas GUIAR o usuário para a saúde financeira.

%s

Transações Recentes: %s.

DIRETRIZES DE PERSONALIDADE:
1. Seja direto e estratégico. Evite clichês genéricos.
2. Se o usuário tem o objetivo de "Sair das dívidas", priorize agressivamente cortes de gastos supérfluos nas suas sugestões.
3. Se o usuário é "Investidor", sugira alocação de sobras.
4. Use português do Brasil (pt-BR).
5. Compare os gastos atuais com a Renda Mensal declarada para dar choques de realidade se necessário.`

// ExtractionInstruction is sent together with the document bytes.
const ExtractionInstruction = `Você é um auditor financeiro rigoroso. Analise este documento (imagem/PDF) e extraia transações financeiras.

DIRETRIZES ESTRITAS:
1. INSTITUIÇÃO: Tente identificar o nome do banco ou cartão (ex: Nubank, Inter, Itaú) no cabeçalho.
2. DATAS: Converta TODAS as datas para o formato ISO 8601 (YYYY-MM-DD). Se o ano não estiver visível, assuma o ano ATUAL. Se a data for ambígua, use o primeiro dia do mês corrente.
3. VALORES: Apenas números float positivos. Ignore símbolos de moeda (R$).
4. PARCELAS: É CRUCIAL identificar parcelamentos. Procure por "01/12", "10x", "Parc 1 de 5".
   - Se encontrar "01/10" -> current: 1, total: 10.
   - Se encontrar "10x" em uma compra nova -> current: 1, total: 10.
   - Se encontrar "05/10" -> current: 5, total: 10.
5. LISTAGEM: Se for uma fatura de cartão, liste CADA compra individualmente. Não agrupe.
6. CETICISMO: Se uma linha não parecer claramente uma transação financeira (ex: saldos anteriores, textos de marketing, subtotais parciais), IGNORE-A.

Formato: {"bankName":string,"items":[{"description":string,"amount":number,"date":"YYYY-MM-DD","category":string,"type":"income|expense","installments":{"current":number,"total":number}|null}]}
Retorne APENAS o JSON.`

// InsightsPrompt renders the insight request for txs.
func InsightsPrompt(txs []core.Transaction) (string, error) {
	data, err := marshalTransactions(txs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(insightsInstruction, data), nil
}

// AdvisorInstruction renders the system instruction of the chat advisor.
func AdvisorInstruction(profile *core.UserProfile, txs []core.Transaction) (string, error) {
	if len(txs) > ChatContextLimit {
		txs = txs[:ChatContextLimit]
	}
	data, err := marshalTransactions(txs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(advisorInstruction, profileContext(profile), data), nil
}

func profileContext(p *core.UserProfile) string {
	if p == nil {
		return defaultProfileContext
	}
	var b strings.Builder
	b.WriteString("DADOS DO PERFIL DO USUÁRIO (USE ISSO PARA PERSONALIZAR A RESPOSTA):\n")
	fmt.Fprintf(&b, "- Renda Mensal Declarada: %s\n", core.FormatBRL(p.MonthlyIncome))
	fmt.Fprintf(&b, "- Objetivos Financeiros: %s\n", strings.Join(p.Goals, ", "))
	fmt.Fprintf(&b, "- Perfil de Risco: %s", p.RiskProfile)
	return b.String()
}

func marshalTransactions(txs []core.Transaction) (string, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("marshal transactions: %w", err)
	}
	return string(data), nil
}
