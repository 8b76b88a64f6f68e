// Package offline is an AI backend that needs no network: statements are read
// line by line with regular expressions and insights come from ledger totals.
package offline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/ledger"
)

const Name = "offline"

type Backend struct {
	now func() time.Time
}

func New() *Backend { return &Backend{now: time.Now} }

func (b *Backend) Name() string { return Name }

// ExtractTransactions reads plain text and CSV statements. Binary formats
// need a model and are rejected with ai.ErrUnsupportedDocument.
func (b *Backend) ExtractTransactions(_ context.Context, doc ai.Document) (ai.Extraction, error) {
	if !isText(doc.MimeType) {
		return ai.Extraction{}, fmt.Errorf("%w: %s", ai.ErrUnsupportedDocument, doc.MimeType)
	}
	return parseStatement(string(doc.Data), b.now()), nil
}

func isText(mime string) bool {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.HasPrefix(mime, "text/") || mime == "application/csv"
}

func (b *Backend) GenerateInsights(_ context.Context, txs []core.Transaction) ([]core.Insight, error) {
	stats := ledger.ViewTotals(txs)
	alerts := make([]core.Insight, 0, 3)

	if stats.TotalExpense.GreaterThan(stats.TotalIncome) {
		alerts = append(alerts, core.Insight{
			Type:    core.InsightWarning,
			Title:   "Gastos acima das receitas",
			Message: fmt.Sprintf("Suas despesas superam as receitas em %s.", core.FormatBRL(stats.Balance.Neg())),
			Icon:    "warning",
		})
	} else {
		alerts = append(alerts, core.Insight{
			Type:    core.InsightSuccess,
			Title:   "Saldo positivo",
			Message: fmt.Sprintf("Você fechou o período com %s de saldo.", core.FormatBRL(stats.Balance)),
			Icon:    "savings",
		})
	}

	if top := ledger.TopCategories(txs, 1); len(top) == 1 && stats.TotalExpense.IsPositive() {
		share := top[0].Amount.Div(stats.TotalExpense).Mul(decimal.NewFromInt(100)).Round(0)
		alerts = append(alerts, core.Insight{
			Type:    core.InsightInfo,
			Title:   "Maior categoria: " + top[0].Name,
			Message: fmt.Sprintf("%s concentra %s%% das suas despesas (%s).", top[0].Name, share.String(), core.FormatBRL(top[0].Amount)),
			Icon:    "pie_chart",
		})
	}

	split := ledger.Split(txs)
	if split.Total.IsPositive() {
		wantsShare := split.Wants.Div(split.Total)
		if wantsShare.GreaterThan(decimal.NewFromFloat(0.3)) {
			alerts = append(alerts, core.Insight{
				Type:    core.InsightWarning,
				Title:   "Desejos acima de 30%",
				Message: "Gastos com desejos passaram da faixa recomendada pela regra 50/30/20.",
				Icon:    "shopping_bag",
			})
		} else if split.Savings.IsPositive() {
			alerts = append(alerts, core.Insight{
				Type:    core.InsightSuccess,
				Title:   "Reserva em dia",
				Message: fmt.Sprintf("Você destinou %s para investimentos e reserva.", core.FormatBRL(split.Savings)),
				Icon:    "trending_up",
			})
		}
	}
	return alerts, nil
}

func (b *Backend) Chat(_ context.Context, req ai.ChatRequest) (string, error) {
	stats := ledger.ViewTotals(req.Transactions)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Resumo dos seus dados: receitas de %s, despesas de %s e saldo de %s.",
		core.FormatBRL(stats.TotalIncome), core.FormatBRL(stats.TotalExpense), core.FormatBRL(stats.Balance))

	if top := ledger.TopCategories(req.Transactions, 1); len(top) == 1 {
		fmt.Fprintf(&sb, " Sua maior categoria de gasto é %s (%s).", top[0].Name, core.FormatBRL(top[0].Amount))
	}
	if p := req.Profile; p != nil && p.MonthlyIncome.IsPositive() {
		ratio := stats.TotalExpense.Div(p.MonthlyIncome).Mul(decimal.NewFromInt(100)).Round(0)
		fmt.Fprintf(&sb, " Isso representa %s%% da sua renda mensal declarada.", ratio.String())
	}
	sb.WriteString(" Para análises detalhadas, configure um provedor de IA.")
	return sb.String(), nil
}
