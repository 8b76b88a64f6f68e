package offline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/ai"
	"financas/internal/core"
)

const statement = `Nubank - Fatura de junho
Saldo anterior 1.200,00
05/06 Supermercado Pão Dourado R$ 245,90
07/06 Loja Eletro 03/10 R$ 1.299,00
2024-06-10 Netflix 55.90
12/06 Salário ACME +5.000,00
15/06 Curso de inglês 6x 300,00
Total da fatura 1.900,80
Obrigado por usar nosso cartão`

func newTestBackend() *Backend {
	b := New()
	b.now = func() time.Time { return time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC) }
	return b
}

func TestExtractStatement(t *testing.T) {
	out, err := newTestBackend().ExtractTransactions(context.Background(), ai.Document{
		Data:     []byte(statement),
		MimeType: "text/plain; charset=utf-8",
	})
	require.NoError(t, err)
	assert.Equal(t, "Nubank", out.BankName)
	require.Len(t, out.Items, 5)

	market := out.Items[0]
	assert.Equal(t, "Supermercado Pão Dourado", market.Description)
	assert.True(t, decimal.RequireFromString("245.90").Equal(market.Amount))
	assert.Equal(t, "2024-06-05", market.Date)
	assert.Equal(t, "Mercado", market.Category)
	assert.Equal(t, "expense", market.Type)
	assert.Nil(t, market.Installments)

	eletro := out.Items[1]
	assert.Equal(t, "Loja Eletro", eletro.Description)
	assert.True(t, decimal.RequireFromString("1299").Equal(eletro.Amount))
	assert.Equal(t, &core.Installments{Current: 3, Total: 10}, eletro.Installments)

	assert.Equal(t, "2024-06-10", out.Items[2].Date)
	assert.Equal(t, "Lazer", out.Items[2].Category)

	salary := out.Items[3]
	assert.Equal(t, "income", salary.Type)
	assert.Equal(t, "Receita", salary.Category)
	assert.True(t, decimal.RequireFromString("5000").Equal(salary.Amount))

	course := out.Items[4]
	assert.Equal(t, &core.Installments{Current: 1, Total: 6}, course.Installments)
	assert.Equal(t, "Educação", course.Category)
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := New().ExtractTransactions(context.Background(), ai.Document{Data: []byte("%PDF"), MimeType: "application/pdf"})
	assert.ErrorIs(t, err, ai.ErrUnsupportedDocument)
}

func sampleTransactions() []core.Transaction {
	d := decimal.RequireFromString
	return []core.Transaction{
		{ID: 1, Description: "Salário", Amount: d("3000"), Date: "2024-06-01", Type: core.Income, Category: "Receita"},
		{ID: 2, Description: "Aluguel", Amount: d("1500"), Date: "2024-06-02", Type: core.Expense, Category: "Moradia"},
		{ID: 3, Description: "Show", Amount: d("2000"), Date: "2024-06-03", Type: core.Expense, Category: "Lazer"},
	}
}

func TestGenerateInsights(t *testing.T) {
	alerts, err := New().GenerateInsights(context.Background(), sampleTransactions())
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	for _, a := range alerts {
		assert.NoError(t, a.Validate())
	}
	assert.Equal(t, core.InsightWarning, alerts[0].Type)
	assert.Equal(t, "Maior categoria: Lazer", alerts[1].Title)
	assert.Equal(t, "Desejos acima de 30%", alerts[2].Title)
}

func TestChatUsesProfile(t *testing.T) {
	profile := core.DefaultProfile()
	profile.MonthlyIncome = decimal.NewFromInt(5000)

	reply, err := New().Chat(context.Background(), ai.ChatRequest{
		Message:      "Como estou?",
		Transactions: sampleTransactions(),
		Profile:      &profile,
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "R$ 3.500,00")
	assert.Contains(t, reply, "70%")
}
