package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
)

func sampleLedger() *Ledger {
	l := newTestLedger(WithPeers(DefaultPeers()...))
	salary := tx("Salário", "5000", "2024-06-05", core.Income)
	salary.Category = "Salário"
	l.Add(salary)

	rent := tx("Aluguel", "1500", "2024-06-06", core.Expense)
	rent.Category = "Moradia"
	l.Add(rent)

	dinner := tx("Jantar Outback", "240", "2024-06-06", core.Expense)
	dinner.Category = "Lazer"
	dinner.Source = "Nubank"
	dinner.PeerID = "1"
	l.Add(dinner)

	invest := tx("Tesouro Selic", "500", "2024-05-20", core.Expense)
	invest.Category = "Investimento"
	l.Add(invest)

	partial := tx("Pagamento de Ana Souza", "100", "2024-06-10", core.Income)
	partial.Category = "Reembolso"
	partial.PeerID = "1"
	l.Add(partial)
	return l
}

func TestViewFiltersAndSorts(t *testing.T) {
	l := sampleLedger()

	june := l.View(Filter{Month: "2024-06"})
	require.Len(t, june, 4)
	assert.Equal(t, "2024-06-10", june[0].Date)
	// same date: higher id first
	assert.Equal(t, "Jantar Outback", june[1].Description)
	assert.Equal(t, "Aluguel", june[2].Description)

	bySource := l.View(Filter{Query: "nubank"})
	require.Len(t, bySource, 1)
	assert.Equal(t, "Jantar Outback", bySource[0].Description)

	byCategory := l.View(Filter{Query: "MORADIA"})
	require.Len(t, byCategory, 1)

	peer := l.View(Filter{PeerID: "1", Type: core.Expense})
	require.Len(t, peer, 1)
}

func TestViewTotals(t *testing.T) {
	l := sampleLedger()
	totals := ViewTotals(l.View(Filter{Month: "2024-06"}))
	assert.True(t, totals.TotalIncome.Equal(amt("5100")))
	assert.True(t, totals.TotalExpense.Equal(amt("1740")))
	assert.True(t, totals.Balance.Equal(amt("3360")))
}

func TestExpensesByCategoryAndTop(t *testing.T) {
	l := sampleLedger()
	cats := ExpensesByCategory(l.Transactions())
	require.Len(t, cats, 3)
	assert.Equal(t, "Moradia", cats[0].Name)
	assert.Equal(t, "Investimento", cats[1].Name)
	assert.Equal(t, "Lazer", cats[2].Name)

	top := TopCategories(l.Transactions(), 2)
	assert.Len(t, top, 2)
}

func TestSplit(t *testing.T) {
	split := Split(sampleLedger().Transactions())
	assert.True(t, split.Needs.Equal(amt("1500")))
	assert.True(t, split.Wants.Equal(amt("240")))
	assert.True(t, split.Savings.Equal(amt("500")))
	assert.True(t, split.Total.Equal(amt("2240")))
}

func TestDailyTotals(t *testing.T) {
	days := DailyTotals(sampleLedger().Transactions(), 2024, 6)
	require.Len(t, days, 30)
	assert.Equal(t, "2024-06-01", days[0].Date)
	assert.True(t, days[5].Expense.Equal(amt("1740")))
	assert.True(t, days[4].Income.Equal(amt("5000")))
	assert.True(t, days[29].Expense.IsZero())

	assert.Len(t, DailyTotals(nil, 2024, 2), 29)
}

func TestPeerBalancesAndSettle(t *testing.T) {
	l := sampleLedger()

	balances := l.PeerBalances()
	require.Len(t, balances, 2)
	ana := balances[0]
	assert.Equal(t, "1", ana.Peer.ID)
	assert.True(t, ana.Expected.Equal(amt("240")))
	assert.True(t, ana.Paid.Equal(amt("100")))
	assert.True(t, ana.Outstanding.Equal(amt("140")))
	assert.True(t, balances[1].Outstanding.IsZero())
	assert.True(t, TotalReceivable(balances).Equal(amt("140")))

	out, err := l.SettlePeer("1", amt("200"))
	require.NoError(t, err)
	require.Len(t, out.Added, 1)
	payment := out.Added[0]
	assert.Equal(t, "Pagamento de Ana Souza", payment.Description)
	assert.Equal(t, "Reembolso", payment.Category)
	assert.Equal(t, core.Income, payment.Type)
	assert.Equal(t, "2024-06-15", payment.Date)
	assert.Equal(t, core.DefaultSource, payment.Source)

	// overpaid peers never go negative
	assert.True(t, l.PeerBalances()[0].Outstanding.IsZero())
	assert.True(t, TotalReceivable(l.PeerBalances()).IsZero())

	// same settlement on the same day is a duplicate
	out, err = l.SettlePeer("1", amt("200"))
	require.NoError(t, err)
	assert.Empty(t, out.Added)

	_, err = l.SettlePeer("404", amt("1"))
	assert.ErrorIs(t, err, ErrPeerNotFound)
	_, err = l.SettlePeer("2", amt("0"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
