package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Filter narrows a transaction view. Zero fields match everything.
type Filter struct {
	Month  string // YYYY-MM prefix of the date
	Query  string // case-insensitive match on description, category or source
	PeerID string
	Type   core.TransactionType
}

// Match reports whether tx passes the filter.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Month != "" && !strings.HasPrefix(tx.Date, f.Month) {
		return false
	}
	if f.PeerID != "" && tx.PeerID != f.PeerID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Category), q) ||
			strings.Contains(strings.ToLower(tx.Source), q)
	}
	return true
}

// Apply returns the transactions that pass f, preserving order.
func Apply(txs []core.Transaction, f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// SortForDisplay orders by date descending, then id descending.
func SortForDisplay(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].ID > txs[j].ID
	})
}

// View filters and sorts the ledger for display.
func (l *Ledger) View(f Filter) []core.Transaction {
	view := Apply(l.Transactions(), f)
	SortForDisplay(view)
	return view
}

// ViewTotals folds a view; anything that is not income counts as expense.
func ViewTotals(txs []core.Transaction) core.Stats {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Type == core.Income {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}
	return core.Stats{TotalIncome: income, TotalExpense: expense, Balance: income.Sub(expense)}
}

// ExpensesByCategory sums expenses per category, largest first.
func ExpensesByCategory(txs []core.Transaction) []core.CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopCategories returns at most n categories from ExpensesByCategory.
func TopCategories(txs []core.Transaction, n int) []core.CategoryAmount {
	cats := ExpensesByCategory(txs)
	if n >= 0 && len(cats) > n {
		cats = cats[:n]
	}
	return cats
}

var (
	needsCategories   = map[string]bool{"Moradia": true, "Saúde": true, "Educação": true, "Serviços": true, "Transporte": true, "Mercado": true}
	savingsCategories = map[string]bool{"Investimento": true, "Reserva": true}
)

// Split buckets expenses by the 50/30/20 rule.
func Split(txs []core.Transaction) core.BudgetSplit {
	split := core.BudgetSplit{Needs: decimal.Zero, Wants: decimal.Zero, Savings: decimal.Zero, Total: decimal.Zero}
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		switch {
		case needsCategories[tx.Category]:
			split.Needs = split.Needs.Add(tx.Amount)
		case savingsCategories[tx.Category]:
			split.Savings = split.Savings.Add(tx.Amount)
		default:
			split.Wants = split.Wants.Add(tx.Amount)
		}
		split.Total = split.Total.Add(tx.Amount)
	}
	return split
}

// DailyTotals returns one entry per day of the month, in calendar order.
func DailyTotals(txs []core.Transaction, year int, month time.Month) []core.DailyTotal {
	days := core.DaysIn(year, month)
	out := make([]core.DailyTotal, days)
	index := make(map[string]int, days)
	for d := 1; d <= days; d++ {
		date := fmt.Sprintf("%s-%02d", core.MonthKey(year, month), d)
		out[d-1] = core.DailyTotal{Date: date, Expense: decimal.Zero, Income: decimal.Zero}
		index[date] = d - 1
	}
	for _, tx := range txs {
		i, ok := index[tx.Date]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Expense:
			out[i].Expense = out[i].Expense.Add(tx.Amount)
		case core.Income:
			out[i].Income = out[i].Income.Add(tx.Amount)
		}
	}
	return out
}
