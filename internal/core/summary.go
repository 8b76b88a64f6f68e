package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// BudgetSplit buckets expenses into the 50/30/20 needs/wants/savings rule.
type BudgetSplit struct {
	Needs   decimal.Decimal `json:"needs"`
	Wants   decimal.Decimal `json:"wants"`
	Savings decimal.Decimal `json:"savings"`
	Total   decimal.Decimal `json:"total"`
}

// DailyTotal holds the sums charged and received on one calendar day.
type DailyTotal struct {
	Date    string          `json:"date"`
	Expense decimal.Decimal `json:"expense"`
	Income  decimal.Decimal `json:"income"`
}

// PeerBalance is how much a peer owes for delegated expenses.
type PeerBalance struct {
	Peer        Peer            `json:"peer"`
	Expected    decimal.Decimal `json:"expected"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
