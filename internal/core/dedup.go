package core

import "github.com/shopspring/decimal"

// DuplicateTolerance is the absolute amount difference under which two
// amounts are treated as equal by IsDuplicate.
var DuplicateTolerance = decimal.New(1, -2)

// AmountsMatch reports whether |a-b| < DuplicateTolerance.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(DuplicateTolerance)
}

// IsDuplicate reports whether candidate already exists in pool.
//
// Description, date, type and source must match exactly and amounts within
// DuplicateTolerance. When the candidate carries installments the existing
// row must carry the same current/total; a candidate without installments
// matches regardless of the existing row's installment state.
func IsDuplicate(candidate Transaction, pool []Transaction) bool {
	for _, existing := range pool {
		if sameOccurrence(candidate, existing) {
			return true
		}
	}
	return false
}

func sameOccurrence(c, e Transaction) bool {
	if c.Description != e.Description ||
		c.Date != e.Date ||
		c.Type != e.Type ||
		c.Source != e.Source ||
		!AmountsMatch(c.Amount, e.Amount) {
		return false
	}
	if c.Installments == nil {
		return true
	}
	return e.Installments != nil &&
		e.Installments.Current == c.Installments.Current &&
		e.Installments.Total == c.Installments.Total
}
