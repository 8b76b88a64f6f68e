package core

// IDSource hands out transaction ids. Ids must not repeat within a session.
type IDSource interface {
	NextID() int64
}

// GroupIDSource hands out installment group identifiers.
type GroupIDSource interface {
	NextGroupID() string
}

// Expand turns one transaction declaration into the rows to store.
//
// Without installments (or with Total <= 1) the result is the input as given
// with its source normalized; a fresh id is assigned only when the input has
// none.
// With Total > 1 one row per remaining installment is produced, ascending,
// each one calendar month after the previous, sharing GroupID and FinalDate.
func Expand(tx Transaction, ids IDSource, groups GroupIDSource) []Transaction {
	tx = tx.Clone()
	tx.Source = NormalizeSource(tx.Source)

	if tx.Installments == nil || tx.Installments.Total <= 1 {
		if tx.ID == 0 {
			tx.ID = ids.NextID()
		}
		return []Transaction{tx}
	}

	current := tx.Installments.Current
	if current < 1 {
		current = 1
	}
	total := tx.Installments.Total
	if current > total {
		current = total
	}

	groupID := tx.GroupID
	if groupID == "" {
		groupID = groups.NextGroupID()
	}
	finalDate := AddCalendarMonths(tx.Date, total-current)

	rows := make([]Transaction, 0, total-current+1)
	for i := current; i <= total; i++ {
		row := tx
		row.ID = ids.NextID()
		row.Date = AddCalendarMonths(tx.Date, i-current)
		row.GroupID = groupID
		row.FinalDate = finalDate
		row.Installments = &Installments{Current: i, Total: total}
		rows = append(rows, row)
	}
	return rows
}
