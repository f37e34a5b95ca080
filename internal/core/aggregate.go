package core

// Aggregation over transaction snapshots. Every function here is pure and
// synchronous: derived values are recomputed from scratch on each call, with
// no state retained between calls. The input slice is treated as an immutable
// snapshot and is never mutated.

// ApplyFilter returns the transactions whose date satisfies the filter,
// preserving input order (the storage layer supplies snapshots newest-first).
// A zero filter returns the input unchanged.
func ApplyFilter(txs []Transaction, f Filter) []Transaction {
	if f.IsZero() {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Matches(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// Totals sums income and expense over the given transactions.
// Remaining = income - expense and may be negative; see Summary.OverBudget.
func Totals(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			s.Income = s.Income.Add(tx.Amount)
		case Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Remaining = s.Income.Sub(s.Expense)
	return s
}

// OverBudget reports the budget-alert condition: more spent than earned.
// A negative remaining balance is a valid, expected state, not an error.
func (s Summary) OverBudget() bool {
	return s.Remaining.Negative()
}

// GroupByCategory restricts the transactions to the given type and sums
// amounts per distinct category, in first-seen order. Category labels are
// compared for exact equality; no case folding or trimming is applied.
func GroupByCategory(txs []Transaction, typ TxType) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, tx := range txs {
		if tx.Type != typ {
			continue
		}
		if i, ok := index[tx.Category]; ok {
			out[i].Amount = out[i].Amount.Add(tx.Amount)
			continue
		}
		index[tx.Category] = len(out)
		out = append(out, CategoryAmount{Name: tx.Category, Amount: tx.Amount})
	}
	return out
}
