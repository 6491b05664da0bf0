package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is the sum of income minus the sum of expenses.
func Balance(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

// Merge tags both sets with their kind and orders them newest first. Equal
// dates keep income before expense and the fetch order within a kind.
func Merge(income, expense []Transaction) []Transaction {
	out := make([]Transaction, 0, len(income)+len(expense))
	for _, tx := range income {
		tx.Kind = Income
		out = append(out, tx)
	}
	for _, tx := range expense {
		tx.Kind = Expense
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
