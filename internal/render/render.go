// Package render turns a ledger snapshot into terminal lines.
package render

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/ledger"
)

// DefaultCurrency is the symbol printed before amounts.
const DefaultCurrency = "R$"

// View is everything a screen shows.
type View struct {
	Currency     string
	Balance      decimal.Decimal
	Transactions []ledger.Transaction
	Range        *ledger.DateRange
}

// FromSnapshot builds the view of a loaded snapshot.
func FromSnapshot(snap ledger.Snapshot, currency string) View {
	return View{Currency: currency, Balance: snap.Balance, Transactions: snap.Transactions, Range: snap.Range}
}

// Money formats an amount with two decimals.
func Money(currency string, amount decimal.Decimal) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return currency + " " + amount.StringFixed(2)
}

// Lines renders v. The output depends only on v.
func Lines(v View) []string {
	lines := []string{"Saldo: " + Money(v.Currency, v.Balance)}
	if v.Range != nil {
		lines = append(lines, fmt.Sprintf("Período: %s a %s",
			v.Range.Start.Format(ledger.DateLayout), v.Range.End.Format(ledger.DateLayout)))
	}
	if len(v.Transactions) == 0 {
		return append(lines, "  (nenhuma transação)")
	}
	for _, tx := range v.Transactions {
		lines = append(lines, Row(v.Currency, tx))
	}
	return lines
}

// Row renders one transaction with the commands that act on it.
func Row(currency string, tx ledger.Transaction) string {
	return fmt.Sprintf("  %s %s: %s  %s  [edit %s %s] [delete %s %s]",
		tx.Kind.Glyph(), tx.Description, Money(currency, tx.Amount), tx.Date.Format(ledger.DateLayout),
		tx.Kind, tx.ID, tx.Kind, tx.ID)
}

// Render writes the lines of v to w.
func Render(w io.Writer, v View) error {
	for _, line := range Lines(v) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
