package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/dataservice"
)

// DateLayout is the wire format of occurrence dates.
const DateLayout = "2006-01-02"

// User-facing validation messages.
const (
	MsgInvalidRange       = "Selecione um período válido."
	MsgInvalidAmount      = "Valor inválido."
	MsgMissingDescription = "Descrição obrigatória."
)

// ErrInvalidKind is returned by ParseKind for anything but income or expense.
var ErrInvalidKind = errors.New("invalid transaction kind")

// Kind tags a transaction as income or expense.
type Kind int

const (
	Income Kind = iota + 1
	Expense
)

// ParseKind accepts the English and Portuguese names of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita":
		return Income, nil
	case "expense", "despesa":
		return Expense, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k Kind) String() string {
	switch k {
	case Income:
		return "income"
	case Expense:
		return "expense"
	}
	return "unknown"
}

// Table is the data-service table holding rows of this kind.
func (k Kind) Table() string {
	if k == Income {
		return dataservice.TableIncome
	}
	return dataservice.TableExpense
}

func (k Kind) Glyph() string {
	if k == Income {
		return "➕"
	}
	return "➖"
}

// Sign is +1 for income and -1 for expense.
func (k Kind) Sign() decimal.Decimal {
	if k == Income {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

func (k Kind) valid() bool { return k == Income || k == Expense }

// Transaction is a single income or expense entry.
type Transaction struct {
	ID          string
	UserID      string
	Kind        Kind
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// Signed returns the amount with the sign of its kind.
func (t Transaction) Signed() decimal.Decimal {
	return t.Amount.Mul(t.Kind.Sign())
}

// DateRange is an inclusive range of occurrence dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange builds a validated range from two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, errStart := time.Parse(DateLayout, strings.TrimSpace(start))
	e, errEnd := time.Parse(DateLayout, strings.TrimSpace(end))
	if errStart != nil || errEnd != nil {
		return DateRange{}, &ValidationError{Message: MsgInvalidRange}
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate requires both bounds with Start not after End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.Start.After(r.End) {
		return &ValidationError{Message: MsgInvalidRange}
	}
	return nil
}

func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// ValidationError is raised before any call to the data service.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LoadError reports that one of the paired fetches failed. Rows from the
// other fetch are discarded.
type LoadError struct {
	Kind Kind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s transactions: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
