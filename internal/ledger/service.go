package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/dataservice"
)

// Snapshot is the result of a full load: the merged transactions and the
// balance folded over exactly that set.
type Snapshot struct {
	Balance      decimal.Decimal
	Transactions []Transaction
	Range        *DateRange
}

// Service reads and writes transactions through the data service. Every
// query is scoped by user id.
type Service struct {
	store dataservice.Store
	now   func() time.Time
}

// NewService creates a ledger service backed by store.
func NewService(store dataservice.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func validateEntry(amount decimal.Decimal, description string) error {
	if amount.IsNegative() {
		return &ValidationError{Message: MsgInvalidAmount}
	}
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Message: MsgMissingDescription}
	}
	return nil
}

// Add inserts a transaction. A zero date means today.
func (s *Service) Add(ctx context.Context, userID string, kind Kind, amount decimal.Decimal, description string, date time.Time) (Transaction, error) {
	if !kind.valid() {
		return Transaction{}, ErrInvalidKind
	}
	if err := validateEntry(amount, description); err != nil {
		return Transaction{}, err
	}
	if date.IsZero() {
		date = s.now()
	}

	row, err := s.store.Insert(ctx, kind.Table(), dataservice.Row{
		"user_id":     userID,
		"amount":      amount.StringFixed(2),
		"description": strings.TrimSpace(description),
		"date":        date.Format(DateLayout),
	})
	if err != nil {
		return Transaction{}, err
	}
	return fromRow(kind, row)
}

// Get fetches a single transaction owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string, kind Kind) (Transaction, error) {
	if !kind.valid() {
		return Transaction{}, ErrInvalidKind
	}
	rows, err := s.store.Select(ctx, kind.Table(), dataservice.Eq("id", id).Eq("user_id", userID))
	if err != nil {
		return Transaction{}, err
	}
	if len(rows) == 0 {
		return Transaction{}, dataservice.NotFound("select", kind.Table())
	}
	return fromRow(kind, rows[0])
}

// Update rewrites amount and description of a transaction.
func (s *Service) Update(ctx context.Context, userID, id string, kind Kind, amount decimal.Decimal, description string) error {
	if !kind.valid() {
		return ErrInvalidKind
	}
	if err := validateEntry(amount, description); err != nil {
		return err
	}
	values := dataservice.Row{
		"amount":      amount.StringFixed(2),
		"description": strings.TrimSpace(description),
	}
	return s.store.Update(ctx, kind.Table(), values, dataservice.Eq("id", id).Eq("user_id", userID))
}

// Delete removes a transaction.
func (s *Service) Delete(ctx context.Context, userID, id string, kind Kind) error {
	if !kind.valid() {
		return ErrInvalidKind
	}
	return s.store.Delete(ctx, kind.Table(), dataservice.Eq("id", id).Eq("user_id", userID))
}

// Load fetches income and expense for userID, optionally limited to r, and
// folds the balance over the result. If either fetch fails nothing is
// returned.
func (s *Service) Load(ctx context.Context, userID string, r *DateRange) (Snapshot, error) {
	if r != nil {
		if err := r.Validate(); err != nil {
			return Snapshot{}, err
		}
	}

	income, err := s.list(ctx, userID, Income, r)
	if err != nil {
		return Snapshot{}, &LoadError{Kind: Income, Err: err}
	}
	expense, err := s.list(ctx, userID, Expense, r)
	if err != nil {
		return Snapshot{}, &LoadError{Kind: Expense, Err: err}
	}

	txs := Merge(income, expense)
	snap := Snapshot{Balance: Balance(txs), Transactions: txs}
	if r != nil {
		rr := *r
		snap.Range = &rr
	}
	return snap, nil
}

func (s *Service) list(ctx context.Context, userID string, kind Kind, r *DateRange) ([]Transaction, error) {
	filter := dataservice.Eq("user_id", userID)
	if r != nil {
		filter = filter.Gte("date", r.Start.Format(DateLayout)).Lte("date", r.End.Format(DateLayout))
	}
	rows, err := s.store.Select(ctx, kind.Table(), filter)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromRow(kind, row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func fromRow(kind Kind, row dataservice.Row) (Transaction, error) {
	amount, err := decimal.NewFromString(row["amount"])
	if err != nil {
		return Transaction{}, fmt.Errorf("%s row %s: amount %q: %w", kind, row["id"], row["amount"], err)
	}
	date, err := time.Parse(DateLayout, row["date"])
	if err != nil {
		return Transaction{}, fmt.Errorf("%s row %s: date %q: %w", kind, row["id"], row["date"], err)
	}
	return Transaction{
		ID:          row["id"],
		UserID:      row["user_id"],
		Kind:        kind,
		Amount:      amount,
		Description: row["description"],
		Date:        date,
	}, nil
}
