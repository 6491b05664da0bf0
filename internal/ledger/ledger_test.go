package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/store"
)

const (
	userA = "6f1c1e2a-0000-4000-8000-000000000001"
	userB = "6f1c1e2a-0000-4000-8000-000000000002"
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBalanceIsIncomeMinusExpense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var txs []Transaction
		sumIncome, sumExpense := decimal.Zero, decimal.Zero
		n := rng.Intn(20)
		for i := 0; i < n; i++ {
			amount := decimal.New(rng.Int63n(1_000_000), -2)
			if rng.Intn(2) == 0 {
				sumIncome = sumIncome.Add(amount)
				txs = append(txs, Transaction{Kind: Income, Amount: amount})
			} else {
				sumExpense = sumExpense.Add(amount)
				txs = append(txs, Transaction{Kind: Expense, Amount: amount})
			}
		}
		if got, want := Balance(txs), sumIncome.Sub(sumExpense); !got.Equal(want) {
			t.Fatalf("round %d: balance = %s, want %s", round, got, want)
		}
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	income := []Transaction{
		{ID: "i1", Date: day("2024-01-05")},
		{ID: "i2", Date: day("2024-01-20")},
	}
	expense := []Transaction{
		{ID: "e1", Date: day("2024-01-20")},
		{ID: "e2", Date: day("2024-01-01")},
	}
	got := Merge(income, expense)
	want := []string{"i2", "e1", "i1", "e2"}
	for i, tx := range got {
		if tx.ID != want[i] {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
		if i > 0 && tx.Date.After(got[i-1].Date) {
			t.Fatalf("dates not non-increasing at %d", i)
		}
	}
	if got[0].Kind != Income || got[1].Kind != Expense {
		t.Fatalf("kinds not tagged: %+v", got[:2])
	}
}

func ids(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"income": Income, "Receita": Income, "expense": Expense, " despesa ": Expense} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestParseDateRange(t *testing.T) {
	if _, err := ParseDateRange("2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("valid range: %v", err)
	}
	for _, c := range [][2]string{{"", "2024-01-31"}, {"2024-02-01", "2024-01-31"}, {"01/01/2024", "2024-01-31"}} {
		_, err := ParseDateRange(c[0], c[1])
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Message != MsgInvalidRange {
			t.Fatalf("ParseDateRange(%q, %q) = %v, want range error", c[0], c[1], err)
		}
	}
}

func TestAddEditDeleteScenario(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	if _, err := svc.Add(ctx, userA, Income, dec("100.00"), "Salary", day("2024-03-01")); err != nil {
		t.Fatalf("add income: %v", err)
	}
	snap, err := svc.Load(ctx, userA, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Balance.Equal(dec("100")) {
		t.Fatalf("balance = %s, want 100", snap.Balance)
	}

	lunch, err := svc.Add(ctx, userA, Expense, dec("30.00"), "Lunch", day("2024-03-02"))
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	snap, _ = svc.Load(ctx, userA, nil)
	if !snap.Balance.Equal(dec("70")) {
		t.Fatalf("balance = %s, want 70", snap.Balance)
	}

	if err := svc.Update(ctx, userA, lunch.ID, Expense, dec("45.50"), "Dinner"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Get(ctx, userA, lunch.ID, Expense)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "Dinner" || !got.Amount.Equal(dec("45.5")) {
		t.Fatalf("unexpected updated transaction: %+v", got)
	}

	if err := svc.Delete(ctx, userA, lunch.ID, Expense); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, _ = svc.Load(ctx, userA, nil)
	if !snap.Balance.Equal(dec("100")) || len(snap.Transactions) != 1 {
		t.Fatalf("after delete: balance %s, %d transactions", snap.Balance, len(snap.Transactions))
	}
}

func TestQueriesAreScopedByUser(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	tx, err := svc.Add(ctx, userA, Income, dec("10"), "Gift", day("2024-01-01"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Get(ctx, userB, tx.ID, Income); !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("other user get = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, userB, tx.ID, Income); !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("other user delete = %v, want ErrNotFound", err)
	}
	snap, _ := svc.Load(ctx, userB, nil)
	if len(snap.Transactions) != 0 {
		t.Fatalf("other user sees %d transactions", len(snap.Transactions))
	}
}

func TestLoadWithRange(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	seed := []struct {
		kind Kind
		date string
	}{
		{Income, "2023-12-31"},
		{Income, "2024-01-01"},
		{Expense, "2024-01-15"},
		{Income, "2024-01-31"},
		{Expense, "2024-02-01"},
	}
	for _, s := range seed {
		if _, err := svc.Add(ctx, userA, s.kind, dec("1"), "x", day(s.date)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	r, _ := ParseDateRange("2024-01-01", "2024-01-31")
	snap, err := svc.Load(ctx, userA, &r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var dates []string
	for _, tx := range snap.Transactions {
		if !r.Contains(tx.Date) {
			t.Fatalf("transaction %s outside range", tx.Date.Format(DateLayout))
		}
		dates = append(dates, tx.Date.Format(DateLayout))
	}
	want := []string{"2024-01-31", "2024-01-15", "2024-01-01"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates = %v, want %v", dates, want)
		}
	}
	if !snap.Balance.Equal(dec("1")) {
		t.Fatalf("balance = %s, want 1", snap.Balance)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()
	svc.Add(ctx, userA, Income, dec("12.34"), "a", day("2024-05-01"))
	svc.Add(ctx, userA, Expense, dec("2.34"), "b", day("2024-05-01"))

	first, err := svc.Load(ctx, userA, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, _ := svc.Load(ctx, userA, nil)
	if !first.Balance.Equal(second.Balance) || len(first.Transactions) != len(second.Transactions) {
		t.Fatalf("loads differ")
	}
	for i := range first.Transactions {
		if first.Transactions[i].ID != second.Transactions[i].ID {
			t.Fatalf("order differs at %d", i)
		}
	}
}

type failingSelect struct {
	dataservice.Store
	table string
}

func (f failingSelect) Select(ctx context.Context, table string, filter dataservice.Filter) ([]dataservice.Row, error) {
	if table == f.table {
		return nil, dataservice.Errorf("select", "connection reset")
	}
	return f.Store.Select(ctx, table, filter)
}

func TestLoadFailsWhenEitherFetchFails(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	NewService(mem).Add(ctx, userA, Income, dec("5"), "a", day("2024-05-01"))

	svc := NewService(failingSelect{Store: mem, table: dataservice.TableExpense})
	snap, err := svc.Load(ctx, userA, nil)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != Expense {
		t.Fatalf("expected expense LoadError, got %v", err)
	}
	if len(snap.Transactions) != 0 {
		t.Fatalf("partial results returned")
	}
}

func TestAddValidation(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()
	var vErr *ValidationError
	if _, err := svc.Add(ctx, userA, Income, dec("-1"), "x", time.Time{}); !errors.As(err, &vErr) {
		t.Fatalf("negative amount: %v", err)
	}
	if _, err := svc.Add(ctx, userA, Income, dec("1"), "  ", time.Time{}); !errors.As(err, &vErr) {
		t.Fatalf("empty description: %v", err)
	}

	svc.now = func() time.Time { return day("2024-06-10") }
	tx, err := svc.Add(ctx, userA, Expense, dec("0"), "free", time.Time{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.Date.Format(DateLayout) != "2024-06-10" {
		t.Fatalf("default date = %s", tx.Date.Format(DateLayout))
	}
}
