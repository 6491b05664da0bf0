package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/auth"
	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/identity"
	"github.com/saldo-app/saldo/internal/ledger"
	"github.com/saldo-app/saldo/internal/logging"
	"github.com/saldo-app/saldo/internal/notification"
	"github.com/saldo-app/saldo/internal/store"
)

type countingAuth struct {
	dataservice.Auth
	calls int
}

func (c *countingAuth) SignUp(ctx context.Context, creds dataservice.Credentials) (dataservice.User, error) {
	c.calls++
	return c.Auth.SignUp(ctx, creds)
}

func (c *countingAuth) SignIn(ctx context.Context, creds dataservice.Credentials) (dataservice.Session, error) {
	c.calls++
	return c.Auth.SignIn(ctx, creds)
}

type fixture struct {
	auth     *auth.Service
	client   dataservice.Client
	recorder *notification.Recorder
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := auth.NewService(auth.NewMemoryRepository(), auth.NewMemorySessions(), auth.Options{Secret: "s", SessionTTL: time.Hour, PersistSession: true})
	f := &fixture{
		auth:     a,
		client:   dataservice.Client{Auth: a, Store: store.NewMemory()},
		recorder: &notification.Recorder{},
	}
	f.ctrl = New(f.client, f.recorder, Options{Logger: logging.Discard()})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) registerAndLogin(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	reg := identity.Registration{Email: "ana@example.com", Password: "secret123", Name: "Ana", NationalID: "12345678901"}
	if err := f.ctrl.Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.ctrl.Login(ctx, "ana@example.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func (f *fixture) lastMessage(t *testing.T) notification.Message {
	t.Helper()
	msg, ok := f.recorder.Last()
	if !ok {
		t.Fatalf("expected a notification")
	}
	return msg
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	s, ok := f.ctrl.Session()
	if !ok {
		t.Fatalf("expected session")
	}
	return s.Balance
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var yes = ConfirmFunc(func(string) bool { return true })

func TestBalanceScenario(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)
	ctx := context.Background()

	if f.ctrl.Screen() != ScreenMain {
		t.Fatalf("expected main screen after login")
	}
	if err := f.ctrl.AddTransaction(ctx, ledger.Income, money("100.00"), "Salary", time.Time{}); err != nil {
		t.Fatalf("add income: %v", err)
	}
	if got := f.balance(t); !got.Equal(money("100")) {
		t.Fatalf("balance = %s, want 100", got)
	}
	if err := f.ctrl.AddTransaction(ctx, ledger.Expense, money("30.00"), "Lunch", time.Time{}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if got := f.balance(t); !got.Equal(money("70")) {
		t.Fatalf("balance = %s, want 70", got)
	}

	s, _ := f.ctrl.Session()
	var lunch ledger.Transaction
	for _, tx := range s.Snapshot.Transactions {
		if tx.Kind == ledger.Expense {
			lunch = tx
		}
	}
	if err := f.ctrl.DeleteTransaction(ctx, lunch.ID, ledger.Expense, yes); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.balance(t); !got.Equal(money("100")) {
		t.Fatalf("balance = %s, want 100", got)
	}
	if msg := f.lastMessage(t); msg.Body != "Transação excluída com sucesso!" {
		t.Fatalf("last message = %q", msg.Body)
	}

	view, err := f.ctrl.View()
	if err != nil || len(view.Transactions) != 1 || !view.Balance.Equal(money("100")) {
		t.Fatalf("unexpected view %+v, %v", view, err)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)
	ctx := context.Background()
	f.ctrl.AddTransaction(ctx, ledger.Expense, money("10"), "Coffee", time.Time{})

	s, _ := f.ctrl.Session()
	id := s.Snapshot.Transactions[0].ID
	no := ConfirmFunc(func(q string) bool {
		if q != MsgConfirmDelete {
			t.Fatalf("unexpected question %q", q)
		}
		return false
	})
	if err := f.ctrl.DeleteTransaction(ctx, id, ledger.Expense, no); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s, _ = f.ctrl.Session()
	if len(s.Snapshot.Transactions) != 1 {
		t.Fatalf("transaction deleted without confirmation")
	}
}

func TestEditFormSubmit(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)
	ctx := context.Background()
	f.ctrl.AddTransaction(ctx, ledger.Income, money("50"), "Freelance", time.Time{})

	s, _ := f.ctrl.Session()
	form, err := f.ctrl.EditTransaction(ctx, s.Snapshot.Transactions[0].ID, ledger.Income)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if form.Transaction.Description != "Freelance" {
		t.Fatalf("form not populated: %+v", form.Transaction)
	}
	if err := form.Submit(ctx, money("80"), "Freelance job"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s, _ = f.ctrl.Session()
	if !s.Balance.Equal(money("80")) || s.Snapshot.Transactions[0].Description != "Freelance job" {
		t.Fatalf("unexpected session after edit: %+v", s)
	}
}

func TestEditUnknownTransaction(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)

	_, err := f.ctrl.EditTransaction(context.Background(), "00000000-0000-0000-0000-000000000000", ledger.Income)
	if !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if msg := f.lastMessage(t); msg.Level != notification.LevelError {
		t.Fatalf("expected error notification, got %+v", msg)
	}
}

func TestRegisterRejectsShortNationalID(t *testing.T) {
	f := newFixture(t)
	counting := &countingAuth{Auth: f.auth}
	ctrl := New(dataservice.Client{Auth: counting, Store: f.client.Store}, f.recorder, Options{Logger: logging.Discard()})
	defer ctrl.Close()

	reg := identity.Registration{Email: "ana@example.com", Password: "secret123", Name: "Ana", NationalID: "123"}
	if err := ctrl.Register(context.Background(), reg); err == nil {
		t.Fatalf("expected validation error")
	}
	if counting.calls != 0 {
		t.Fatalf("expected no data-service call, got %d", counting.calls)
	}
	if msg := f.lastMessage(t); msg.Body != identity.MsgInvalidNationalID {
		t.Fatalf("message = %q", msg.Body)
	}
}

func TestLoginValidationAndServiceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var vErr *identity.ValidationError
	if err := f.ctrl.Login(ctx, "", "x"); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := f.lastMessage(t); msg.Body != MsgLoginRequired {
		t.Fatalf("message = %q", msg.Body)
	}

	if err := f.ctrl.Login(ctx, "nobody@example.com", "secret123"); err == nil {
		t.Fatalf("expected login failure")
	}
	if msg := f.lastMessage(t); msg.Body != "Erro ao fazer login: Invalid login credentials" {
		t.Fatalf("message = %q", msg.Body)
	}
	if f.ctrl.Screen() != ScreenLanding {
		t.Fatalf("expected to stay on landing screen")
	}
}

func TestOperationsRequireSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checks := map[string]error{
		"add":    f.ctrl.AddTransaction(ctx, ledger.Income, money("1"), "x", time.Time{}),
		"delete": f.ctrl.DeleteTransaction(ctx, "id", ledger.Income, yes),
		"load":   f.ctrl.LoadTransactions(ctx, nil),
		"filter": f.ctrl.FilterTransactions(ctx, "2024-01-01", "2024-01-31"),
		"logout": f.ctrl.Logout(ctx),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrNoSession) {
			t.Errorf("%s: expected ErrNoSession, got %v", name, err)
		}
	}
	if _, err := f.ctrl.EditTransaction(ctx, "id", ledger.Income); !errors.Is(err, ErrNoSession) {
		t.Errorf("edit: expected ErrNoSession, got %v", err)
	}
}

func TestLogoutReturnsToLanding(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)

	if err := f.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.ctrl.Session(); ok {
		t.Fatalf("session not cleared")
	}
	if f.ctrl.Screen() != ScreenLanding {
		t.Fatalf("expected landing screen")
	}
}

func TestSessionFollowsAuthState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.auth.SignUp(ctx, dataservice.Credentials{Email: "bia@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := f.auth.SignIn(ctx, dataservice.Credentials{Email: "bia@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if _, ok := f.ctrl.Session(); !ok {
		t.Fatalf("expected session from auth-state change")
	}

	restored := New(f.client, f.recorder, Options{Logger: logging.Discard()})
	defer restored.Close()
	if s, ok := restored.Session(); !ok || s.User.ID != session.User.ID || restored.Screen() != ScreenMain {
		t.Fatalf("expected restored session")
	}

	if err := f.auth.SignOut(ctx, session); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, ok := f.ctrl.Session(); ok {
		t.Fatalf("expected session cleared by auth-state change")
	}
}

func TestFilterTransactions(t *testing.T) {
	f := newFixture(t)
	f.registerAndLogin(t)
	ctx := context.Background()
	for _, d := range []string{"2023-12-31", "2024-01-10", "2024-01-20", "2024-02-01"} {
		date, _ := time.Parse(ledger.DateLayout, d)
		f.ctrl.AddTransaction(ctx, ledger.Income, money("10"), d, date)
	}

	if err := f.ctrl.FilterTransactions(ctx, "2024-01-31", "2024-01-01"); err == nil {
		t.Fatalf("expected invalid range error")
	}
	if msg := f.lastMessage(t); msg.Body != ledger.MsgInvalidRange {
		t.Fatalf("message = %q", msg.Body)
	}

	if err := f.ctrl.FilterTransactions(ctx, "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("filter: %v", err)
	}
	s, _ := f.ctrl.Session()
	if len(s.Snapshot.Transactions) != 2 || s.Snapshot.Transactions[0].Description != "2024-01-20" {
		t.Fatalf("unexpected filtered transactions: %+v", s.Snapshot.Transactions)
	}
	if !s.Balance.Equal(money("20")) || s.Snapshot.Range == nil {
		t.Fatalf("unexpected balance %s", s.Balance)
	}
}
