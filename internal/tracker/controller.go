// Package tracker drives the finance tracker screens: session handling,
// transaction forms and the balance view. A Controller is used from a single
// goroutine.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/identity"
	"github.com/saldo-app/saldo/internal/ledger"
	"github.com/saldo-app/saldo/internal/notification"
	"github.com/saldo-app/saldo/internal/render"
)

// ErrNoSession is returned by operations that need a logged-in user.
var ErrNoSession = errors.New("no active session")

// MsgLoginRequired is shown when login is submitted with an empty field.
const MsgLoginRequired = "E-mail e senha são obrigatórios."

// MsgConfirmDelete is the question asked before deleting a transaction.
const MsgConfirmDelete = "Tem certeza que deseja excluir esta transação?"

// Screen is a navigation target.
type Screen int

const (
	ScreenLanding Screen = iota
	ScreenMain
)

func (s Screen) String() string {
	if s == ScreenMain {
		return "main"
	}
	return "landing"
}

// Session is the state that exists between login and logout.
type Session struct {
	User        dataservice.User
	AccessToken string
	Balance     decimal.Decimal
	Snapshot    ledger.Snapshot
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Options tunes a Controller.
type Options struct {
	Currency string
	Logger   *slog.Logger
}

// Controller owns the session and turns user actions into data-service calls.
type Controller struct {
	auth     dataservice.Auth
	identity *identity.Service
	ledger   *ledger.Service
	notifier notification.Notifier
	logger   *slog.Logger
	currency string

	session     *Session
	screen      Screen
	unsubscribe func()
}

// New creates a controller and subscribes it to auth-state changes. A
// session already held by the auth client is picked up immediately.
func New(client dataservice.Client, notifier notification.Notifier, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		auth:     client.Auth,
		identity: identity.NewService(client, logger),
		ledger:   ledger.NewService(client.Store),
		notifier: notifier,
		logger:   logger,
		currency: opts.Currency,
	}
	c.unsubscribe = client.Auth.OnAuthStateChange(c.onAuthState)
	return c
}

// Close stops listening to auth-state changes.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) onAuthState(event dataservice.AuthEvent, session *dataservice.Session) {
	if session == nil {
		if c.session != nil {
			c.logger.Info("session ended", slog.String("event", string(event)))
		}
		c.endSession()
		return
	}
	if c.session != nil && c.session.User.ID == session.User.ID {
		c.session.AccessToken = session.AccessToken
		return
	}
	c.startSession(*session)
	if event == dataservice.EventInitialSession {
		c.logger.Info("session restored", slog.String("user_id", session.User.ID))
		_ = c.LoadTransactions(context.Background(), nil)
	}
}

func (c *Controller) startSession(s dataservice.Session) {
	c.session = &Session{User: s.User, AccessToken: s.AccessToken, Balance: decimal.Zero}
	c.screen = ScreenMain
}

func (c *Controller) endSession() {
	c.session = nil
	c.screen = ScreenLanding
}

// Screen is the current navigation target.
func (c *Controller) Screen() Screen { return c.screen }

// Session returns a copy of the active session.
func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// View is what the main screen shows.
func (c *Controller) View() (render.View, error) {
	if c.session == nil {
		return render.View{}, ErrNoSession
	}
	v := render.FromSnapshot(c.session.Snapshot, c.currency)
	v.Balance = c.session.Balance
	return v, nil
}

// Register validates the signup form and creates the account and profile.
func (c *Controller) Register(ctx context.Context, reg identity.Registration) error {
	if _, err := c.identity.Register(ctx, reg); err != nil {
		var profileErr *identity.ProfileError
		if errors.As(err, &profileErr) {
			return c.fail(ctx, "Erro ao salvar perfil: ", err)
		}
		return c.fail(ctx, "Erro ao cadastrar: ", err)
	}
	c.info(ctx, "Cadastro realizado com sucesso!")
	c.screen = ScreenLanding
	return nil
}

// Login signs in and opens the main screen with a fresh load.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return c.fail(ctx, "", &identity.ValidationError{Message: MsgLoginRequired})
	}
	session, err := c.auth.SignIn(ctx, dataservice.Credentials{Email: email, Password: password})
	if err != nil {
		return c.fail(ctx, "Erro ao fazer login: ", err)
	}
	c.startSession(session)
	return c.LoadTransactions(ctx, nil)
}

// Logout signs out and returns to the landing screen.
func (c *Controller) Logout(ctx context.Context) error {
	s, err := c.require()
	if err != nil {
		return err
	}
	token := dataservice.Session{AccessToken: s.AccessToken, User: s.User}
	if err := c.auth.SignOut(ctx, token); err != nil {
		return c.fail(ctx, "Erro ao fazer logout: ", err)
	}
	c.endSession()
	return nil
}

// AddTransaction records a transaction, moves the running balance by the
// amount and reloads the list.
func (c *Controller) AddTransaction(ctx context.Context, kind ledger.Kind, amount decimal.Decimal, description string, date time.Time) error {
	s, err := c.require()
	if err != nil {
		return err
	}
	tx, err := c.ledger.Add(ctx, s.User.ID, kind, amount, description, date)
	if err != nil {
		if kind == ledger.Income {
			return c.fail(ctx, "Erro ao adicionar receita: ", err)
		}
		return c.fail(ctx, "Erro ao adicionar despesa: ", err)
	}
	s.Balance = s.Balance.Add(tx.Signed())
	return c.LoadTransactions(ctx, nil)
}

// EditForm is an edit form bound to one transaction.
type EditForm struct {
	c           *Controller
	Transaction ledger.Transaction
}

// EditTransaction loads a transaction into an edit form.
func (c *Controller) EditTransaction(ctx context.Context, id string, kind ledger.Kind) (*EditForm, error) {
	s, err := c.require()
	if err != nil {
		return nil, err
	}
	tx, err := c.ledger.Get(ctx, s.User.ID, id, kind)
	if err != nil {
		return nil, c.fail(ctx, "Erro ao carregar transação: ", err)
	}
	return &EditForm{c: c, Transaction: tx}, nil
}

// Submit updates the bound transaction and reloads the list.
func (f *EditForm) Submit(ctx context.Context, amount decimal.Decimal, description string) error {
	c := f.c
	s, err := c.require()
	if err != nil {
		return err
	}
	if err := c.ledger.Update(ctx, s.User.ID, f.Transaction.ID, f.Transaction.Kind, amount, description); err != nil {
		return c.fail(ctx, "Erro ao atualizar transação: ", err)
	}
	c.info(ctx, "Transação atualizada com sucesso!")
	return c.LoadTransactions(ctx, nil)
}

// DeleteTransaction removes a transaction once confirm agrees.
func (c *Controller) DeleteTransaction(ctx context.Context, id string, kind ledger.Kind, confirm Confirmer) error {
	s, err := c.require()
	if err != nil {
		return err
	}
	if confirm == nil || !confirm.Confirm(MsgConfirmDelete) {
		return nil
	}
	if err := c.ledger.Delete(ctx, s.User.ID, id, kind); err != nil {
		return c.fail(ctx, "Erro ao excluir transação: ", err)
	}
	c.info(ctx, "Transação excluída com sucesso!")
	return c.LoadTransactions(ctx, nil)
}

// LoadTransactions replaces the listed transactions and the balance with a
// fresh load, limited to r when given.
func (c *Controller) LoadTransactions(ctx context.Context, r *ledger.DateRange) error {
	s, err := c.require()
	if err != nil {
		return err
	}
	snap, err := c.ledger.Load(ctx, s.User.ID, r)
	if err != nil {
		var loadErr *ledger.LoadError
		if errors.As(err, &loadErr) {
			c.logger.Warn("load transactions failed", slog.String("user_id", s.User.ID), slog.Any("error", err))
			msg := "Erro ao carregar transações"
			if r != nil {
				msg = "Erro ao filtrar transações."
			}
			c.notify(ctx, notification.Error(msg))
			return err
		}
		return c.fail(ctx, "", err)
	}
	s.Snapshot = snap
	s.Balance = snap.Balance
	return nil
}

// FilterTransactions loads the transactions between two YYYY-MM-DD dates.
func (c *Controller) FilterTransactions(ctx context.Context, start, end string) error {
	if _, err := c.require(); err != nil {
		return err
	}
	r, err := ledger.ParseDateRange(start, end)
	if err != nil {
		return c.fail(ctx, "", err)
	}
	return c.LoadTransactions(ctx, &r)
}

func (c *Controller) require() (*Session, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session, nil
}

// fail reports err to the user. Validation messages are shown as they are,
// service messages after prefix.
func (c *Controller) fail(ctx context.Context, prefix string, err error) error {
	msg := err.Error()
	var idErr *identity.ValidationError
	var ledgerErr *ledger.ValidationError
	if !errors.As(err, &idErr) && !errors.As(err, &ledgerErr) {
		msg = prefix + msg
	}
	c.notify(ctx, notification.Error(msg))
	return err
}

func (c *Controller) info(ctx context.Context, msg string) {
	c.notify(ctx, notification.Info(msg))
}

func (c *Controller) notify(ctx context.Context, msg notification.Message) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Send(ctx, msg); err != nil {
		c.logger.Warn("notification failed", slog.Any("error", err))
	}
}
