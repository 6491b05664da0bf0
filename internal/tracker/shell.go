package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-app/saldo/internal/identity"
	"github.com/saldo-app/saldo/internal/ledger"
	"github.com/saldo-app/saldo/internal/notification"
	"github.com/saldo-app/saldo/internal/render"
)

const help = `comandos:
  signup                              criar conta
  login                               entrar
  logout                              sair
  add income|expense <valor> <descrição>
  edit <income|expense> <id>
  delete <income|expense> <id>
  list                                recarregar transações
  filter <início> <fim>               datas no formato AAAA-MM-DD
  help
  quit`

// StatusSource supplies the message shown above each screen.
type StatusSource interface {
	Current() (notification.Message, bool)
}

// Shell is a line-oriented terminal front end for a Controller.
type Shell struct {
	ctrl   *Controller
	in     *bufio.Scanner
	out    io.Writer
	status StatusSource
}

// NewShell reads commands from in and writes screens to out. status may be nil.
func NewShell(ctrl *Controller, in io.Reader, out io.Writer, status StatusSource) *Shell {
	return &Shell{ctrl: ctrl, in: bufio.NewScanner(in), out: out, status: status}
}

// Run executes commands until quit or end of input.
func (sh *Shell) Run(ctx context.Context) error {
	sh.printf("%s\n", help)
	sh.show()
	for {
		line, ok := sh.prompt(sh.ctrl.Screen().String() + "> ")
		if !ok {
			return sh.in.Err()
		}
		if quit := sh.Exec(ctx, line); quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Exec runs a single command line and reports whether the shell should stop.
func (sh *Shell) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		sh.printf("%s\n", help)
		return false
	case "signup":
		err = sh.signup(ctx)
	case "login":
		err = sh.login(ctx)
	case "logout":
		err = sh.ctrl.Logout(ctx)
	case "add":
		err = sh.add(ctx, args)
	case "edit":
		err = sh.edit(ctx, args)
	case "delete":
		err = sh.delete(ctx, args)
	case "list":
		err = sh.ctrl.LoadTransactions(ctx, nil)
	case "filter":
		if len(args) != 2 {
			sh.printf("uso: filter <início> <fim>\n")
			return false
		}
		err = sh.ctrl.FilterTransactions(ctx, args[0], args[1])
	default:
		sh.printf("comando desconhecido: %s (digite help)\n", cmd)
		return false
	}

	var usage usageError
	switch {
	case errors.Is(err, ErrNoSession):
		sh.printf("faça login primeiro\n")
	case errors.As(err, &usage):
		sh.printf("uso: %s\n", string(usage))
	}
	sh.show()
	return false
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func (sh *Shell) signup(ctx context.Context) error {
	var reg identity.Registration
	var ok bool
	if reg.Name, ok = sh.prompt("nome: "); !ok {
		return nil
	}
	if reg.Email, ok = sh.prompt("e-mail: "); !ok {
		return nil
	}
	if reg.Password, ok = sh.prompt("senha: "); !ok {
		return nil
	}
	if reg.NationalID, ok = sh.prompt("CPF: "); !ok {
		return nil
	}
	return sh.ctrl.Register(ctx, reg)
}

func (sh *Shell) login(ctx context.Context) error {
	email, ok := sh.prompt("e-mail: ")
	if !ok {
		return nil
	}
	password, ok := sh.prompt("senha: ")
	if !ok {
		return nil
	}
	return sh.ctrl.Login(ctx, email, password)
}

func (sh *Shell) add(ctx context.Context, args []string) error {
	const use = "add income|expense <valor> <descrição>"
	if len(args) < 3 {
		return usageError(use)
	}
	kind, err := ledger.ParseKind(args[0])
	if err != nil {
		return usageError(use)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return usageError(use)
	}
	return sh.ctrl.AddTransaction(ctx, kind, amount, strings.Join(args[2:], " "), time.Time{})
}

func (sh *Shell) edit(ctx context.Context, args []string) error {
	const use = "edit <income|expense> <id>"
	if len(args) != 2 {
		return usageError(use)
	}
	kind, err := ledger.ParseKind(args[0])
	if err != nil {
		return usageError(use)
	}
	form, err := sh.ctrl.EditTransaction(ctx, args[1], kind)
	if err != nil {
		return err
	}

	tx := form.Transaction
	raw, ok := sh.prompt(fmt.Sprintf("valor [%s]: ", tx.Amount.StringFixed(2)))
	if !ok {
		return nil
	}
	amount := tx.Amount
	if strings.TrimSpace(raw) != "" {
		if amount, err = parseAmount(raw); err != nil {
			return usageError("valor numérico, ex. 30.50")
		}
	}
	description, ok := sh.prompt(fmt.Sprintf("descrição [%s]: ", tx.Description))
	if !ok {
		return nil
	}
	if strings.TrimSpace(description) == "" {
		description = tx.Description
	}
	return form.Submit(ctx, amount, description)
}

func (sh *Shell) delete(ctx context.Context, args []string) error {
	const use = "delete <income|expense> <id>"
	if len(args) != 2 {
		return usageError(use)
	}
	kind, err := ledger.ParseKind(args[0])
	if err != nil {
		return usageError(use)
	}
	return sh.ctrl.DeleteTransaction(ctx, args[1], kind, ConfirmFunc(sh.confirm))
}

func (sh *Shell) confirm(question string) bool {
	answer, ok := sh.prompt(question + " [s/N] ")
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}

func (sh *Shell) show() {
	if sh.status != nil {
		if msg, ok := sh.status.Current(); ok {
			sh.printf("%s\n", msg)
		}
	}
	view, err := sh.ctrl.View()
	if err != nil {
		return
	}
	_ = render.Render(sh.out, view)
}

func (sh *Shell) prompt(label string) (string, bool) {
	sh.printf("%s", label)
	if !sh.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.in.Text()), true
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
}
