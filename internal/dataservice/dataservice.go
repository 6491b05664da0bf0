package dataservice

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Tables exposed by the data service.
const (
	TableUsers   = "users"
	TableIncome  = "income"
	TableExpense = "expense"
)

// ErrNotFound is wrapped by ServiceError when a filter matched no row.
var ErrNotFound = errors.New("row not found")

// Row is a single record as exchanged with the data service. Values travel as
// strings: decimals in canonical form, dates as YYYY-MM-DD.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Credentials identify an account at sign up / sign in.
type Credentials struct {
	Email    string
	Password string
}

// User is the authenticated identity issued by the service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an active authentication as returned by SignIn.
type Session struct {
	AccessToken string    `json:"access_token"`
	User        User      `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Auth covers the authentication half of the service contract.
type Auth interface {
	SignUp(ctx context.Context, creds Credentials) (User, error)
	SignIn(ctx context.Context, creds Credentials) (Session, error)
	SignOut(ctx context.Context, session Session) error
	OnAuthStateChange(listener AuthListener) (unsubscribe func())
}

// AccountRemover is implemented by auth backends able to delete an account.
// Registration uses it to undo a sign up whose profile could not be stored.
type AccountRemover interface {
	RemoveUser(ctx context.Context, userID string) error
}

// TokenVerifier is implemented by auth adapters that can resolve an access
// token back to its session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

// Store covers row access. Implementations must scope nothing on their own:
// callers pass the user filter explicitly.
type Store interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
	Update(ctx context.Context, table string, values Row, filter Filter) error
	Delete(ctx context.Context, table string, filter Filter) error
}

// Client bundles both halves of the contract.
type Client struct {
	Auth  Auth
	Store Store
}

// ServiceError is any failure reported by the data service. Message is meant
// to be shown to the user verbatim.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Errorf builds a ServiceError for op.
func Errorf(op, format string, args ...any) *ServiceError {
	return &ServiceError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap turns err into a ServiceError unless it already is one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Op: op, Message: err.Error(), Err: err}
}

// NotFound reports a filter that matched no row.
func NotFound(op, table string) *ServiceError {
	return &ServiceError{Op: op, Message: fmt.Sprintf("%s: %s", table, ErrNotFound), Err: ErrNotFound}
}
