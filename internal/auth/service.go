package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saldo-app/saldo/internal/dataservice"
)

const minPasswordLength = 6

// Options configures token issuing. PersistSession is set by interactive
// clients; without it SignIn neither records the session on the broadcaster
// nor stores a revocable entry, so a shared relay instance keeps no state.
type Options struct {
	Secret         string
	SessionTTL     time.Duration
	PersistSession bool
}

// Service is the self-hosted implementation of the data-service auth contract:
// bcrypt-hashed accounts and HS256 session tokens that can be revoked.
type Service struct {
	dataservice.Broadcaster

	accounts AccountRepository
	sessions SessionStore
	secret   []byte
	ttl      time.Duration
	persist  bool
	now      func() time.Time
}

// NewService creates an auth service.
func NewService(accounts AccountRepository, sessions SessionStore, opts Options) *Service {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		secret:   []byte(opts.Secret),
		ttl:      ttl,
		persist:  opts.PersistSession,
		now:      time.Now,
	}
}

// SignUp creates an account for the given credentials.
func (s *Service) SignUp(ctx context.Context, creds dataservice.Credentials) (dataservice.User, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return dataservice.User{}, dataservice.Errorf("signup", "Signup requires a valid email and password")
	}
	if !strings.Contains(email, "@") {
		return dataservice.User{}, dataservice.Errorf("signup", "Unable to validate email address: invalid format")
	}
	if len(creds.Password) < minPasswordLength {
		return dataservice.User{}, dataservice.Errorf("signup", "Password should be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return dataservice.User{}, dataservice.Wrap("signup", err)
	}

	account := Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return dataservice.User{}, dataservice.Errorf("signup", "User already registered")
		}
		return dataservice.User{}, dataservice.Wrap("signup", err)
	}
	return dataservice.User{ID: account.ID, Email: account.Email}, nil
}

// SignIn verifies credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, creds dataservice.Credentials) (dataservice.Session, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return dataservice.Session{}, dataservice.Errorf("signin", "Invalid login credentials")
		}
		return dataservice.Session{}, dataservice.Wrap("signin", err)
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(creds.Password)); err != nil {
		return dataservice.Session{}, dataservice.Errorf("signin", "Invalid login credentials")
	}

	tokenID := uuid.NewString()
	token, exp, err := signToken(s.secret, account, tokenID, s.now(), s.ttl)
	if err != nil {
		return dataservice.Session{}, dataservice.Wrap("signin", err)
	}
	session := dataservice.Session{
		AccessToken: token,
		User:        dataservice.User{ID: account.ID, Email: account.Email},
		ExpiresAt:   exp,
	}
	if !s.persist {
		return session, nil
	}
	if err := s.sessions.Save(ctx, tokenID, account.ID, s.ttl); err != nil {
		return dataservice.Session{}, dataservice.Wrap("signin", err)
	}
	s.SignedIn(session)
	return session, nil
}

// SignOut revokes the session token. Expired tokens are accepted so a stale
// client can still sign out cleanly.
func (s *Service) SignOut(ctx context.Context, session dataservice.Session) error {
	claims, err := parseToken(s.secret, session.AccessToken, jwt.WithoutClaimsValidation())
	if err != nil {
		return dataservice.Errorf("signout", "invalid session token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return dataservice.Wrap("signout", err)
	}
	if s.persist {
		s.SignedOut()
	}
	return nil
}

// Verify resolves an access token to its session, rejecting revoked or
// expired tokens. Only tokens issued with PersistSession can be verified.
func (s *Service) Verify(ctx context.Context, token string) (dataservice.Session, error) {
	claims, err := parseToken(s.secret, token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return dataservice.Session{}, dataservice.Errorf("verify", "invalid session token")
	}
	active, err := s.sessions.Active(ctx, claims.ID)
	if err != nil {
		return dataservice.Session{}, dataservice.Wrap("verify", err)
	}
	if !active {
		return dataservice.Session{}, dataservice.Errorf("verify", "session revoked")
	}
	session := dataservice.Session{
		AccessToken: token,
		User:        dataservice.User{ID: claims.Subject, Email: claims.Email},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// RemoveUser deletes an account.
func (s *Service) RemoveUser(ctx context.Context, userID string) error {
	if err := s.accounts.Delete(ctx, userID); err != nil {
		return dataservice.Wrap("remove_user", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
