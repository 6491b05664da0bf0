package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saldo-app/saldo/internal/dataservice"
)

// ProfileError reports that the account was created but the profile row
// could not be stored. Its message is the underlying service message.
type ProfileError struct {
	Err error
}

func (e *ProfileError) Error() string { return e.Err.Error() }

func (e *ProfileError) Unwrap() error { return e.Err }

// Service registers users against the data service.
type Service struct {
	auth   dataservice.Auth
	store  dataservice.Store
	logger *slog.Logger
}

// NewService creates a new identity service.
func NewService(client dataservice.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{auth: client.Auth, store: client.Store, logger: logger}
}

// Register validates the form locally and then signs the user up.
func (s *Service) Register(ctx context.Context, reg Registration) (dataservice.User, error) {
	if err := reg.Validate(); err != nil {
		return dataservice.User{}, err
	}
	return s.SignUp(ctx, reg)
}

// SignUp creates the auth account and the profile row without local
// validation. If the profile insert fails the account is removed when the
// auth backend allows it.
func (s *Service) SignUp(ctx context.Context, reg Registration) (dataservice.User, error) {
	user, err := s.auth.SignUp(ctx, dataservice.Credentials{Email: strings.TrimSpace(reg.Email), Password: reg.Password})
	if err != nil {
		return dataservice.User{}, err
	}

	_, err = s.store.Insert(ctx, dataservice.TableUsers, dataservice.Row{
		"id":          user.ID,
		"email":       user.Email,
		"name":        strings.TrimSpace(reg.Name),
		"national_id": strings.TrimSpace(reg.NationalID),
	})
	if err != nil {
		s.compensate(ctx, user, err)
		return dataservice.User{}, &ProfileError{Err: err}
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

func (s *Service) compensate(ctx context.Context, user dataservice.User, cause error) {
	remover, ok := s.auth.(dataservice.AccountRemover)
	if !ok {
		s.logger.Warn("profile insert failed, auth account left without profile",
			slog.String("user_id", user.ID), slog.Any("error", cause))
		return
	}
	if err := remover.RemoveUser(ctx, user.ID); err != nil {
		s.logger.Error("profile insert failed and account removal failed",
			slog.String("user_id", user.ID), slog.Any("error", cause), slog.Any("remove_error", err))
		return
	}
	s.logger.Warn("profile insert failed, auth account removed",
		slog.String("user_id", user.ID), slog.Any("error", cause))
}

// Profile loads the profile row for userID.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	rows, err := s.store.Select(ctx, dataservice.TableUsers, dataservice.Eq("id", userID))
	if err != nil {
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, fmt.Errorf("profile %s: %w", userID, dataservice.ErrNotFound)
	}
	row := rows[0]
	return Profile{ID: row["id"], Email: row["email"], Name: row["name"], NationalID: row["national_id"]}, nil
}
