package auth

import "time"

// Account is a credential record owned by the self-hosted auth provider.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
