package server

import (
	"context"
	"errors"
	"time"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

var (
	ErrUserExists   = errors.New("server: username already exists")
	ErrUserNotFound = errors.New("server: user not found")
	ErrTokenUnknown = errors.New("server: unknown token")
)

// reserved profile keys that registration cannot set.
var reserved = map[string]bool{
	"id":            true,
	"username":      true,
	"password":      true,
	"password_hash": true,
	"created_at":    true,
}

// Account is a registered user as stored by the server.
type Account struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	PasswordHash []byte         `json:"password_hash"`
	Profile      map[string]any `json:"profile,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Public is the identity returned by /user/me. The password hash never
// leaves the server.
func (a *Account) Public() domain.User {
	u := domain.User{}
	for k, v := range a.Profile {
		if !reserved[k] {
			u[k] = v
		}
	}
	u["id"] = a.ID
	u["username"] = a.Username
	u["created_at"] = a.CreatedAt.UTC().Format(time.RFC3339)
	return u
}

// Store persists accounts and the bearer tokens issued for them.
type Store interface {
	// CreateAccount stores a; ErrUserExists if the username is taken.
	CreateAccount(ctx context.Context, a *Account) error
	// AccountByUsername returns ErrUserNotFound for unknown names.
	AccountByUsername(ctx context.Context, username string) (*Account, error)
	// IssueToken binds token to username.
	IssueToken(ctx context.Context, token, username string) error
	// AccountByToken returns ErrTokenUnknown for unknown or expired tokens.
	AccountByToken(ctx context.Context, token string) (*Account, error)
}
