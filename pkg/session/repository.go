package session

import (
	"errors"
	"sync"
)

// TokenKey is the fixed name the token is persisted under.
const TokenKey = "token"

// ErrNoToken is returned by Repository.Load when no token is persisted.
var ErrNoToken = errors.New("session: no token")

// Repository is durable storage for the single session token.
// Clear must succeed when nothing is stored.
type Repository interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryRepository keeps the token in process memory only.
type MemoryRepository struct {
	mu    sync.Mutex
	token string
}

// NewMemoryRepository returns a repository seeded with token ("" for none).
func NewMemoryRepository(token string) *MemoryRepository {
	return &MemoryRepository{token: token}
}

func (r *MemoryRepository) Load() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" {
		return "", ErrNoToken
	}
	return r.token, nil
}

func (r *MemoryRepository) Save(token string) error {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Clear() error {
	r.mu.Lock()
	r.token = ""
	r.mu.Unlock()
	return nil
}
