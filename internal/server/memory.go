package server

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps accounts and tokens in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	tokens   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		tokens:   make(map[string]string),
	}
}

func (m *MemoryStore) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Username]; ok {
		return ErrUserExists
	}
	cp := *a
	m.accounts[a.Username] = &cp
	return nil
}

func (m *MemoryStore) AccountByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) IssueToken(_ context.Context, token, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = username
	return nil
}

func (m *MemoryStore) AccountByToken(ctx context.Context, token string) (*Account, error) {
	m.mu.RLock()
	username, ok := m.tokens[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrTokenUnknown
	}
	a, err := m.AccountByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenUnknown
	}
	return a, err
}
