package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

// Session is a snapshot of the current token and the identity derived from it.
type Session struct {
	Token string
	User  domain.User
}

// Authenticated reports whether the token has been validated.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Event is delivered to subscribers after every state change.
type Event struct {
	Session Session
	// TokenChanged is set when the token value differs from the previous event.
	TokenChanged bool
}

// Store owns the session token and the user derived from it.
//
// User is non-nil only while Token is the token that last validated
// successfully: every token change resets it. Events are delivered in
// mutation order, outside the lock, and listeners may call back into the
// store.
type Store struct {
	repo   Repository
	logger *slog.Logger

	mu        sync.Mutex
	token     string
	user      domain.User
	listeners []listener
	nextID    int
	pending   []Event
	draining  bool
}

type listener struct {
	id int
	fn func(Event)
}

// Open reads the persisted token from repo and returns a store holding it.
// A missing token is not an error.
func Open(repo Repository, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tok, err := repo.Load()
	if err != nil && !errors.Is(err, ErrNoToken) {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	return &Store{repo: repo, logger: logger, token: tok}, nil
}

// Session returns the current snapshot.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the current token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the validated identity, or nil.
func (s *Store) User() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Subscribe registers fn for every subsequent event and returns a func that
// removes it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SetToken persists token (an empty token removes the persisted entry) and
// makes it current. When the value changes the user is reset and a
// TokenChanged event is emitted. The in-memory state is updated even if
// persisting fails; the persistence error is returned.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	persistErr := s.persistLocked(token)
	if s.token != token {
		s.token = token
		s.user = nil
		s.enqueueLocked(true)
	}
	s.mu.Unlock()
	s.flush()

	if persistErr != nil {
		return fmt.Errorf("session.SetToken: %w", persistErr)
	}
	return nil
}

// Clear drops the token and user and removes the persisted entry. It is
// idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	persistErr := s.repo.Clear()
	changed := s.token != ""
	if changed || s.user != nil {
		s.token = ""
		s.user = nil
		s.enqueueLocked(changed)
	}
	s.mu.Unlock()
	s.flush()

	if persistErr != nil {
		return fmt.Errorf("session.Clear: %w", persistErr)
	}
	return nil
}

// Validated records user as the identity for tag. It is ignored, returning
// false, when tag is no longer the current token.
func (s *Store) Validated(tag string, user domain.User) bool {
	s.mu.Lock()
	if tag == "" || s.token != tag || user == nil {
		s.mu.Unlock()
		return false
	}
	if err := s.repo.Save(tag); err != nil {
		s.logger.Warn("refresh persisted token", "err", err)
	}
	s.user = user
	s.enqueueLocked(false)
	s.mu.Unlock()
	s.flush()
	return true
}

// Invalidate drops the session for tag: persisted token, in-memory token and
// user. It is ignored, returning false, when tag is no longer the current
// token.
func (s *Store) Invalidate(tag string) bool {
	s.mu.Lock()
	if tag == "" || s.token != tag {
		s.mu.Unlock()
		return false
	}
	if err := s.repo.Clear(); err != nil {
		s.logger.Warn("remove persisted token", "err", err)
	}
	s.token = ""
	s.user = nil
	s.enqueueLocked(true)
	s.mu.Unlock()
	s.flush()
	return true
}

// dropUser clears the user while tag is current and emits an event if there
// was one to clear.
func (s *Store) dropUser(tag string) {
	s.mu.Lock()
	if s.token != tag || s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	s.enqueueLocked(false)
	s.mu.Unlock()
	s.flush()
}

// persistLocked writes token to the repository. Repository writes happen
// under the lock so the persisted token always matches the in-memory one.
func (s *Store) persistLocked(token string) error {
	if token == "" {
		return s.repo.Clear()
	}
	return s.repo.Save(token)
}

func (s *Store) snapshotLocked() Session {
	return Session{Token: s.token, User: s.user}
}

func (s *Store) enqueueLocked(tokenChanged bool) {
	s.pending = append(s.pending, Event{Session: s.snapshotLocked(), TokenChanged: tokenChanged})
}

// flush delivers pending events. Only one goroutine drains at a time;
// re-entrant or concurrent callers leave their events to the active drainer.
func (s *Store) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		ls := make([]listener, len(s.listeners))
		copy(ls, s.listeners)
		s.mu.Unlock()
		for _, l := range ls {
			l.fn(ev)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
