package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

// IdentityFetcher resolves a bearer token to the identity it belongs to.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, token string) (domain.User, error)
}

// IdentityFetcherFunc adapts a function to IdentityFetcher.
type IdentityFetcherFunc func(ctx context.Context, token string) (domain.User, error)

func (f IdentityFetcherFunc) FetchIdentity(ctx context.Context, token string) (domain.User, error) {
	return f(ctx, token)
}

// Outcome is the result of one synchronization step.
type Outcome int

const (
	// OutcomeCleared means there was no token; the user was reset without a request.
	OutcomeCleared Outcome = iota
	// OutcomeValidated means the token was confirmed and the user recorded.
	OutcomeValidated
	// OutcomeInvalidated means validation failed and the session was dropped.
	OutcomeInvalidated
	// OutcomeStale means the token changed while the request was in flight;
	// the result was discarded.
	OutcomeStale
	// OutcomeAborted means the synchronizer's context ended mid-request; the
	// session was left as it was.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleared:
		return "cleared"
	case OutcomeValidated:
		return "validated"
	case OutcomeInvalidated:
		return "invalidated"
	case OutcomeStale:
		return "stale"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// Runner executes a triggered synchronization.
type Runner func(task func())

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithRunner replaces the default one-goroutine-per-trigger runner.
func WithRunner(r Runner) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.run = r
		}
	}
}

// WithObserver registers fn to receive the outcome of every triggered sync.
func WithObserver(fn func(token string, o Outcome)) Option {
	return func(s *Synchronizer) {
		s.observe = fn
	}
}

// Synchronizer keeps a Store's user in step with its token: once per token
// value, including the token present at Start, it validates the token
// against the server or clears the session.
type Synchronizer struct {
	store   *Store
	fetcher IdentityFetcher
	logger  *slog.Logger
	run     Runner
	observe func(token string, o Outcome)

	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
}

// NewSynchronizer creates a synchronizer for store. Call Start to activate it.
func NewSynchronizer(store *Store, fetcher IdentityFetcher, logger *slog.Logger, opts ...Option) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		run:     func(task func()) { go task() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to token changes and triggers the initial sync. Calling
// Start on a running synchronizer is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.unsub != nil {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.unsub = s.store.Subscribe(func(ev Event) {
		if ev.TokenChanged {
			s.trigger(ev.Session.Token)
		}
	})
	s.mu.Unlock()

	s.trigger(s.store.Token())
}

// Stop unsubscribes, cancels in-flight syncs and waits for them.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	unsub, cancel := s.unsub, s.cancel
	s.unsub, s.cancel = nil, nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until every triggered sync has finished.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) trigger(token string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	s.wg.Add(1)
	s.run(func() {
		defer s.wg.Done()
		o := s.Sync(ctx, token)
		if s.observe != nil {
			s.observe(token, o)
		}
	})
}

// Sync performs one synchronization step for token and applies its result
// only if token is still the store's current token.
func (s *Synchronizer) Sync(ctx context.Context, token string) Outcome {
	if token == "" {
		s.store.dropUser("")
		return OutcomeCleared
	}

	user, err := s.fetcher.FetchIdentity(ctx, token)
	if err == nil && user == nil {
		err = errors.New("identity fetch returned no user")
	}
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("identity validation aborted", "err", err)
			return OutcomeAborted
		}
		if s.store.Token() != token {
			return OutcomeStale
		}
		s.logger.Error("identity validation failed", "err", err)
		if !s.store.Invalidate(token) {
			return OutcomeStale
		}
		return OutcomeInvalidated
	}

	if !s.store.Validated(token, user) {
		s.logger.Debug("discarding identity for superseded token")
		return OutcomeStale
	}
	s.logger.Debug("identity validated", "user", user.Username())
	return OutcomeValidated
}
