package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

var errUnauthorized = errors.New("HTTP 401: invalid token")

// fakeFetcher accepts tokens listed in users and rejects everything else.
type fakeFetcher struct {
	mu    sync.Mutex
	users map[string]domain.User
	calls []string
}

func (f *fakeFetcher) FetchIdentity(_ context.Context, token string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token)
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, errUnauthorized
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func inline(task func()) { task() }

func newSync(t *testing.T, repo Repository, f IdentityFetcher, opts ...Option) (*Store, *Synchronizer) {
	t.Helper()
	s := openStore(t, repo)
	opts = append([]Option{WithRunner(inline)}, opts...)
	sy := NewSynchronizer(s, f, discardLogger(), opts...)
	return s, sy
}

func TestSyncEmptyTokenMakesNoRequest(t *testing.T) {
	f := &fakeFetcher{}
	_, sy := newSync(t, NewMemoryRepository(""), f)

	if o := sy.Sync(context.Background(), ""); o != OutcomeCleared {
		t.Errorf("Sync(\"\") = %v, want %v", o, OutcomeCleared)
	}
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.callCount())
	}
}

func TestStartValidatesPersistedToken(t *testing.T) {
	repo := NewMemoryRepository("abc")
	f := &fakeFetcher{users: map[string]domain.User{"abc": {"username": "ada"}}}
	s, sy := newSync(t, repo, f)

	sy.Start(context.Background())
	defer sy.Stop()

	if !s.Session().Authenticated() {
		t.Fatal("expected authenticated session after initial sync")
	}
	if s.User().Username() != "ada" {
		t.Errorf("Username() = %q, want %q", s.User().Username(), "ada")
	}
	if got, _ := repo.Load(); got != "abc" {
		t.Errorf("persisted token = %q, want %q", got, "abc")
	}
}

func TestStartWithoutTokenStaysLoggedOut(t *testing.T) {
	f := &fakeFetcher{}
	s, sy := newSync(t, NewMemoryRepository(""), f)

	sy.Start(context.Background())
	defer sy.Stop()

	if s.User() != nil {
		t.Errorf("User() = %v, want nil", s.User())
	}
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.callCount())
	}
}

func TestValidationFailureClearsSession(t *testing.T) {
	repo := NewMemoryRepository("revoked")
	f := &fakeFetcher{}
	s := openStore(t, repo)

	var outcomes []Outcome
	sy := NewSynchronizer(s, f, discardLogger(), WithRunner(inline), WithObserver(func(_ string, o Outcome) {
		outcomes = append(outcomes, o)
	}))
	sy.Start(context.Background())
	defer sy.Stop()

	if sess := s.Session(); sess.Token != "" || sess.User != nil {
		t.Errorf("Session() = %+v, want empty", sess)
	}
	if _, err := repo.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load() error = %v, want ErrNoToken", err)
	}
	// The clear itself is a token change and triggers a network-free sync.
	want := []Outcome{OutcomeCleared, OutcomeInvalidated}
	if fmt.Sprint(outcomes) != fmt.Sprint(want) {
		t.Errorf("outcomes = %v, want %v", outcomes, want)
	}
	if f.callCount() != 1 {
		t.Errorf("fetcher called %d times, want 1", f.callCount())
	}
}

func TestSyncTriggeredOncePerTokenChange(t *testing.T) {
	f := &fakeFetcher{users: map[string]domain.User{
		"a": {"username": "ada"},
		"b": {"username": "bob"},
	}}
	s, sy := newSync(t, NewMemoryRepository(""), f)
	sy.Start(context.Background())
	defer sy.Stop()

	for _, tok := range []string{"a", "a", "b", "b", "b"} {
		s.SetToken(tok) //nolint:errcheck
	}

	if got := strings.Join(f.calls, ","); got != "a,b" {
		t.Errorf("fetch calls = %q, want %q", got, "a,b")
	}
	if s.User().Username() != "bob" {
		t.Errorf("Username() = %q, want %q", s.User().Username(), "bob")
	}
}

func TestStaleValidationIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := IdentityFetcherFunc(func(_ context.Context, token string) (domain.User, error) {
		if token == "old" {
			close(started)
			<-release
			return domain.User{"username": "eve"}, nil
		}
		return domain.User{"username": "ada"}, nil
	})

	s := openStore(t, NewMemoryRepository("old"))
	var mu sync.Mutex
	outcomes := map[string]Outcome{}
	sy := NewSynchronizer(s, f, discardLogger(), WithObserver(func(tok string, o Outcome) {
		mu.Lock()
		outcomes[tok] = o
		mu.Unlock()
	}))
	sy.Start(context.Background())
	<-started

	s.SetToken("new") //nolint:errcheck
	// Let the newer sync land first, then release the stale one.
	for s.User() == nil {
		runtime.Gosched()
	}
	close(release)
	sy.Stop()

	if s.Token() != "new" || s.User().Username() != "ada" {
		t.Errorf("Session() = %+v, want token new / user ada", s.Session())
	}
	if outcomes["old"] != OutcomeStale {
		t.Errorf("outcome for old token = %v, want %v", outcomes["old"], OutcomeStale)
	}
	if outcomes["new"] != OutcomeValidated {
		t.Errorf("outcome for new token = %v, want %v", outcomes["new"], OutcomeValidated)
	}
}

func TestStaleFailureDoesNotClearNewerToken(t *testing.T) {
	repo := NewMemoryRepository("old")
	s := openStore(t, repo)
	f := IdentityFetcherFunc(func(_ context.Context, token string) (domain.User, error) {
		if token == "old" {
			// The user logs in again while this request is in flight.
			s.SetToken("new") //nolint:errcheck
			return nil, errUnauthorized
		}
		return domain.User{"username": "ada"}, nil
	})
	sy := NewSynchronizer(s, f, discardLogger())

	if o := sy.Sync(context.Background(), "old"); o != OutcomeStale {
		t.Errorf("Sync(old) = %v, want %v", o, OutcomeStale)
	}
	if got, _ := repo.Load(); got != "new" {
		t.Errorf("persisted token = %q, want %q", got, "new")
	}
}

func TestCanceledSyncLeavesSession(t *testing.T) {
	repo := NewMemoryRepository("abc")
	ctx, cancel := context.WithCancel(context.Background())
	f := IdentityFetcherFunc(func(ctx context.Context, _ string) (domain.User, error) {
		cancel()
		return nil, ctx.Err()
	})
	s, sy := newSync(t, repo, f)

	if o := sy.Sync(ctx, "abc"); o != OutcomeAborted {
		t.Errorf("Sync() = %v, want %v", o, OutcomeAborted)
	}
	if s.Token() != "abc" {
		t.Errorf("Token() = %q, want %q", s.Token(), "abc")
	}
	if got, _ := repo.Load(); got != "abc" {
		t.Errorf("persisted token = %q, want %q", got, "abc")
	}
}

func TestNilUserWithoutErrorIsFailure(t *testing.T) {
	f := IdentityFetcherFunc(func(context.Context, string) (domain.User, error) {
		return nil, nil
	})
	s, sy := newSync(t, NewMemoryRepository("abc"), f)

	if o := sy.Sync(context.Background(), "abc"); o != OutcomeInvalidated {
		t.Errorf("Sync() = %v, want %v", o, OutcomeInvalidated)
	}
	if s.Token() != "" {
		t.Errorf("Token() = %q, want empty", s.Token())
	}
}

// TestUserTracksLastValidation walks token sequences and checks that User is
// set exactly when the current token validated.
func TestUserTracksLastValidation(t *testing.T) {
	f := &fakeFetcher{users: map[string]domain.User{
		"good1": {"username": "ada"},
		"good2": {"username": "bob"},
	}}
	sequences := [][]string{
		{"good1", "bad", "good2", ""},
		{"bad", "good1", "good1", "good2"},
		{"", "good2", "bad"},
		{"good1", "", "", "good1"},
	}
	for _, seq := range sequences {
		t.Run(strings.Join(seq, ">"), func(t *testing.T) {
			s, sy := newSync(t, NewMemoryRepository(""), f)
			sy.Start(context.Background())
			defer sy.Stop()

			for _, tok := range seq {
				s.SetToken(tok) //nolint:errcheck
				sess := s.Session()
				_, valid := f.users[tok]
				if valid {
					if sess.Token != tok || sess.User == nil {
						t.Errorf("after %q: session = %+v, want validated", tok, sess)
					}
					continue
				}
				if sess.User != nil {
					t.Errorf("after %q: User = %v, want nil", tok, sess.User)
				}
				if tok != "" && sess.Token != "" {
					t.Errorf("after %q: Token = %q, want cleared", tok, sess.Token)
				}
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeCleared:     "cleared",
		OutcomeValidated:   "validated",
		OutcomeInvalidated: "invalidated",
		OutcomeStale:       "stale",
		OutcomeAborted:     "aborted",
		Outcome(99):        "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
