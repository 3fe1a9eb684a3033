package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatekeep/pkg/auth"
	"github.com/naveenspark/gatekeep/pkg/client"
	"github.com/naveenspark/gatekeep/pkg/domain"
	"github.com/naveenspark/gatekeep/pkg/session"
)

// fakeCreds accepts ada/secret and registers anyone but "taken".
type fakeCreds struct{}

func (fakeCreds) Login(_ context.Context, username, password string) (*domain.LoginResponse, error) {
	if username == "ada" && password == "secret" {
		return &domain.LoginResponse{Token: "abc"}, nil
	}
	return nil, &client.HTTPError{StatusCode: 401, Message: "Invalid username or password"}
}

func (fakeCreds) Register(_ context.Context, data map[string]any) error {
	if data["username"] == "taken" {
		return &client.HTTPError{StatusCode: 409, Message: "Username already exists"}
	}
	return nil
}

type testEnv struct {
	store  *session.Store
	bridge *Bridge
}

func newTestEnv(t *testing.T, token string) (App, *testEnv) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := session.Open(session.NewMemoryRepository(token), logger)
	if err != nil {
		t.Fatal(err)
	}
	bridge := NewBridge()
	t.Cleanup(bridge.Close)
	unwatch := bridge.Watch(store)
	t.Cleanup(unwatch)

	a := NewApp(Options{
		Gateway: auth.NewGateway(fakeCreds{}, store, bridge, logger),
		Store:   store,
		Bridge:  bridge,
		Start:   auth.RouteRoot,
	})
	a.width = 80
	a.height = 30
	a.copy = func(string) error { return nil }
	return a, &testEnv{store: store, bridge: bridge}
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, _ := a.Update(msg)
		a = model.(App)
	}
	return a
}

func typeText(t *testing.T, a App, s string) App {
	t.Helper()
	for _, r := range s {
		a = press(t, a, string(r))
	}
	return a
}

// pump delivers every message currently queued on the bridge.
func pump(a App, b *Bridge) App {
	for {
		select {
		case msg := <-b.msgs:
			model, _ := a.Update(msg)
			a = model.(App)
		default:
			return a
		}
	}
}

func TestRootNavigation(t *testing.T) {
	tests := []struct {
		key  string
		want view
	}{
		{"l", viewLogin},
		{"r", viewRegister},
		{"p", viewRoot}, // no session
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a, _ := newTestEnv(t, "")
			a = press(t, a, tc.key)
			if a.view != tc.want {
				t.Errorf("after %q: view = %d, want %d", tc.key, a.view, tc.want)
			}
		})
	}
}

func TestQuitOnQ(t *testing.T) {
	a, _ := newTestEnv(t, "")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
}

func TestQOnFormIsTyped(t *testing.T) {
	a, _ := newTestEnv(t, "")
	a = press(t, a, "l", "q")
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login", a.view)
	}
	if got := a.login.value("username"); got != "q" {
		t.Errorf("username = %q, want %q", got, "q")
	}
}

func TestEscFromFormReturnsToRoot(t *testing.T) {
	a, _ := newTestEnv(t, "")
	a = press(t, a, "r", "esc")
	if a.view != viewRoot {
		t.Errorf("view = %d, want root", a.view)
	}
}

func TestLoginFlow(t *testing.T) {
	a, env := newTestEnv(t, "")
	a = press(t, a, "l")
	a = typeText(t, a, "ada")
	a = press(t, a, "tab")
	a = typeText(t, a, "secret")

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = model.(App)
	if cmd == nil || !a.login.submitted {
		t.Fatal("expected a submit command")
	}

	model, _ = a.Update(cmd())
	a = pump(model.(App), env.bridge)

	if a.view != viewProfile {
		t.Errorf("view = %d, want profile", a.view)
	}
	if a.session.Token != "abc" {
		t.Errorf("session token = %q, want abc", a.session.Token)
	}
	if env.store.Token() != "abc" {
		t.Errorf("store token = %q, want abc", env.store.Token())
	}
	if a.login.value("username") != "" {
		t.Error("login form should reset after a successful login")
	}
}

func TestLoginFailureShowsMessage(t *testing.T) {
	a, env := newTestEnv(t, "")
	a = press(t, a, "l")
	a = typeText(t, a, "ada")
	a = press(t, a, "tab")
	a = typeText(t, a, "nope")

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = model.(App).Update(cmd())
	a = pump(model.(App), env.bridge)

	if a.view != viewLogin {
		t.Errorf("view = %d, want login", a.view)
	}
	if !strings.Contains(a.View(), "Invalid username or password") {
		t.Error("expected the server message in the form")
	}
	if env.store.Token() != "" {
		t.Errorf("store token = %q, want empty", env.store.Token())
	}
}

func TestLoginRequiresFields(t *testing.T) {
	a, _ := newTestEnv(t, "")
	a = press(t, a, "l", "tab")

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = model.(App)
	if cmd != nil {
		t.Error("submit with empty username should not send")
	}
	if a.login.focus != 0 || !strings.Contains(a.login.statusMsg, "username") {
		t.Errorf("focus = %d, status = %q", a.login.focus, a.login.statusMsg)
	}
}

func TestRegisterFlow(t *testing.T) {
	a, env := newTestEnv(t, "")
	a = press(t, a, "r")
	a = typeText(t, a, "grace")
	a = press(t, a, "tab")
	a = typeText(t, a, "hopper")

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	model, _ = model.(App).Update(cmd())
	a = pump(model.(App), env.bridge)

	if a.view != viewSuccess {
		t.Errorf("view = %d, want success", a.view)
	}
	if env.store.Token() != "" {
		t.Error("registration must not log in")
	}
	a = press(t, a, "l")
	if a.view != viewLogin {
		t.Errorf("view = %d, want login", a.view)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	a, env := newTestEnv(t, "")
	a = press(t, a, "r")
	a = typeText(t, a, "taken")
	a = press(t, a, "tab")
	a = typeText(t, a, "hopper")

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	model, _ = model.(App).Update(cmd())
	a = pump(model.(App), env.bridge)

	if a.view != viewRegister {
		t.Errorf("view = %d, want register", a.view)
	}
	if a.register.statusMsg != "Username already exists" || !a.register.failed {
		t.Errorf("status = %q (failed=%v)", a.register.statusMsg, a.register.failed)
	}
}

func TestStartupSessionOpensProfile(t *testing.T) {
	a, env := newTestEnv(t, "abc")
	if a.view != viewRoot || !a.awaitProfile {
		t.Fatalf("view = %d awaitProfile = %v, want root waiting for validation", a.view, a.awaitProfile)
	}

	env.store.Validated("abc", domain.User{"username": "ada"})
	a = pump(a, env.bridge)

	if a.view != viewProfile {
		t.Errorf("view = %d, want profile", a.view)
	}
	if !strings.Contains(a.View(), "ada") {
		t.Error("profile should show the username")
	}
}

func TestInvalidatedSessionLeavesProfile(t *testing.T) {
	a, env := newTestEnv(t, "abc")
	env.store.Validated("abc", domain.User{"username": "ada"})
	a = pump(a, env.bridge)

	env.store.Invalidate("abc")
	a = pump(a, env.bridge)

	if a.view != viewRoot {
		t.Errorf("view = %d, want root", a.view)
	}
	if a.notice == "" {
		t.Error("expected a session-ended notice")
	}
}

func TestLogoutFromProfile(t *testing.T) {
	a, env := newTestEnv(t, "abc")
	env.store.Validated("abc", domain.User{"username": "ada"})
	a = pump(a, env.bridge)

	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	if cmd == nil {
		t.Fatal("expected a logout command")
	}
	cmd()
	a = pump(model.(App), env.bridge)

	if a.view != viewRoot {
		t.Errorf("view = %d, want root", a.view)
	}
	if a.session.Token != "" || env.store.Token() != "" {
		t.Error("logout should clear the session")
	}
}

func TestCopyToken(t *testing.T) {
	a, env := newTestEnv(t, "abc")
	env.store.Validated("abc", domain.User{"username": "ada"})
	a = pump(a, env.bridge)

	var copied string
	a.copy = func(s string) error { copied = s; return nil }
	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	model, _ = model.(App).Update(cmd())
	a = model.(App)

	if copied != "abc" {
		t.Errorf("copied %q, want abc", copied)
	}
	if !strings.Contains(a.notice, "copied") {
		t.Errorf("notice = %q", a.notice)
	}

	a.copy = func(string) error { return errors.New("no clipboard") }
	model, cmd = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	model, _ = model.(App).Update(cmd())
	if n := model.(App).notice; !strings.Contains(n, "no clipboard") {
		t.Errorf("notice = %q", n)
	}
}

func TestStartRoute(t *testing.T) {
	store, _ := session.Open(session.NewMemoryRepository(""), nil)
	a := NewApp(Options{Store: store, Start: auth.RouteRegister})
	if a.view != viewRegister {
		t.Errorf("view = %d, want register", a.view)
	}
}

func TestViewFitsHeight(t *testing.T) {
	a, _ := newTestEnv(t, "")
	a.height = 8
	if n := strings.Count(a.View(), "\n") + 1; n > a.height {
		t.Errorf("View() has %d lines, want <= %d", n, a.height)
	}
}

func TestBridgeCloseUnblocksSenders(t *testing.T) {
	b := NewBridge()
	for i := 0; i < cap(b.msgs); i++ {
		b.Navigate(auth.RouteRoot)
	}
	done := make(chan struct{})
	go func() {
		b.Navigate(auth.RouteRoot)
		close(done)
	}()
	b.Close()
	<-done
}
