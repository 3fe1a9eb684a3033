package auth

import (
	"context"
	"log/slog"

	"github.com/naveenspark/gatekeep/pkg/client"
	"github.com/naveenspark/gatekeep/pkg/domain"
	"github.com/naveenspark/gatekeep/pkg/session"
)

// Messages used when the server gives no reason of its own.
const (
	DefaultLoginError    = "Login failed"
	DefaultRegisterError = "Registration failed"
)

// Credentials is the server side of login and registration.
type Credentials interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResponse, error)
	Register(ctx context.Context, userData map[string]any) error
}

// Gateway runs login, registration and logout against a session store.
// Failures are reported through Result, never as errors.
type Gateway struct {
	creds  Credentials
	store  *session.Store
	nav    Navigator
	logger *slog.Logger
}

// NewGateway creates a gateway. A nil nav discards navigations.
func NewGateway(creds Credentials, store *session.Store, nav Navigator, logger *slog.Logger) *Gateway {
	if nav == nil {
		nav = noopNavigator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{creds: creds, store: store, nav: nav, logger: logger}
}

// Login authenticates and, on success, stores the token and navigates to the
// profile. The session itself is validated by the store's synchronizer.
func (g *Gateway) Login(ctx context.Context, username, password string) Result {
	resp, err := g.creds.Login(ctx, username, password)
	if err != nil {
		g.logger.Error("login failed", "username", username, "err", err)
		return Fail(failureMessage(err, DefaultLoginError))
	}

	if err := g.store.SetToken(resp.Token); err != nil {
		g.logger.Warn("login token kept in memory only", "err", err)
	}
	g.nav.Navigate(RouteProfile)
	return OK()
}

// Register creates an account and navigates to the success view. It does not
// log the user in.
func (g *Gateway) Register(ctx context.Context, userData map[string]any) Result {
	body := make(map[string]any, len(userData))
	for k, v := range userData {
		body[k] = v
	}
	if err := g.creds.Register(ctx, body); err != nil {
		g.logger.Error("registration failed", "err", err)
		return Fail(failureMessage(err, DefaultRegisterError))
	}
	g.nav.Navigate(RouteSuccess)
	return OK()
}

// Logout clears the session and navigates to the root view. It makes no
// request and is safe to call when already logged out.
func (g *Gateway) Logout() {
	if err := g.store.Clear(); err != nil {
		g.logger.Warn("logout: remove persisted token", "err", err)
	}
	g.nav.Navigate(RouteRoot)
}

// failureMessage returns the server's message for HTTP failures and fallback
// for everything else (transport errors, malformed bodies).
func failureMessage(err error, fallback string) string {
	if msg := client.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
