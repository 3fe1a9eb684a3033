package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatekeep/pkg/auth"
	"github.com/naveenspark/gatekeep/pkg/session"
)

type view int

const (
	viewRoot view = iota
	viewLogin
	viewRegister
	viewProfile
	viewSuccess
)

// viewFor maps a route to the view that renders it.
var viewFor = map[auth.Route]view{
	auth.RouteRoot:     viewRoot,
	auth.RouteLogin:    viewLogin,
	auth.RouteRegister: viewRegister,
	auth.RouteProfile:  viewProfile,
	auth.RouteSuccess:  viewSuccess,
}

// authResultMsg is the outcome of a login or registration submit.
type authResultMsg struct {
	from   view
	result auth.Result
}

type copiedMsg struct {
	err error
}

// Options wires an App to the session layer.
type Options struct {
	Gateway *auth.Gateway
	Store   *session.Store
	// Bridge must be the Navigator the Gateway was built with and must be
	// watching Store.
	Bridge *Bridge
	// Start is the initial route. RouteRoot opens the profile as soon as a
	// persisted session validates.
	Start   auth.Route
	Version string
}

// App is the root Bubbletea model.
type App struct {
	gateway  *auth.Gateway
	bridge   *Bridge
	copy     func(string) error
	version  string
	view     view
	login    formModel
	register formModel
	session  session.Session
	// awaitProfile jumps to the profile once the startup token validates.
	awaitProfile bool
	notice       string
	width        int
	height       int
	frame        int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(opts Options) App {
	a := App{
		gateway:  opts.Gateway,
		bridge:   opts.Bridge,
		copy:     clipboard.WriteAll,
		version:  opts.Version,
		view:     viewFor[opts.Start],
		login:    newLoginForm(),
		register: newRegisterForm(),
	}
	if a.bridge == nil {
		a.bridge = NewBridge()
	}
	if opts.Store != nil {
		a.session = opts.Store.Session()
	}
	if a.view == viewRoot && a.session.Token != "" {
		if a.session.Authenticated() {
			a.view = viewProfile
		} else {
			a.awaitProfile = true
		}
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.bridge.wait())
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionMsg:
		prev := a.session
		a.session = msg.session
		switch {
		case a.session.Authenticated() && a.awaitProfile:
			a.awaitProfile = false
			if a.view == viewRoot {
				a.view = viewProfile
			}
		case a.session.Token == "":
			a.awaitProfile = false
			if prev.Token != "" && a.view == viewProfile {
				a.view = viewRoot
				a.notice = "Your session ended. Log in again to continue."
			}
		}
		return a, a.bridge.wait()

	case navigateMsg:
		a = a.navigate(msg.route)
		return a, a.bridge.wait()

	case authResultMsg:
		failure := ""
		if !msg.result.Ok() {
			failure = msg.result.String()
		}
		switch msg.from {
		case viewLogin:
			a.login = a.login.finish(failure)
		case viewRegister:
			a.register = a.register.finish(failure)
		}
		return a, nil

	case copiedMsg:
		if msg.err != nil {
			a.notice = "Could not copy token: " + msg.err.Error()
		} else {
			a.notice = "Token copied to clipboard."
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) navigate(route auth.Route) App {
	v, ok := viewFor[route]
	if !ok {
		return a
	}
	switch v {
	case viewProfile:
		a.login = newLoginForm()
	case viewSuccess:
		a.register = newRegisterForm()
	case viewRoot:
		a.awaitProfile = false
	}
	a.view = v
	a.notice = ""
	return a
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.isEditing() {
		if key == "esc" {
			return a.navigate(auth.RouteRoot), nil
		}
		return a.updateForm(msg)
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "esc":
		return a.navigate(auth.RouteRoot), nil
	}

	switch a.view {
	case viewRoot:
		switch key {
		case "l", "enter":
			return a.navigate(auth.RouteLogin), nil
		case "r":
			return a.navigate(auth.RouteRegister), nil
		case "p":
			if a.session.Token != "" {
				return a.navigate(auth.RouteProfile), nil
			}
		}
	case viewSuccess:
		if key == "l" || key == "enter" {
			return a.navigate(auth.RouteLogin), nil
		}
	case viewProfile:
		switch key {
		case "c":
			if tok := a.session.Token; tok != "" {
				return a, a.copyToken(tok)
			}
		case "o":
			return a, a.logout()
		}
	}
	return a, nil
}

func (a App) isEditing() bool {
	return a.view == viewLogin || a.view == viewRegister
}

func (a App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var submit bool
	switch a.view {
	case viewLogin:
		a.login, submit = a.login.Update(msg)
		if submit {
			return a, a.submitLogin(a.login.value("username"), a.login.value("password"))
		}
	case viewRegister:
		a.register, submit = a.register.Update(msg)
		if submit {
			return a, a.submitRegister(a.register.data())
		}
	}
	return a, nil
}

func (a App) submitLogin(username, password string) tea.Cmd {
	g := a.gateway
	return func() tea.Msg {
		return authResultMsg{from: viewLogin, result: g.Login(context.Background(), username, password)}
	}
}

func (a App) submitRegister(data map[string]any) tea.Cmd {
	g := a.gateway
	return func() tea.Msg {
		return authResultMsg{from: viewRegister, result: g.Register(context.Background(), data)}
	}
}

// logout runs off the Update loop: the gateway navigates through the bridge,
// which this loop drains.
func (a App) logout() tea.Cmd {
	g := a.gateway
	return func() tea.Msg {
		g.Logout()
		return nil
	}
}

func (a App) copyToken(token string) tea.Cmd {
	copyFn := a.copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(token)}
	}
}

func (a App) View() string {
	header := center(renderShimmerLogo(a.frame), a.width) + "\n" + center(a.statusLine(), a.width)

	var body, help string
	switch a.view {
	case viewRoot:
		body = a.rootView()
		if a.session.Token != "" {
			help = helpBar("l", "log in", "r", "register", "p", "profile", "q", "quit")
		} else {
			help = helpBar("l", "log in", "r", "register", "q", "quit")
		}
	case viewLogin:
		body = a.login.View()
		help = helpBar("tab", "next", "enter", "submit", "esc", "back")
	case viewRegister:
		body = a.register.View()
		help = helpBar("tab", "next", "ctrl+s", "submit", "esc", "back")
	case viewProfile:
		body = a.profileView()
		help = helpBar("c", "copy token", "o", "log out", "esc", "home", "q", "quit")
	case viewSuccess:
		body = a.successView()
		help = helpBar("l", "log in", "esc", "home", "q", "quit")
	}

	if a.notice != "" {
		body += "\n\n  " + accentStyle.Render(a.notice)
	}

	// Chrome: header(2) + blank(1) + help(1)
	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	return fmt.Sprintf("%s\n\n%s\n%s", header, body, help)
}

func (a App) statusLine() string {
	switch {
	case a.session.Authenticated():
		return metaStyle.Render("signed in as ") + okStyle.Render(a.session.User.Username())
	case a.session.Token != "":
		return metaStyle.Render("checking session...")
	default:
		return metaStyle.Render("not signed in")
	}
}

func (a App) rootView() string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("Welcome") + "\n\n")
	if a.session.Authenticated() {
		fmt.Fprintf(&b, "  %s\n", normalStyle.Render("You are signed in. Press p for your profile."))
	} else {
		fmt.Fprintf(&b, "  %s\n", normalStyle.Render("Log in with an existing account or register a new one."))
	}
	b.WriteString("\n  " + inputPromptStyle.Render("> ") + inputPlaceholderStyle.Render("press l to log in"))
	if a.version != "" {
		b.WriteString("\n\n  " + metaStyle.Render("gatekeep "+a.version))
	}
	return b.String()
}

func (a App) profileView() string {
	if !a.session.Authenticated() {
		if a.session.Token != "" {
			return "  " + dimStyle.Render("Validating your session...")
		}
		return "  " + dimStyle.Render("Not signed in. Press esc, then l to log in.")
	}

	u := a.session.User
	var lines []string
	width := 0
	for _, k := range u.Keys() {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range u.Keys() {
		v := u.String(k)
		if v == "" {
			continue
		}
		lines = append(lines, metaStyle.Render(fmt.Sprintf("%-*s", width, k))+"  "+normalStyle.Render(truncStr(v, 60)))
	}
	lines = append(lines, "", metaStyle.Render(fmt.Sprintf("%-*s", width, "token"))+"  "+dimStyle.Render(truncStr(a.session.Token, 16)))

	title := "  " + titleStyle.Render(u.Username()) + "\n\n"
	return title + indent(cardStyle.Render(strings.Join(lines, "\n")), "  ")
}

func (a App) successView() string {
	return "  " + okStyle.Render("Registration complete.") + "\n\n  " +
		normalStyle.Render("Your account is ready. Press l to log in.")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
