// Command gatekeep is a terminal client for the gatekeep auth API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatekeep/internal/config"
	"github.com/naveenspark/gatekeep/internal/logging"
	"github.com/naveenspark/gatekeep/internal/tui"
	"github.com/naveenspark/gatekeep/pkg/auth"
	"github.com/naveenspark/gatekeep/pkg/client"
	"github.com/naveenspark/gatekeep/pkg/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "--version", "version", "-v":
		fmt.Fprintln(stdout, "gatekeep "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(stdout)
		return nil
	}

	var cfg config.Client
	if err := config.Load(&cfg); err != nil {
		return err
	}

	switch cmd {
	case "":
		return runTUI(cfg, auth.RouteRoot)
	case "login":
		return runTUI(cfg, auth.RouteLogin)
	case "register":
		return runTUI(cfg, auth.RouteRegister)
	case "logout":
		return runLogout(cfg, stdout)
	case "whoami":
		return runWhoami(cfg, stdout)
	}
	return fmt.Errorf("unknown command %q (see gatekeep help)", cmd)
}

// homeDir returns GATEKEEP_HOME or ~/.gatekeep.
func homeDir(cfg config.Client) (string, error) {
	if cfg.Home != "" {
		return cfg.Home, nil
	}
	return session.DefaultHome()
}

// openRepository picks where the token lives. A GATEKEEP_TOKEN override is
// never written to disk.
func openRepository(cfg config.Client, logger *slog.Logger) (session.Repository, func(), error) {
	if cfg.Token != "" {
		return session.NewMemoryRepository(cfg.Token), func() {}, nil
	}
	home, err := homeDir(cfg)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Store {
	case "badger":
		repo, err := session.OpenBadger(filepath.Join(home, "badger"), logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close badger", "err", err)
			}
		}, nil
	default:
		return session.NewFileRepository(filepath.Join(home, "token")), func() {}, nil
	}
}

// cliLogger writes to stderr for one-shot subcommands.
func cliLogger(cfg config.Client) *slog.Logger {
	return logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
}

func openStore(cfg config.Client, logger *slog.Logger) (*session.Store, func(), error) {
	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := session.Open(repo, logger)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}
	return store, closeRepo, nil
}

func runTUI(cfg config.Client, start auth.Route) error {
	home, err := homeDir(cfg)
	if err != nil {
		return err
	}
	// The alternate screen owns stdout and stderr while the TUI runs.
	logFile, err := logging.OpenFile(filepath.Join(home, "gatekeep.log"))
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close() //nolint:errcheck
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: logFile})

	store, closeRepo, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	c := client.New(cfg.APIURL, "")
	bridge := tui.NewBridge()
	unwatch := bridge.Watch(store)
	sync := session.NewSynchronizer(store, c, logger)
	gateway := auth.NewGateway(c, store, bridge, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sync.Start(ctx)

	app := tui.NewApp(tui.Options{
		Gateway: gateway,
		Store:   store,
		Bridge:  bridge,
		Start:   start,
		Version: version,
	})
	_, runErr := tea.NewProgram(app, tea.WithAltScreen()).Run()

	// Release the bridge first so in-flight syncs cannot block on it.
	bridge.Close()
	sync.Stop()
	unwatch()

	if runErr != nil {
		return fmt.Errorf("tui error: %w", runErr)
	}
	return nil
}

func runLogout(cfg config.Client, stdout io.Writer) error {
	logger := cliLogger(cfg)
	store, closeRepo, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if store.Token() == "" {
		fmt.Fprintln(stdout, "Already logged out.")
		return nil
	}
	auth.NewGateway(nil, store, nil, logger).Logout()
	fmt.Fprintln(stdout, "Logged out.")
	if cfg.Token != "" {
		fmt.Fprintln(stdout, "GATEKEEP_TOKEN is still set in your environment.")
	}
	return nil
}

var errNotLoggedIn = errors.New("not logged in (run gatekeep login)")

func runWhoami(cfg config.Client, stdout io.Writer) error {
	logger := cliLogger(cfg)
	store, closeRepo, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	token := store.Token()
	if token == "" {
		return errNotLoggedIn
	}
	sync := session.NewSynchronizer(store, client.New(cfg.APIURL, ""), logger)
	switch o := sync.Sync(context.Background(), token); o {
	case session.OutcomeValidated:
	case session.OutcomeInvalidated:
		return errors.New("session is no longer valid; logged out")
	default:
		return fmt.Errorf("could not validate session (%s)", o)
	}

	printIdentity(stdout, store.Session())
	return nil
}
