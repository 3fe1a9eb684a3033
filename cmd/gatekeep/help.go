package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/gatekeep/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)
	cmdStyle  = lipgloss.NewStyle().Bold(true)
	descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printHelp(w io.Writer) {
	title := titleStyle.Render("G A T E K E E P")
	tagline := descStyle.Italic(true).Render("Sign in, sign up, stay signed in.")

	commands := []struct{ cmd, desc string }{
		{"gatekeep", "Open the interactive TUI"},
		{"gatekeep login", "Log in with username and password"},
		{"gatekeep register", "Create an account"},
		{"gatekeep logout", "Clear your session"},
		{"gatekeep whoami", "Validate your session and show who you are"},
		{"gatekeep --version", "Show version"},
		{"gatekeep help", "You are here"},
	}
	env := []struct{ name, desc string }{
		{"GATEKEEP_API_URL", "API base URL (default http://localhost:3000)"},
		{"GATEKEEP_TOKEN", "Use this token instead of the saved one"},
		{"GATEKEEP_HOME", "State directory (default ~/.gatekeep)"},
		{"GATEKEEP_STORE", "Token storage: file or badger"},
	}

	fmt.Fprintf(w, "\n  %s\n  %s\n\n  Commands:\n", title, tagline)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  Environment:\n")
	for _, e := range env {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", e.name)), descStyle.Render(e.desc))
	}
	fmt.Fprintln(w)
}

// printIdentity writes the validated user, one field per line.
func printIdentity(w io.Writer, s session.Session) {
	u := s.User
	fmt.Fprintf(w, "%s\n", titleStyle.Render(u.Username()))
	for _, k := range u.Keys() {
		if v := u.String(k); v != "" {
			fmt.Fprintf(w, "  %-14s %s\n", k, v)
		}
	}
}
