package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type formField struct {
	key      string
	label    string
	masked   bool
	required bool
	value    string
}

// formModel is a vertical list of text fields. It reports a submit request
// to its owner and never performs the request itself.
type formModel struct {
	title     string
	fields    []formField
	focus     int
	statusMsg string
	failed    bool
	submitted bool
}

func newLoginForm() formModel {
	return formModel{
		title: "Log in",
		fields: []formField{
			{key: "username", label: "username", required: true},
			{key: "password", label: "password", masked: true, required: true},
		},
	}
}

func newRegisterForm() formModel {
	return formModel{
		title: "Create an account",
		fields: []formField{
			{key: "username", label: "username", required: true},
			{key: "password", label: "password", masked: true, required: true},
			{key: "email", label: "email"},
			{key: "display_name", label: "display name"},
		},
	}
}

// Update handles a key. submit is true when the user asked to send the form
// and every required field is filled.
func (m formModel) Update(msg tea.KeyMsg) (formModel, bool) {
	if m.submitted {
		return m, false
	}
	m.statusMsg = ""
	m.failed = false
	n := len(m.fields)

	switch msg.String() {
	case "ctrl+s":
		return m.trySubmit()
	case "tab", "down":
		m.focus = (m.focus + 1) % n
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + n) % n
	case "enter":
		if m.focus == n-1 {
			return m.trySubmit()
		}
		m.focus++
	default:
		f := &m.fields[m.focus]
		if msg.Type == tea.KeyRunes && len(msg.Runes) > 1 {
			for _, r := range msg.Runes {
				f.value = editRune(f.value, string(r))
			}
			return m, false
		}
		f.value = editRune(f.value, msg.String())
	}
	return m, false
}

func (m formModel) trySubmit() (formModel, bool) {
	for i, f := range m.fields {
		if f.required && strings.TrimSpace(f.value) == "" {
			m.focus = i
			m.statusMsg = f.label + " is required"
			m.failed = true
			return m, false
		}
	}
	m.submitted = true
	return m, true
}

// value returns the trimmed value of field key; passwords are kept verbatim.
func (m formModel) value(key string) string {
	for _, f := range m.fields {
		if f.key == key {
			if f.masked {
				return f.value
			}
			return strings.TrimSpace(f.value)
		}
	}
	return ""
}

// data returns every non-empty field keyed by its wire name.
func (m formModel) data() map[string]any {
	out := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		if v := m.value(f.key); v != "" {
			out[f.key] = v
		}
	}
	return out
}

// finish records the outcome of a submit.
func (m formModel) finish(failure string) formModel {
	m.submitted = false
	if failure != "" {
		m.statusMsg = failure
		m.failed = true
	}
	return m
}

func (m formModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n\n", titleStyle.Render(m.title))

	for i, f := range m.fields {
		cursor := " "
		style := metaStyle
		value := f.value
		if f.masked {
			value = mask(value)
		}
		if i == m.focus {
			cursor = accentStyle.Render(">")
			style = selectedStyle
			value += "█"
		}
		fmt.Fprintf(&b, "  %s %s %s\n", cursor, style.Render(fmt.Sprintf("%-13s", f.label)), normalStyle.Render(value))
	}

	b.WriteString("\n")
	switch {
	case m.submitted:
		b.WriteString("  " + dimStyle.Render("sending..."))
	case m.statusMsg != "" && m.failed:
		b.WriteString("  " + errorStyle.Render(m.statusMsg))
	case m.statusMsg != "":
		b.WriteString("  " + okStyle.Render(m.statusMsg))
	}
	return b.String()
}
