package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatekeep/pkg/auth"
	"github.com/naveenspark/gatekeep/pkg/session"
)

// sessionMsg carries a session change into the Update loop.
type sessionMsg struct {
	session session.Session
}

// navigateMsg carries a navigation requested by the gateway.
type navigateMsg struct {
	route auth.Route
}

// Bridge feeds session events and navigations from other goroutines into a
// running program. It implements auth.Navigator.
type Bridge struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		msgs: make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

// Navigate implements auth.Navigator.
func (b *Bridge) Navigate(route auth.Route) {
	b.send(navigateMsg{route: route})
}

// Watch forwards every event of s until the returned func is called.
func (b *Bridge) Watch(s *session.Store) (unsubscribe func()) {
	return s.Subscribe(func(ev session.Event) {
		b.send(sessionMsg{session: ev.Session})
	})
}

// Close releases blocked senders. Messages sent afterwards are dropped.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	case <-b.done:
	}
}

// wait returns a Cmd that yields the next bridged message. The App re-arms
// it after every bridged message it handles.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.done:
			return nil
		}
	}
}
