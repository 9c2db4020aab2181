package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pingTickMsg fires when the next keepalive is due. gen ties it to the login
// that scheduled it so ticks from an earlier session are dropped.
type pingTickMsg struct{ gen int }

type pingDoneMsg struct {
	gen int
	err error
}

// startPing begins a new keepalive chain. It returns nil when the keepalive
// is disabled or there is no session.
func (a *App) startPing() tea.Cmd {
	a.pingGen++
	return a.nextPing()
}

func (a App) nextPing() tea.Cmd {
	if a.deps.PingInterval <= 0 || !a.loggedIn() {
		return nil
	}
	gen := a.pingGen
	return tea.Tick(a.deps.PingInterval, func(time.Time) tea.Msg {
		return pingTickMsg{gen: gen}
	})
}

// ping runs one keepalive. The next tick is scheduled only after it returns,
// so slow gateways never see overlapping pings.
func (a App) ping(gen int) tea.Cmd {
	auth := a.auth
	return func() tea.Msg {
		res := auth.Ping(context.Background())
		return pingDoneMsg{gen: gen, err: res.Err}
	}
}
