package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tramontosereno/sereno/pkg/bridge"
	"github.com/tramontosereno/sereno/pkg/domain"
)

type servicesModel struct {
	catalog Catalog
	auth    Auth
	deps    Options
	items   []domain.Service
	cursor  int
	loading bool
	loaded  bool
	err     string
	status  string
	width   int
	height  int
}

type servicesLoadedMsg struct {
	services []domain.Service
	err      error
}

func newServicesModel(c Catalog, a Auth, deps Options) servicesModel {
	return servicesModel{catalog: c, auth: a, deps: deps}
}

// Init loads the catalog the first time the view is shown.
func (m servicesModel) Init() tea.Cmd {
	if m.loaded || m.loading || m.catalog == nil {
		return nil
	}
	return m.load()
}

func (m servicesModel) load() tea.Cmd {
	c := m.catalog
	return func() tea.Msg {
		services, err := c.ServicesAvailable(context.Background())
		return servicesLoadedMsg{services: services, err: err}
	}
}

func (m servicesModel) Update(msg tea.Msg) (servicesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case servicesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, nil
		}
		m.loaded = true
		m.err = ""
		m.items = msg.services
		if m.cursor >= len(m.items) {
			m.cursor = 0
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = msg.status
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			if m.catalog != nil && !m.loading {
				m.loading = true
				return m, m.load()
			}
		case "enter":
			if m.cursor < len(m.items) {
				return m, m.open(m.items[m.cursor])
			}
		}
	}
	return m, nil
}

// serviceTarget resolves where a catalog entry leads: guest routes open the
// web app through the set-token hand-off, absolute URLs open as they are,
// "@" entries are screens of the mobile app only.
func serviceTarget(appURL string, sess *domain.Session, s domain.Service) (string, bool) {
	switch {
	case s.IsGuestRoute():
		if sess.Valid() {
			return bridge.SetTokenURL(appURL, sess.Token, s.URL), true
		}
		return bridge.GuestURL(appURL, s.URL), true
	case strings.HasPrefix(s.URL, "http"):
		return s.URL, true
	default:
		return "", false
	}
}

func (m servicesModel) open(s domain.Service) tea.Cmd {
	var sess *domain.Session
	if m.auth != nil {
		sess = m.auth.Session()
	}
	url, ok := serviceTarget(m.deps.AppURL, sess, s)
	if !ok {
		title := s.Title
		return func() tea.Msg {
			return actionDoneMsg{status: title + " è disponibile solo nell'app mobile."}
		}
	}
	open, title := m.deps.Open, s.Title
	return func() tea.Msg {
		if err := open(url); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: title + " aperto nel browser."}
	}
}

func (m servicesModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.loading && len(m.items) == 0:
		return b.String() + "  " + dimStyle.Render("caricamento servizi...")
	case m.err != "" && len(m.items) == 0:
		return b.String() + "  " + errorStyle.Render(m.err) + "\n\n  " + dimStyle.Render("premi r per riprovare")
	case len(m.items) == 0:
		return b.String() + "  " + dimStyle.Render("nessun servizio disponibile")
	}

	descWidth := max(m.width-36, 20)
	for i, s := range m.items {
		title := fmt.Sprintf("%-28s", truncStr(s.Title, 28))
		desc := truncStr(s.Desc, descWidth)
		line := "  " + normalStyle.Render(title) + " " + dimStyle.Render(desc)
		if i == m.cursor {
			line = selectedRowBg.Render(accentStyle.Render("> ") + selectedStyle.Render(title) + " " + dimStyle.Render(desc))
		}
		b.WriteString(line + "\n")
	}

	if m.status != "" {
		b.WriteString("\n  " + okStyle.Render(m.status))
	} else if m.err != "" {
		b.WriteString("\n  " + errorStyle.Render(m.err))
	}
	return b.String()
}
