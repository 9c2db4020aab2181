package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tramontosereno/sereno/internal/browser"
	"github.com/tramontosereno/sereno/pkg/auth"
	"github.com/tramontosereno/sereno/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewAccount
	viewServices
)

// Auth is the session manager as seen by the interface.
type Auth interface {
	Session() *domain.Session
	Login(ctx context.Context, identifier, secret, role string) (*domain.Session, error)
	Logout(ctx context.Context) error
	UserProfile(ctx context.Context) (*domain.UserProfile, error)
	ReloadProfile(ctx context.Context) (*domain.UserProfile, error)
	Ping(ctx context.Context) auth.BestEffort
}

// Catalog lists the services offered by the web application.
type Catalog interface {
	ServicesAvailable(ctx context.Context) ([]domain.Service, error)
}

// Options wires the host collaborators. Nil functions fall back to the
// system browser and clipboard. A zero PingInterval disables the keepalive.
type Options struct {
	AppURL       string
	PingInterval time.Duration
	Open         func(url string) error
	Copy         func(text string) error
}

// App is the root Bubbletea model.
type App struct {
	auth       Auth
	deps       Options
	view       view
	login      loginModel
	account    accountModel
	services   servicesModel
	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int // logo shimmer animation frame
	pingGen    int
}

// NewApp creates the TUI. It opens on the account view when a session is
// already present.
func NewApp(a Auth, c Catalog, opts Options) App {
	if opts.Open == nil {
		opts.Open = browser.Open
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	app := App{
		auth:     a,
		deps:     opts,
		login:    newLoginModel(a),
		account:  newAccountModel(a, opts),
		services: newServicesModel(c, a, opts),
	}
	if app.loggedIn() {
		app.view = viewAccount
		app.account.loading = true
	}
	return app
}

func (a App) loggedIn() bool {
	return a.auth != nil && a.auth.Session().Valid()
}

func (a App) Init() tea.Cmd {
	if a.view == viewAccount {
		return tea.Batch(shimmerTickCmd(), a.account.load(false), a.nextPing())
	}
	return shimmerTickCmd()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + help(1) = 4 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a.account, _ = a.account.Update(bodyMsg)
		a.services, _ = a.services.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case pingTickMsg:
		if msg.gen != a.pingGen || !a.loggedIn() {
			return a, nil
		}
		return a, a.ping(msg.gen)

	case pingDoneMsg:
		if msg.gen != a.pingGen {
			return a, nil
		}
		return a, a.nextPing()

	case loggedInMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err != nil {
			return a, nil
		}
		a.view = viewAccount
		a.account = newAccountModel(a.auth, a.deps)
		a.account.loading = true
		ping := a.startPing()
		return a, tea.Batch(a.account.load(false), ping)

	case loggedOutMsg:
		if msg.err != nil {
			a.account.status = errorText(msg.err)
			return a, nil
		}
		a.account = newAccountModel(a.auth, a.deps)
		a.login = newLoginModel(a.auth)
		a.view = viewLogin
		a.pingGen++
		return a, nil

	case profileLoadedMsg:
		a.account, _ = a.account.Update(msg)
		return a, nil

	case servicesLoadedMsg:
		a.services, _ = a.services.Update(msg)
		return a, nil

	case tea.KeyMsg:
		if a.helpOpen {
			return a.updateHelp(msg)
		}

		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// The login form takes every printable key.
		if a.view == viewLogin {
			if msg.String() == "esc" {
				return a.switchTo(viewServices)
			}
			var cmd tea.Cmd
			a.login, cmd = a.login.Update(msg)
			return a, cmd
		}

		switch msg.String() {
		case "h":
			a.helpOpen = true
			a.helpCursor = 0
			return a, nil
		case "q":
			return a, tea.Quit
		case "1":
			if a.loggedIn() {
				return a.switchTo(viewAccount)
			}
			return a.switchTo(viewLogin)
		case "2":
			return a.switchTo(viewServices)
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewAccount:
		a.account, cmd = a.account.Update(msg)
	case viewServices:
		a.services, cmd = a.services.Update(msg)
	}
	return a, cmd
}

func (a App) switchTo(v view) (tea.Model, tea.Cmd) {
	if a.view == v {
		return a, nil
	}
	a.view = v
	switch v {
	case viewServices:
		cmd := a.services.Init()
		if cmd != nil {
			a.services.loading = true
		}
		return a, cmd
	case viewAccount:
		if a.account.profile == nil && !a.account.loading {
			a.account.loading = true
			return a, a.account.load(false)
		}
	}
	return a, nil
}

func (a App) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "esc":
		a.helpOpen = false
	case "q", "ctrl+c":
		return a, tea.Quit
	case "j", "down":
		if a.helpCursor < len(helpItems)-1 {
			a.helpCursor++
		}
	case "k", "up":
		if a.helpCursor > 0 {
			a.helpCursor--
		}
	case "enter":
		item := helpItems[a.helpCursor]
		if item.url != "" {
			a.deps.Open(item.url) //nolint:errcheck // best-effort browser open
		}
	}
	return a, nil
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := center(logo, a.width) + "\n"
	if sess := a.sessionLine(); sess != "" {
		header += center(sess, a.width)
	}

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	first := tabEntry{"1", "Accedi", viewLogin}
	if a.loggedIn() {
		first = tabEntry{"1", "Account", viewAccount}
	}
	tabs := []tabEntry{first, {"2", "Servizi", viewServices}}

	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = helpBar("tab", "campo", "ctrl+r", "ruolo", "enter", "accedi", "esc", "servizi", "ctrl+c", "esci")
	case viewAccount:
		body = a.account.View()
		help = helpBar("1-2", "schede", "r", "aggiorna", "o", "apri web", "c", "copia email", "l", "esci dall'account", "h", "aiuto", "q", "chiudi")
	case viewServices:
		body = a.services.View()
		help = helpBar("1-2", "schede", "j/k", "naviga", "enter", "apri", "r", "aggiorna", "h", "aiuto", "q", "chiudi")
	}

	if a.helpOpen {
		body = helpView(a.helpCursor)
		help = helpBar("j/k", "naviga", "enter", "apri", "esc", "chiudi")
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-4), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabBar.String(), body, help)
}

func (a App) sessionLine() string {
	if !a.loggedIn() {
		return ""
	}
	role := a.auth.Session().Role
	parts := []string{RoleStyle(role).Render(roleLabel(role))}
	if p := a.account.profile; p != nil {
		parts = append(parts, metaStyle.Render(p.User.DisplayName()))
	}
	return strings.Join(parts, metaStyle.Render(" . "))
}

func center(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}
