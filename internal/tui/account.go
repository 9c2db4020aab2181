package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tramontosereno/sereno/pkg/bridge"
	"github.com/tramontosereno/sereno/pkg/domain"
)

type accountModel struct {
	auth    Auth
	deps    Options
	profile *domain.UserProfile
	loading bool
	err     string
	status  string
	width   int
	height  int
}

type profileLoadedMsg struct {
	profile *domain.UserProfile
	err     error
}

type loggedOutMsg struct {
	err error
}

// actionDoneMsg reports a side action such as opening a URL or copying.
type actionDoneMsg struct {
	status string
	err    error
}

func newAccountModel(a Auth, deps Options) accountModel {
	return accountModel{auth: a, deps: deps}
}

func (m accountModel) load(reload bool) tea.Cmd {
	a := m.auth
	return func() tea.Msg {
		var (
			p   *domain.UserProfile
			err error
		)
		if reload {
			p, err = a.ReloadProfile(context.Background())
		} else {
			p, err = a.UserProfile(context.Background())
		}
		return profileLoadedMsg{profile: p, err: err}
	}
}

func (m accountModel) Update(msg tea.Msg) (accountModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, nil
		}
		m.err = ""
		m.profile = msg.profile
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
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.err = ""
			return m, m.load(true)
		case "l":
			a := m.auth
			return m, func() tea.Msg {
				return loggedOutMsg{err: a.Logout(context.Background())}
			}
		case "o":
			return m, m.openWebApp()
		case "c":
			return m, m.copyEmail()
		}
	}
	return m, nil
}

func (m accountModel) openWebApp() tea.Cmd {
	sess := m.auth.Session()
	if sess == nil {
		return nil
	}
	url := bridge.SetTokenURL(m.deps.AppURL, sess.Token, "")
	open := m.deps.Open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "App web aperta nel browser."}
	}
}

func (m accountModel) copyEmail() tea.Cmd {
	if m.profile == nil || m.profile.User.Email == "" {
		return nil
	}
	email, cp := m.profile.User.Email, m.deps.Copy
	return func() tea.Msg {
		if err := cp(email); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "Email copiata negli appunti."}
	}
}

func (m accountModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.profile == nil {
		switch {
		case m.loading:
			b.WriteString("  " + dimStyle.Render("caricamento profilo..."))
		case m.err != "":
			b.WriteString("  " + errorStyle.Render(m.err) + "\n\n  " + dimStyle.Render("premi r per riprovare"))
		default:
			b.WriteString("  " + dimStyle.Render("nessun profilo"))
		}
		return b.String()
	}

	u := m.profile.User
	fmt.Fprintf(&b, "  %s  %s\n\n", selectedStyle.Render(u.DisplayName()), RoleStyle(int(u.Role)).Render(roleLabel(int(u.Role))))
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", label)), normalStyle.Render(value))
	}
	row("email", u.Email)
	row("telefono", u.Phone)
	if m.profile.Partner != nil {
		row("partner", m.profile.Partner.ShopName)
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Piani"))
	if len(m.profile.Plans) == 0 {
		b.WriteString("  " + dimStyle.Render("nessun piano") + "\n")
	}
	current := m.profile.CurrentPlan()
	for _, p := range m.profile.Plans {
		marker := "  "
		style := normalStyle
		if current != nil && p.ID == current.ID {
			marker = accentStyle.Render("● ")
			style = selectedStyle
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Piano #%d", p.ID)
		}
		fmt.Fprintf(&b, "  %s%s\n", marker, style.Render(truncStr(name, max(m.width-6, 20))))
	}

	c := m.profile.Consents
	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Consensi"))
	fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
		consent("privacy", bool(c.Privacy)), consent("termini", bool(c.Terms)),
		consent("marketing", bool(c.Marketing)), consent("terze parti", bool(c.ThirdParty)))

	b.WriteString("\n  ")
	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("aggiornamento..."))
	case m.err != "":
		b.WriteString(errorStyle.Render(m.err))
	case m.status != "":
		b.WriteString(okStyle.Render(m.status))
	}
	return b.String()
}

func consent(label string, ok bool) string {
	if ok {
		return okStyle.Render("✓ " + label)
	}
	return metaStyle.Render("✗ " + label)
}
