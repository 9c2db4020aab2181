package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tramontosereno/sereno/pkg/client"
	"github.com/tramontosereno/sereno/pkg/domain"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

const msgBadCredentials = "Credenziali non valide. Riprova."

type loginModel struct {
	auth       Auth
	fields     [numLoginFields]string
	focus      loginField
	partner    bool
	status     string
	submitting bool
}

type loggedInMsg struct {
	session *domain.Session
	err     error
}

func newLoginModel(a Auth) loginModel {
	return loginModel{auth: a}
}

func (m loginModel) role() string {
	if m.partner {
		return domain.RoleHintPartner
	}
	return domain.RoleHintUser
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loggedInMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = loginErrorText(msg.err)
			m.fields[fieldPassword] = ""
			m.focus = fieldPassword
			return m, nil
		}
		m.status = ""
		m.fields = [numLoginFields]string{}
		m.focus = fieldEmail
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		m.focus = (m.focus + 1) % numLoginFields
	case "ctrl+r":
		m.partner = !m.partner
	case "enter":
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			return m, nil
		}
		return m.submit()
	default:
		f := &m.fields[m.focus]
		*f = editRune(*f, msg.String())
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	if email == "" || password == "" {
		m.status = "Inserisci email e password."
		return m, nil
	}

	m.submitting = true
	a, role := m.auth, m.role()
	return m, func() tea.Msg {
		sess, err := a.Login(context.Background(), email, password, role)
		return loggedInMsg{session: sess, err: err}
	}
}

// loginErrorText keeps rejections generic and reports connectivity apart.
func loginErrorText(err error) string {
	if errors.Is(err, client.ErrConnection) {
		return errorText(err)
	}
	return msgBadCredentials
}

func (m loginModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", sectionHeaderStyle.Render("Accedi"))

	labels := [numLoginFields]string{"email", "password"}
	placeholders := [numLoginFields]string{"nome@esempio.it", "••••••••"}
	for i := loginField(0); i < numLoginFields; i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = mask(value)
		}
		cursor := "  "
		style := metaStyle
		rendered := normalStyle.Render(value)
		if value == "" && i != m.focus {
			rendered = inputPlaceholderStyle.Render(placeholders[i])
		}
		if i == m.focus {
			cursor = inputPromptStyle.Render("> ")
			style = selectedStyle
			rendered = normalStyle.Render(value) + accentStyle.Render("█")
		}
		fmt.Fprintf(&b, "  %s%s %s\n", cursor, style.Render(fmt.Sprintf("%-9s", labels[i])), rendered)
	}

	code := domain.RoleForHint(m.role())
	fmt.Fprintf(&b, "\n    %s %s\n", metaStyle.Render("accesso come"), RoleStyle(code).Render(roleLabel(code)))

	b.WriteString("\n  ")
	switch {
	case m.submitting:
		b.WriteString(dimStyle.Render("accesso in corso..."))
	case m.status != "":
		b.WriteString(errorStyle.Render(m.status))
	}
	return b.String()
}
