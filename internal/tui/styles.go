package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tramontosereno/sereno/pkg/domain"
)

// Shimmer animation for the header wordmark.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders the wordmark as a slow wave running from dusk
// violet (#3b2a4a) to sunset amber (#f6a85a).
func renderShimmerLogo(frame int) string {
	const text = "TRAMONTO SERENO"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		if text[i] == ' ' {
			out.WriteString("   ")
			continue
		}
		x := float64(i) / float64(n-1)
		phase := t*0.08 - x*2.5
		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.4)*0.8 + 0.15
		if b > 1.0 {
			b = 1.0
		}

		r := clampByte(59 + b*(246-59))
		g := clampByte(42 + b*(168-42))
		bl := clampByte(74 + b*(90-74))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(text[i])))
		if i < n-1 && text[i+1] != ' ' {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9a8f99"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f3ece6")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d8cfc8"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b6070"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9a8f99"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b6070"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f6a85a"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8fc79a"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d0666b"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#b98a6a")).
				Bold(true)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f6a85a")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4a4250"))

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#2a2230"))
)

// roleLabel names a gateway role code.
func roleLabel(role int) string {
	switch role {
	case domain.RoleUser:
		return "utente"
	case domain.RolePartner:
		return "partner"
	default:
		return fmt.Sprintf("ruolo %d", role)
	}
}

// RoleStyle returns a bold style colored by role.
func RoleStyle(role int) lipgloss.Style {
	switch role {
	case domain.RolePartner:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#c49bd8")).Bold(true)
	case domain.RoleUser:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f6a85a")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#9a8f99")).Bold(true)
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries given as key, label pairs.
func helpBar(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpEntry(pairs[i], pairs[i+1]))
	}
	return " " + strings.Join(parts, "  ")
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	desc  string
	url   string
}

var helpItems = []helpItem{
	{"Sito", "tramontosereno.it", "https://tramontosereno.it"},
	{"Privacy", "tramontosereno.it/privacy", "https://tramontosereno.it/privacy"},
	{"Termini", "tramontosereno.it/termini", "https://tramontosereno.it/termini"},
}

// helpView renders the interactive help overlay with a cursor.
func helpView(cursor int) string {
	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	linkStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f6a85a"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	commands := []struct{ cmd, desc string }{
		{"sereno", "Apri l'interfaccia"},
		{"sereno login", "Accedi con email e password"},
		{"sereno logout", "Chiudi la sessione"},
		{"sereno open", "Apri l'app web già autenticata"},
		{"sereno plan", "Chiedi di essere ricontattato"},
		{"sereno help", "Tutti i comandi"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Comandi"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-16s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Link (invio per aprire)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-16s", item.label))
		prefix := "    "
		if i == cursor {
			label = linkStyle.Render(fmt.Sprintf("%-16s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(item.desc))
	}
	return b.String()
}
