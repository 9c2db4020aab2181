package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var greetings = [...]string{
	"Pensare per tempo è un gesto di cura verso chi resta.",
	"Un piano chiaro oggi è una preoccupazione in meno domani.",
	"Le tue volontà, custodite con discrezione.",
	"Ogni scelta può essere rivista quando vuoi.",
	"Nessuna fretta. Il tuo piano ti aspetta.",
}

func printHelp() {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f6a85a")).
		Bold(true).
		Render("T R A M O N T O   S E R E N O")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"sereno", "Apri l'interfaccia interattiva"},
		{"sereno login", "Accedi (--email, --password, --partner)"},
		{"sereno logout", "Chiudi la sessione"},
		{"sereno whoami", "Mostra il profilo"},
		{"sereno validate", "Verifica il token salvato"},
		{"sereno open [percorso]", "Apri l'app web già autenticata"},
		{"sereno services", "Elenca i servizi disponibili"},
		{"sereno partners [testo]", "Cerca un'impresa funebre"},
		{"sereno partners <id>", "Mostra un'impresa funebre"},
		{"sereno plan", "Chiedi di essere ricontattato (--name, --email, --phone, --date, --service, --notes)"},
		{"sereno bridge", "Elabora i messaggi dell'app web da stdin"},
		{"sereno cleanup", "Rimuovi i documenti scaricati più vecchi di 24 ore"},
		{"sereno delete-account", "Elimina l'account"},
		{"sereno --version", "Mostra la versione"},
		{"sereno help", "Questo elenco"},
	}

	fmt.Printf("\n  %s\n\n  Comandi:\n", title)
	for _, c := range commands {
		fmt.Printf("    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-24s", c.cmd)), descStyle.Render(c.desc))
	}
	url := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("https://tramontosereno.it")
	fmt.Printf("\n  %s\n\n", url)
}

func printGreeting() {
	msg := greetings[rand.IntN(len(greetings))]

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f6a85a")).
		Bold(true).
		Render("TRAMONTO SERENO")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(msg)

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("Nessuna sessione attiva. Per entrare: sereno login")

	fmt.Printf("\n%s\n\n%s\n\n%s\n\n", title, quote, hint)
}
