package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tramontosereno/sereno/pkg/domain"
)

func testServices() []domain.Service {
	return []domain.Service{
		{ID: "1", Title: "Preventivo", Desc: "Richiedi un preventivo", URL: "/preventivo"},
		{ID: "2", Title: "Blog", URL: "https://tramontosereno.it/blog"},
		{ID: "3", Title: "Memoriale", URL: "@memorial"},
	}
}

func TestServiceTarget(t *testing.T) {
	const app = "https://app.example.it"
	sess := &domain.Session{Token: "abc"}
	tests := []struct {
		name   string
		sess   *domain.Session
		url    string
		want   string
		wantOK bool
	}{
		{"guest route with session", sess, "/preventivo", "https://app.example.it/auth/set-token?token=YWJj&path=%2Fpreventivo&forceMode=mobile", true},
		{"guest route without session", nil, "/preventivo", "https://app.example.it/preventivo?forceMode=mobile", true},
		{"absolute url", sess, "https://x.it/a", "https://x.it/a", true},
		{"app screen", sess, "@memorial", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := serviceTarget(app, tc.sess, domain.Service{URL: tc.url})
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("serviceTarget(%q) = %q, %v; want %q, %v", tc.url, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func loadedServices(r *recorder, fa *fakeAuth) servicesModel {
	m := newServicesModel(&fakeCatalog{services: testServices()}, fa, r.options())
	m, _ = m.Update(m.Init()())
	m.width = 80
	return m
}

func TestServicesNavigationAndOpen(t *testing.T) {
	r := &recorder{}
	m := loadedServices(r, &fakeAuth{})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())
	if len(r.opened) != 1 || r.opened[0] != "https://tramontosereno.it/blog" {
		t.Errorf("opened = %v", r.opened)
	}
	if !strings.Contains(m.status, "Blog") {
		t.Errorf("status = %q", m.status)
	}

	// Cursor stops at the last entry.
	for i := 0; i < 5; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	}
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
}

func TestServicesAppOnlyEntry(t *testing.T) {
	r := &recorder{}
	m := loadedServices(r, &fakeAuth{})
	m.cursor = 2
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())
	if len(r.opened) != 0 {
		t.Errorf("opened = %v, want none", r.opened)
	}
	if !strings.Contains(m.status, "app mobile") {
		t.Errorf("status = %q", m.status)
	}
}

func TestServicesInitLoadsOnce(t *testing.T) {
	m := loadedServices(&recorder{}, &fakeAuth{})
	if m.Init() != nil {
		t.Error("expected no reload once loaded")
	}
	if !strings.Contains(m.View(), "Preventivo") {
		t.Errorf("view missing service:\n%s", m.View())
	}
}

func TestServicesEmptyView(t *testing.T) {
	m := newServicesModel(&fakeCatalog{}, &fakeAuth{}, (&recorder{}).options())
	m, _ = m.Update(servicesLoadedMsg{})
	if !strings.Contains(m.View(), "nessun servizio") {
		t.Errorf("view = %q", m.View())
	}
}
