package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tramontosereno/sereno/pkg/domain"
)

func loadedAccount(fa *fakeAuth, r *recorder) accountModel {
	m := newAccountModel(fa, r.options())
	m, _ = m.Update(profileLoadedMsg{profile: fa.profile})
	return m
}

func accountKey(m accountModel, key string) (accountModel, tea.Msg) {
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	m, _ = m.Update(msg)
	return m, msg
}

func TestAccountOpenWebApp(t *testing.T) {
	r := &recorder{}
	fa := &fakeAuth{session: &domain.Session{Token: "abc"}, profile: testProfile()}
	m := loadedAccount(fa, r)

	m, _ = accountKey(m, "o")
	want := "https://app.example.it/auth/set-token?token=YWJj&path=%2Fuser%2Fplans&forceMode=mobile"
	if len(r.opened) != 1 || r.opened[0] != want {
		t.Errorf("opened = %v, want [%s]", r.opened, want)
	}
	if m.status == "" {
		t.Error("expected confirmation status")
	}
}

func TestAccountCopyEmail(t *testing.T) {
	r := &recorder{}
	fa := &fakeAuth{session: &domain.Session{Token: "abc"}, profile: testProfile()}
	m := loadedAccount(fa, r)

	accountKey(m, "c")
	if len(r.copied) != 1 || r.copied[0] != "giulia@example.it" {
		t.Errorf("copied = %v", r.copied)
	}
}

func TestAccountCopyFailureShowsError(t *testing.T) {
	r := &recorder{}
	opts := r.options()
	opts.Copy = func(string) error { return errors.New("no clipboard") }
	fa := &fakeAuth{session: &domain.Session{Token: "abc"}, profile: testProfile()}
	m := newAccountModel(fa, opts)
	m, _ = m.Update(profileLoadedMsg{profile: fa.profile})

	m, _ = accountKey(m, "c")
	if m.status != "no clipboard" {
		t.Errorf("status = %q", m.status)
	}
}

func TestAccountReload(t *testing.T) {
	fa := &fakeAuth{session: &domain.Session{Token: "abc"}, profile: testProfile()}
	m := loadedAccount(fa, &recorder{})

	m, msg := accountKey(m, "r")
	if _, ok := msg.(profileLoadedMsg); !ok {
		t.Fatalf("msg = %T, want profileLoadedMsg", msg)
	}
	if fa.reloads != 1 {
		t.Errorf("reloads = %d, want 1", fa.reloads)
	}
	if m.loading {
		t.Error("expected loading cleared")
	}
}

func TestAccountProfileError(t *testing.T) {
	m := newAccountModel(&fakeAuth{}, (&recorder{}).options())
	m.loading = true
	m, _ = m.Update(profileLoadedMsg{err: errors.New("boom")})
	view := m.View()
	if !strings.Contains(view, "boom") || !strings.Contains(view, "premi r") {
		t.Errorf("expected error and retry hint:\n%s", view)
	}
}

func TestAccountViewMarksCurrentPlan(t *testing.T) {
	fa := &fakeAuth{profile: testProfile()}
	m := loadedAccount(fa, &recorder{})
	m.width = 80
	view := m.View()
	if !strings.Contains(view, "●") {
		t.Errorf("expected current plan marker:\n%s", view)
	}
	if !strings.Contains(view, "✓ privacy") || !strings.Contains(view, "✗ marketing") {
		t.Errorf("expected consent flags:\n%s", view)
	}
}
