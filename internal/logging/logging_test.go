package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRedactHookMasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.AddHook(NewRedactHook())

	l.WithFields(logrus.Fields{
		"token":    "abcdefghijklmnop",
		"password": "hunter2",
		"headers":  map[string]string{"X-ipac": "abcdefghijklmnop", "X-apmb": "version"},
		"op":       "login",
	}).Info("request")

	out := buf.String()
	if strings.Contains(out, "abcdefghijklmnop") {
		t.Errorf("token leaked into log output: %s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked into log output: %s", out)
	}
	if !strings.Contains(out, `"op":"login"`) {
		t.Errorf("non-sensitive field missing: %s", out)
	}
	if !strings.Contains(out, "version") {
		t.Errorf("non-sensitive header dropped: %s", out)
	}
}

func TestMaskString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", mask},
		{"abcdefghij", "ab" + mask},
	}
	for _, tt := range tests {
		if got := maskString(tt.in); got != tt.want {
			t.Errorf("maskString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFileOutput(t *testing.T) {
	dir := t.TempDir()
	l, cleanup, err := New(Config{Level: "debug", Format: "json", Output: OutputFile, Dir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	l.WithField("token", "abcdefghijklmnop").Debug("written")
	cleanup()

	data, err := os.ReadFile(FilePath(dir))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file missing entry: %s", data)
	}
	if strings.Contains(string(data), "abcdefghijklmnop") {
		t.Errorf("log file leaked token: %s", data)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
