// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Output targets.
const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputFile   = "file"
)

// LogFileName is the request log written under <dir>/logs/ when output is "file".
const LogFileName = "api-requests.log"

// Config selects level, format and destination.
type Config struct {
	Level  string // trace|debug|info|warn|error
	Format string // text|json
	Output string // stderr|stdout|file
	Dir    string // data dir; the file goes to Dir/logs/api-requests.log
}

// New returns a configured logger and a cleanup func closing any log file.
// Sensitive fields are always redacted.
func New(cfg Config) (*logrus.Logger, func(), error) {
	l := logrus.New()
	l.AddHook(NewRedactHook())

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("logging.New: %w", err)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	cleanup := func() {}
	switch strings.ToLower(cfg.Output) {
	case OutputStdout:
		l.SetOutput(os.Stdout)
	case OutputFile:
		f, err := openLogFile(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("logging.New: %w", err)
		}
		l.SetOutput(f)
		cleanup = func() { _ = f.Close() }
	default:
		l.SetOutput(os.Stderr)
	}
	return l, cleanup, nil
}

// FilePath returns the request log location under dir.
func FilePath(dir string) string {
	return filepath.Join(dir, "logs", LogFileName)
}

func openLogFile(dir string) (*os.File, error) {
	path := FilePath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Discard returns a logger that writes nowhere. Packages fall back to it when
// the caller does not supply one.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
