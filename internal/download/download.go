// Package download saves PDFs requested by guest content into the data
// directory and hands them to the desktop for viewing or sharing.
package download

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"

	"github.com/tramontosereno/sereno/internal/browser"
)

const (
	maxFilename   = 255
	defaultMaxAge = 24 * time.Hour
	pdfExt        = ".pdf"
)

var (
	// ErrInvalidBase64 is returned for inline data that is not base64.
	ErrInvalidBase64 = errors.New("download: invalid base64 data")

	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores = regexp.MustCompile(`_{2,}`)
	base64Chars = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
)

// Manager writes PDFs into a directory and shares them.
type Manager struct {
	dir        string
	httpClient *http.Client
	share      func(path string) error
	now        func() time.Time
	maxAge     time.Duration
	log        logrus.FieldLogger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the client used by DownloadURL.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.httpClient = hc }
}

// WithShare replaces the share step run after each saved file.
func WithShare(fn func(path string) error) Option {
	return func(m *Manager) { m.share = fn }
}

// WithMaxAge sets how old a PDF may get before Cleanup removes it.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) { m.maxAge = d }
}

// WithClock overrides the time source used by Cleanup.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// New returns a Manager storing files in dir.
func New(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:        dir,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		now:        time.Now,
		maxAge:     defaultMaxAge,
		log:        logrus.StandardLogger(),
	}
	m.share = m.openAndCopy
	for _, o := range opts {
		o(m)
	}
	return m
}

// Dir returns the target directory.
func (m *Manager) Dir() string { return m.dir }

// SanitizeFilename replaces characters outside [a-zA-Z0-9._-] with "_",
// collapses runs of "_", caps the length and forces a .pdf extension.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	if len(name) > maxFilename {
		name = name[:maxFilename]
	}
	if !strings.HasSuffix(name, pdfExt) {
		name += pdfExt
	}
	return name
}

// SaveBase64 decodes data into filename and shares the result.
func (m *Manager) SaveBase64(ctx context.Context, data, filename string) error {
	if i := strings.Index(data, ";base64,"); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+len(";base64,"):]
	}
	if data == "" || !base64Chars.MatchString(data) {
		return ErrInvalidBase64
	}
	content, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.cleanupQuietly()
	path, err := m.write(SanitizeFilename(filename), bytes.NewReader(content))
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"path": path, "bytes": len(content)}).Info("download: saved inline PDF")
	return m.share(path)
}

// DownloadURL fetches url into filename and shares the result.
func (m *Manager) DownloadURL(ctx context.Context, url, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	m.cleanupQuietly()
	start := time.Now()
	path, err := m.write(SanitizeFilename(filename), resp.Body)
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"path": path, "url": url, "took": time.Since(start).String()}).Info("download: fetched PDF")
	return m.share(path)
}

// write stores r under name atomically and returns the final path.
func (m *Manager) write(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return "", fmt.Errorf("download: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(m.dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("download: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("download: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("download: write: %w", err)
	}
	path := filepath.Join(m.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("download: rename: %w", err)
	}
	return path, nil
}

// Cleanup removes PDFs older than the max age and returns how many it removed.
func (m *Manager) Cleanup() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("download: list dir: %w", err)
	}
	cutoff := m.now().Add(-m.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), pdfExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (m *Manager) cleanupQuietly() {
	n, err := m.Cleanup()
	if err != nil {
		m.log.WithError(err).Warn("download: cleanup")
		return
	}
	if n > 0 {
		m.log.WithField("removed", n).Debug("download: removed old PDFs")
	}
}

// openAndCopy opens the file with the desktop viewer and puts its path on
// the clipboard. Without a viewer the path on the clipboard is enough.
func (m *Manager) openAndCopy(path string) error {
	clipErr := clipboard.WriteAll(path)
	if clipErr != nil {
		m.log.WithError(clipErr).Debug("download: clipboard unavailable")
	}
	if err := browser.Open(path); err != nil {
		if clipErr != nil {
			return fmt.Errorf("download: share %s: %w", path, err)
		}
		m.log.WithError(err).Warn("download: no viewer, path copied to clipboard")
	}
	return nil
}
