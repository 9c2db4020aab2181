package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrMissingFilename is returned by Handle for a downloadPDF message without
// a filename.
var ErrMissingFilename = errors.New("bridge: missing filename")

// Handlers are the host callbacks. Every field is optional.
type Handlers struct {
	OnGoBack   func()
	OnNavigate func(route string)
	OnData     func(payload []byte)
	// Custom maps an action name to its callback.
	Custom map[string]func(Custom)
}

// Downloader materializes PDFs requested by the guest and shares them.
type Downloader interface {
	SaveBase64(ctx context.Context, data, filename string) error
	DownloadURL(ctx context.Context, url, filename string) error
}

// Handler dispatches guest messages. It keeps no state between calls.
type Handler struct {
	downloads   Downloader
	storageBase string
	log         logrus.FieldLogger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler returns a Handler resolving relative PDF paths against
// storageBase.
func NewHandler(downloads Downloader, storageBase string, opts ...Option) *Handler {
	h := &Handler{
		downloads:   downloads,
		storageBase: strings.TrimRight(storageBase, "/") + "/",
		log:         logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle parses raw and invokes the matching callback. Malformed or
// unhandled messages are logged and dropped. The only errors are
// ErrMissingFilename and failures of the Downloader.
func (h *Handler) Handle(ctx context.Context, raw string, hs *Handlers) error {
	if hs == nil {
		hs = &Handlers{}
	}
	if strings.TrimSpace(raw) == "" {
		h.log.Warn("bridge: empty message")
		return nil
	}

	msg, err := Parse(raw)
	if err != nil {
		h.log.WithError(err).WithField("raw", truncate(raw, 200)).Warn("bridge: dropping message")
		return nil
	}
	log := h.log.WithField("action", msg.Action())

	switch m := msg.(type) {
	case GoBack:
		if hs.OnGoBack == nil {
			log.Warn("bridge: no goBack handler")
			return nil
		}
		hs.OnGoBack()

	case Navigate:
		switch {
		case m.Route == "":
			log.Error("bridge: navigate without route")
		case hs.OnNavigate == nil:
			log.Warn("bridge: no navigate handler")
		default:
			log.WithField("route", m.Route).Debug("bridge: navigate")
			hs.OnNavigate(m.Route)
		}

	case Data:
		if hs.OnData == nil {
			log.WithField("payload", truncate(string(m.Payload), 100)).Info("bridge: no data handler")
			return nil
		}
		hs.OnData(m.Payload)

	case DownloadPDF:
		return h.download(ctx, log, m)

	case Custom:
		fn := hs.Custom[m.Name]
		if fn == nil {
			log.WithField("raw", truncate(string(m.Raw), 200)).Warn("bridge: unknown action")
			return nil
		}
		fn(m)
	}
	return nil
}

func (h *Handler) download(ctx context.Context, log logrus.FieldLogger, m DownloadPDF) error {
	if m.Filename == "" {
		log.Error("bridge: downloadPDF without filename")
		return ErrMissingFilename
	}
	if h.downloads == nil {
		log.Warn("bridge: no downloader configured")
		return nil
	}

	if m.Inline != "" {
		log.WithFields(logrus.Fields{
			"filename": m.Filename,
			"data":     truncate(m.Inline, 100),
		}).Info("bridge: saving inline PDF")
		if err := h.downloads.SaveBase64(ctx, m.Inline, m.Filename); err != nil {
			return fmt.Errorf("bridge: save PDF: %w", err)
		}
		return nil
	}

	url := h.ResolvePDFURL(m.Filename)
	log.WithField("url", url).Info("bridge: downloading PDF")
	if err := h.downloads.DownloadURL(ctx, url, m.Filename); err != nil {
		return fmt.Errorf("bridge: download PDF: %w", err)
	}
	return nil
}

// ResolvePDFURL returns path unchanged when it is already an http(s) URL,
// otherwise the storage base joined with the last path segment.
func (h *Handler) ResolvePDFURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return h.storageBase + path[strings.LastIndex(path, "/")+1:]
}

// truncate shortens long strings, typically base64 payloads, for logging.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("[base64 data: %d chars]", len(s))
}
