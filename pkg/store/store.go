// Package store persists the device session in a key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tramontosereno/sereno/internal/logging"
	"github.com/tramontosereno/sereno/pkg/domain"
)

// SessionKey is the fixed, app-namespaced key holding the serialized session.
const SessionKey = "@tramonto_sereno_auth"

// ErrWatchUnsupported is returned by Watch when the backend cannot report changes.
var ErrWatchUnsupported = errors.New("store: backend does not support watching")

// KV is the durable key-value collaborator. Get returns (nil, nil) for a
// missing key; Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Change reports that key was written or removed outside the caller's control.
type Change struct {
	Key     string
	Deleted bool
}

// Watcher is implemented by backends that can report changes to a key.
// Watch returns once the watch is established; fn runs on a background
// goroutine until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func(Change)) error
}

// SessionStore loads, saves and clears the Session. It does not validate the
// content it returns; the auth layer is responsible for that.
type SessionStore struct {
	kv  KV
	key string
	log logrus.FieldLogger
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithLogger sets the logger used for corrupt-data warnings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *SessionStore) { s.log = l }
}

// WithKey overrides SessionKey. Tests use it to isolate sessions.
func WithKey(key string) Option {
	return func(s *SessionStore) { s.key = key }
}

// New returns a SessionStore over kv.
func New(kv KV, opts ...Option) *SessionStore {
	s := &SessionStore{kv: kv, key: SessionKey, log: logging.Discard()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load returns the persisted session or nil when there is none. Undecodable
// content is logged and treated as absent.
func (s *SessionStore) Load(ctx context.Context) (*domain.Session, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("store.Load: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.WithError(err).Warn("store: discarding unreadable session")
		return nil, nil
	}
	return &sess, nil
}

// Save persists sess, replacing any previous session.
func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	return nil
}

// Clear removes the persisted session.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("store.Clear: %w", err)
	}
	return nil
}

// Token returns the persisted bearer token, or "" when logged out.
// Read errors are logged and yield "" so requests still go out unauthenticated.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	sess, err := s.Load(ctx)
	if err != nil {
		s.log.WithError(err).Error("store: reading token")
		return "", nil
	}
	if sess == nil {
		return "", nil
	}
	return sess.Token, nil
}

// Watch calls fn with the freshly loaded session (nil when removed) whenever
// the backend reports a change to the session key.
func (s *SessionStore) Watch(ctx context.Context, fn func(*domain.Session)) error {
	w, ok := s.kv.(Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	return w.Watch(ctx, s.key, func(c Change) {
		if c.Deleted {
			fn(nil)
			return
		}
		sess, err := s.Load(ctx)
		if err != nil {
			s.log.WithError(err).Warn("store: reload after change")
			return
		}
		fn(sess)
	})
}

// Close releases the backend.
func (s *SessionStore) Close() error {
	return s.kv.Close()
}
