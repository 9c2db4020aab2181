// Package auth owns the session lifecycle: login, logout, token validation,
// the cached user profile and the startup sequence that restores a persisted
// session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tramontosereno/sereno/pkg/client"
	"github.com/tramontosereno/sereno/pkg/device"
	"github.com/tramontosereno/sereno/pkg/domain"
)

// Gateway is the subset of the API client the Manager drives.
type Gateway interface {
	Login(ctx context.Context, req client.LoginRequest) (*domain.Session, error)
	Logout(ctx context.Context) error
	ValidateToken(ctx context.Context, token string) (bool, error)
	Profile(ctx context.Context) (*domain.UserProfile, error)
	Ping(ctx context.Context) error
	DeleteAccount(ctx context.Context, password string) error
}

// Store persists the session.
type Store interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
}

// watchable is implemented by stores that report external changes.
type watchable interface {
	Watch(ctx context.Context, fn func(*domain.Session)) error
}

// ErrNoToken is returned by Login when the gateway accepts the credentials
// but returns no token.
var ErrNoToken = errors.New("auth: login response without token")

// Manager is the single owner of the in-memory session and profile. Create
// one per process and share it.
type Manager struct {
	gw     Gateway
	store  Store
	device func() domain.DeviceInfo
	log    logrus.FieldLogger

	mu      sync.RWMutex
	state   State
	session *domain.Session
	profile *domain.UserProfile
	gen     uint64 // bumped whenever the cached profile is invalidated

	subsMu sync.Mutex
	subs   map[int]chan State
	nextID int

	flights   singleflight.Group
	ready     chan struct{}
	readyOnce sync.Once
	bg        sync.WaitGroup
	stopWatch context.CancelFunc
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDevice sets the device descriptor source used at login.
func WithDevice(fn func() domain.DeviceInfo) Option {
	return func(m *Manager) { m.device = fn }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager in StateUnauthenticated. Call Start before
// consumers branch on its state.
func NewManager(gw Gateway, store Store, opts ...Option) *Manager {
	m := &Manager{
		gw:     gw,
		store:  store,
		device: device.NewProvider(device.AppInfo{}).Describe,
		log:    logrus.StandardLogger(),
		subs:   make(map[int]chan State),
		ready:  make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns a copy of the in-memory session, or nil.
func (m *Manager) Session() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// CachedProfile returns the cached profile without fetching.
func (m *Manager) CachedProfile() *domain.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// Subscribe returns a channel receiving every state transition and a func
// that unsubscribes and closes it. Slow subscribers miss transitions rather
// than block the Manager; State() always has the latest value.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if !changed {
		return
	}
	m.log.WithField("state", s.String()).Debug("auth: state changed")

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Ready is closed once Start has finished, whatever its outcome.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Start restores the persisted session: an invalid token is logged out, a
// valid one is adopted and the profile reloaded. Profile errors are logged.
// Ready is closed when Start returns. The returned error comes only from
// clearing the store.
func (m *Manager) Start(ctx context.Context) error {
	defer m.readyOnce.Do(func() { close(m.ready) })
	defer m.watch()

	sess, err := m.store.Load(ctx)
	if err != nil {
		m.log.WithError(err).Warn("auth: loading persisted session")
	}
	if !sess.Valid() {
		m.setState(StateUnauthenticated)
		return nil
	}

	m.setState(StateAuthenticating)
	if !m.validate(ctx, sess) {
		m.log.Info("auth: persisted session rejected, logging out")
		m.mu.Lock()
		m.session = sess
		m.mu.Unlock()
		return m.Logout(ctx)
	}

	m.adopt(sess)
	if _, err := m.ReloadProfile(ctx); err != nil {
		m.log.WithError(err).Warn("auth: loading profile at startup")
	}
	return nil
}

// Close stops watching the store and waits for background profile loads.
func (m *Manager) Close() {
	m.mu.Lock()
	stop := m.stopWatch
	m.stopWatch = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
	m.bg.Wait()
}

// Login authenticates with identifier and secret. role is the gateway's
// role hint; empty means domain.RoleHintUser. On success the session is
// persisted and the profile is fetched in the background. A failed login
// leaves any existing session and state untouched.
func (m *Manager) Login(ctx context.Context, identifier, secret, role string) (*domain.Session, error) {
	if role == "" {
		role = domain.RoleHintUser
	}
	m.setState(StateAuthenticating)

	sess, err := m.gw.Login(ctx, client.LoginRequest{
		Email:    identifier,
		Password: secret,
		Role:     role,
		Device:   m.device(),
	})
	if err == nil && sess.Token == "" {
		err = ErrNoToken
	}
	if err == nil {
		err = m.store.Save(ctx, *sess)
	}
	if err != nil {
		m.restoreState()
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	m.adopt(sess)
	m.log.WithFields(logrus.Fields{"role": sess.Role, "status": sess.Status}).Info("auth: logged in")
	m.loadProfileAsync()
	out := *sess
	return &out, nil
}

// restoreState returns to the state implied by the in-memory session.
func (m *Manager) restoreState() {
	m.mu.RLock()
	st := StateUnauthenticated
	if m.session.Valid() {
		st = StateAuthenticated
	}
	m.mu.RUnlock()
	m.setState(st)
}

// adopt installs sess as the in-memory session and drops any stale profile.
func (m *Manager) adopt(sess *domain.Session) {
	s := *sess
	m.mu.Lock()
	m.session = &s
	m.profile = nil
	m.gen++
	m.mu.Unlock()
	m.setState(StateAuthenticated)
}

func (m *Manager) loadProfileAsync() {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		if _, err := m.UserProfile(context.Background()); err != nil {
			m.log.WithError(err).Warn("auth: background profile load")
		}
	}()
}

// Logout ends the session. The remote call is best-effort; local state is
// always cleared. Only a failure to clear the store is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	hasSession := m.session.Valid()
	m.mu.RUnlock()

	if hasSession {
		if res := m.remoteLogout(ctx); !res.OK() {
			m.log.WithError(res.Err).Info("auth: remote logout failed, clearing locally")
		}
	}

	err := m.store.Clear(ctx)
	m.drop()
	if err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	m.log.Info("auth: logged out")
	return nil
}

func (m *Manager) remoteLogout(ctx context.Context) BestEffort {
	return BestEffort{Err: m.gw.Logout(ctx)}
}

// drop forgets the in-memory session and profile.
func (m *Manager) drop() {
	m.mu.Lock()
	m.session = nil
	m.profile = nil
	m.gen++
	m.mu.Unlock()
	m.setState(StateUnauthenticated)
}

// ValidateToken reports whether the persisted session is still accepted by
// the gateway. Without a persisted token no request is made. Any failure
// counts as invalid.
func (m *Manager) ValidateToken(ctx context.Context) bool {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.log.WithError(err).Warn("auth: loading session for validation")
		return false
	}
	return m.validate(ctx, sess)
}

func (m *Manager) validate(ctx context.Context, sess *domain.Session) bool {
	if !sess.Valid() {
		return false
	}
	ok, err := m.gw.ValidateToken(ctx, sess.Token)
	if err != nil {
		m.log.WithError(err).Warn("auth: token validation failed")
		return false
	}
	return ok
}

// Ping refreshes server-side activity. The result is informational.
func (m *Manager) Ping(ctx context.Context) BestEffort {
	if m.Session() == nil {
		return BestEffort{}
	}
	err := m.gw.Ping(ctx)
	if err != nil {
		m.log.WithError(err).Debug("auth: ping failed")
	}
	return BestEffort{Err: err}
}

// UserProfile returns the cached profile, fetching it when absent.
// Concurrent callers share one outstanding fetch. It returns nil, nil when
// there is no session.
func (m *Manager) UserProfile(ctx context.Context) (*domain.UserProfile, error) {
	m.mu.RLock()
	p := m.profile
	m.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	return m.fetchProfile(ctx)
}

// ReloadProfile discards the cached profile and fetches a fresh one.
func (m *Manager) ReloadProfile(ctx context.Context) (*domain.UserProfile, error) {
	m.mu.Lock()
	m.profile = nil
	m.gen++
	m.mu.Unlock()
	return m.fetchProfile(ctx)
}

func (m *Manager) fetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	m.mu.RLock()
	hasSession := m.session.Valid()
	gen := m.gen
	m.mu.RUnlock()
	if !hasSession {
		return nil, nil
	}

	ch := m.flights.DoChan("profile:"+strconv.FormatUint(gen, 10), func() (any, error) {
		m.mu.RLock()
		cached := m.profile
		current := m.gen == gen
		m.mu.RUnlock()
		if cached != nil && current {
			return cached, nil
		}

		p, err := m.gw.Profile(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if m.gen == gen {
			m.profile = p
		}
		m.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("auth.UserProfile: %w", res.Err)
		}
		return res.Val.(*domain.UserProfile), nil
	}
}

// DeleteAccount deletes the account after password confirmation, then logs
// out locally.
func (m *Manager) DeleteAccount(ctx context.Context, password string) error {
	if err := m.gw.DeleteAccount(ctx, password); err != nil {
		return fmt.Errorf("auth.DeleteAccount: %w", err)
	}
	m.mu.Lock()
	m.session = nil // the server already ended it
	m.mu.Unlock()
	return m.Logout(ctx)
}

// watch follows external changes of the persisted session when the store
// supports it: a removed session logs this process out, a new one is adopted.
func (m *Manager) watch() {
	w, ok := m.store.(watchable)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	err := w.Watch(ctx, m.onStoreChange)
	if err != nil {
		cancel()
		m.log.WithError(err).Debug("auth: session store not watchable")
		return
	}
	m.mu.Lock()
	m.stopWatch = cancel
	m.mu.Unlock()
}

func (m *Manager) onStoreChange(sess *domain.Session) {
	ctx := context.Background()
	if sess == nil {
		// A removal may be stale; trust what is stored now.
		current, err := m.store.Load(ctx)
		if err != nil {
			m.log.WithError(err).Warn("auth: reloading session after change")
			return
		}
		sess = current
	}

	m.mu.RLock()
	state := m.state
	known := m.session
	m.mu.RUnlock()

	switch {
	case state == StateAuthenticating:
		return
	case !sess.Valid() && state == StateAuthenticated:
		m.log.Info("auth: session removed externally")
		m.drop()
	case sess.Valid() && (known == nil || known.Token != sess.Token):
		m.log.Info("auth: session changed externally")
		m.adopt(sess)
		m.loadProfileAsync()
	}
}
